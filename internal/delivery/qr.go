// Package delivery hands finished photos to guests: a QR code pointing at
// the gallery page and an optional e-mail with the same link.
package delivery

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultQRSize = 512

// Links builds guest-facing URLs for stored photos.
type Links struct {
	galleryBaseURL string
}

func NewLinks(galleryBaseURL string) Links {
	return Links{galleryBaseURL: strings.TrimRight(galleryBaseURL, "/")}
}

// PhotoURL is the gallery page of one photo.
func (l Links) PhotoURL(photoID string) string {
	return fmt.Sprintf("%s/photos/%s", l.galleryBaseURL, url.PathEscape(photoID))
}

// QRCode renders link as a PNG. Sizes outside 128..2048 fall back to 512.
func QRCode(link string, size int) ([]byte, error) {
	if strings.TrimSpace(link) == "" {
		return nil, errors.New("delivery: qr link is required")
	}
	if size < 128 || size > 2048 {
		size = defaultQRSize
	}
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("delivery: encode qr: %w", err)
	}
	return png, nil
}
