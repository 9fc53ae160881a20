// Package media validates captured frames and re-encodes them for providers
// that only accept JPEG or PNG.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

// Format is a canonical image format name.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
)

// AllowedFormats is the capture allow-list.
var AllowedFormats = map[string]Format{
	"jpg":  FormatJPEG,
	"jpeg": FormatJPEG,
	"png":  FormatPNG,
	"bmp":  FormatBMP,
}

var contentTypes = map[Format]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatBMP:  "image/bmp",
}

// ErrUnsupportedFormat is returned for anything outside the allow-list.
var ErrUnsupportedFormat = errors.New("media: unsupported image format")

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	return contentTypes[f]
}

// Extension returns the file extension (without dot) used for stored objects.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// ParseFormat maps an extension, file name or MIME type onto the allow-list.
func ParseFormat(declared string) (Format, error) {
	d := strings.ToLower(strings.TrimSpace(declared))
	if d == "" {
		return "", fmt.Errorf("%w: empty", ErrUnsupportedFormat)
	}
	if i := strings.IndexByte(d, ';'); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "image/")
	if ext := path.Ext(d); ext != "" {
		d = ext[1:]
	}
	d = strings.TrimPrefix(d, "x-ms-")
	if f, ok := AllowedFormats[d]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, declared)
}

// Sniff detects the real format of data from its magic bytes.
func Sniff(data []byte) (Format, error) {
	return ParseFormat(http.DetectContentType(data))
}

// DecodeDataURL splits a "data:image/png;base64,..." payload. Plain base64
// without a header is accepted and returns an empty MIME type.
func DecodeDataURL(raw string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	mime := ""
	if rest, ok := strings.CutPrefix(raw, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", errors.New("media: malformed data url")
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, "", errors.New("media: data url must be base64 encoded")
		}
		mime = strings.TrimSuffix(header, ";base64")
		raw = payload
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", fmt.Errorf("media: decode base64: %w", err)
	}
	return data, mime, nil
}

// Normalize re-encodes BMP frames as PNG. JPEG and PNG pass through untouched.
func Normalize(data []byte, f Format) ([]byte, Format, error) {
	if f != FormatBMP {
		return data, f, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("media: decode bmp: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, "", fmt.Errorf("media: encode png: %w", err)
	}
	return buf.Bytes(), FormatPNG, nil
}
