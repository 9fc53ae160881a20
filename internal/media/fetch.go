package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrTooLarge is returned when a download exceeds the caller's limit.
var ErrTooLarge = errors.New("media: payload exceeds size limit")

// StatusError is a non-2xx download.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("media: fetch %s: status %d", e.URL, e.Status)
}

// Fetch downloads url and returns the body plus its declared content type.
// A limit <= 0 disables the size check.
func Fetch(ctx context.Context, client *http.Client, url string, limit int64) ([]byte, string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("media: build fetch request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", &StatusError{URL: url, Status: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("media: read %s: %w", url, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, "", ErrTooLarge
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// ExtensionFor picks a file extension for contentType, defaulting to jpg.
func ExtensionFor(contentType string) string {
	if f, err := ParseFormat(contentType); err == nil {
		return f.Extension()
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/webp"):
		return "webp"
	case strings.HasPrefix(ct, "image/gif"):
		return "gif"
	}
	return "jpg"
}
