package effects

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"photobooth/internal/domain"
	"photobooth/internal/media"
)

// stageImage writes data to a uniquely named file in dir. The returned
// cleanup removes it and is safe to defer before checking err.
func stageImage(dir string, data []byte, contentType string) (string, func(), error) {
	ext := "jpg"
	if f, err := media.ParseFormat(contentType); err == nil {
		ext = f.Extension()
	}
	path := filepath.Join(dir, fmt.Sprintf("capture-%s.%s", uuid.NewString(), ext))
	cleanup := func() { _ = os.Remove(path) }
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", func() {}, &domain.Error{Kind: domain.KindInternal, Message: "stage temp file", Err: err}
	}
	return path, cleanup, nil
}

// multipartFromFile builds a form with the staged image under field plus
// the effect's static params as plain fields.
func multipartFromFile(field, path, contentType string, params []domain.Param) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("effects: open staged image: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filepath.Base(path)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		return nil, "", fmt.Errorf("effects: create image part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("effects: copy image part: %w", err)
	}
	for _, p := range params {
		if err := w.WriteField(p.Name, p.Value); err != nil {
			return nil, "", fmt.Errorf("effects: write field %s: %w", p.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("effects: close multipart: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

// newMultipartRequest stages the image, builds the form and removes the
// temp file before returning on every path.
func newMultipartRequest(ctx context.Context, url, tempDir string, image []byte, contentType string, params []domain.Param) (*http.Request, error) {
	path, cleanup, err := stageImage(tempDir, image, contentType)
	defer cleanup()
	if err != nil {
		return nil, err
	}
	body, formType, err := multipartFromFile("image", path, contentType, params)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindInternal, Message: "build multipart body", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindInternal, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", formType)
	return req, nil
}
