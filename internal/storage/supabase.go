package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	storage_go "github.com/supabase-community/storage-go"

	"photobooth/internal/domain"
)

// SupabaseStore uploads photos to a Supabase Storage bucket and hands out
// public object URLs.
type SupabaseStore struct {
	client *storage_go.Client
	bucket string
}

// NewSupabaseStore builds a store against {projectURL}/storage/v1 using the
// service key.
func NewSupabaseStore(projectURL, serviceKey, bucket string) (*SupabaseStore, error) {
	projectURL = strings.TrimRight(strings.TrimSpace(projectURL), "/")
	if projectURL == "" || strings.TrimSpace(serviceKey) == "" {
		return nil, errors.New("storage: supabase url and service key are required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage: bucket is required")
	}
	client := storage_go.NewClient(projectURL+"/storage/v1", serviceKey, map[string]string{
		"apikey": serviceKey,
	})
	return &SupabaseStore{client: client, bucket: bucket}, nil
}

// Upload writes body at path and returns its public URL.
func (s *SupabaseStore) Upload(ctx context.Context, path string, body io.Reader, opts domain.UploadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := sanitizeKey(path)
	if err != nil {
		return "", err
	}
	fileOpts := storage_go.FileOptions{Upsert: &opts.Upsert}
	if opts.ContentType != "" {
		contentType := opts.ContentType
		fileOpts.ContentType = &contentType
	}
	if opts.CacheControl != "" {
		cacheControl := opts.CacheControl
		fileOpts.CacheControl = &cacheControl
	}
	if _, err := s.client.UploadFile(s.bucket, key, body, fileOpts); err != nil {
		return "", fmt.Errorf("storage: supabase upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// PublicURL returns the public URL for path without contacting the server.
func (s *SupabaseStore) PublicURL(path string) string {
	return s.client.GetPublicUrl(s.bucket, path).SignedURL
}

var _ domain.ObjectStore = (*SupabaseStore)(nil)
