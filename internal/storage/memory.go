package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"photobooth/internal/domain"
)

// MemoryStore keeps uploaded objects in memory. It backs the "memory"
// storage backend for local development and the pipeline tests.
type MemoryStore struct {
	baseURL string
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

// NewMemoryStore creates an empty store whose public URLs start with baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *MemoryStore) Upload(ctx context.Context, path string, body io.Reader, opts domain.UploadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := sanitizeKey(path)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("storage: read upload body: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[key]; exists && !opts.Upsert {
		return "", fmt.Errorf("storage: object %s already exists", key)
	}
	m.objects[key] = data
	m.types[key] = opts.ContentType
	return m.PublicURL(key), nil
}

func (m *MemoryStore) PublicURL(path string) string {
	return m.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Object returns a stored object and its content type.
func (m *MemoryStore) Object(path string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[strings.TrimLeft(path, "/")]
	return data, m.types[strings.TrimLeft(path, "/")], ok
}

// Keys lists stored object keys in lexical order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ domain.ObjectStore = (*MemoryStore)(nil)
