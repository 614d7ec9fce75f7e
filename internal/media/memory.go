package media

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/musicmoon/marketplace/internal/apperr"
)

const memoryURLPrefix = "memory://"

// MemoryStore keeps objects in memory for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore builds an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(_ context.Context, folder Folder, filename string, data []byte) (string, error) {
	if !folder.Valid() {
		return "", fmt.Errorf("%w: unknown folder %q", apperr.ErrValidationFailed, folder)
	}
	key := objectKey(folder, uuid.NewString(), filename)
	m.mu.Lock()
	m.objects[key] = append([]byte(nil), data...)
	m.mu.Unlock()
	return memoryURLPrefix + key, nil
}

func (m *MemoryStore) Delete(_ context.Context, url string) error {
	key := strings.TrimPrefix(url, memoryURLPrefix)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

// Get returns the stored bytes for url.
func (m *MemoryStore) Get(url string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[strings.TrimPrefix(url, memoryURLPrefix)]
	return data, ok
}

// Len reports the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
