// Package objectstore stores binary objects such as session images.
package objectstore

import (
	"context"
	"sync"

	"github.com/KaanK026/Harvia/internal/domain"
)

// Object is a stored blob with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// Store puts and gets objects by key. Get returns domain.ErrObjectNotFound
// for missing keys.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) (*Object, error)
}

// MemoryStore keeps objects in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Put(_ context.Context, key, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrObjectNotFound
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return &obj, nil
}
