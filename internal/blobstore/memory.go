package blobstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nestclip/nestclip/internal/common"
)

// MemoryStore is an in-process ObjectStore used by tests. It counts uploads
// so single-flight behavior can be asserted.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	Uploads atomic.Int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(_ context.Context, data []byte, _ string, key string) (Stored, error) {
	m.Uploads.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = cp
	return Stored{Key: key, URL: "memory://" + key, Length: int64(len(data))}, nil
}

func (m *MemoryStore) Download(_ context.Context, key, _ string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrDownloadFailed, key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryStore) ObjectURL(_ context.Context, key string) (string, error) {
	return "memory://" + key, nil
}

// Has reports whether an object exists at key.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
