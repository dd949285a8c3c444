package metadata

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps keys in process memory. It backs the
// per-run "session storage" namespace, which must not survive a restart.
type MemoryRepository struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string][]byte)}
}

func (r *MemoryRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (r *MemoryRepository) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	r.data[key] = append([]byte(nil), value...)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.data, key)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Keys(_ context.Context) ([]string, error) {
	r.mu.Lock()
	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	sort.Strings(keys)
	return keys, nil
}

func (r *MemoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	r.data = make(map[string][]byte)
	r.mu.Unlock()
	return nil
}
