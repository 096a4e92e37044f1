package store

import (
	"context"
	"sync"

	"github.com/stevemurr/comparison-api/product"
)

// MemoryStore keeps the collection in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records []product.Record
}

func NewMemoryStore(seed ...product.Record) *MemoryStore {
	return &MemoryStore{records: cloneAll(seed)}
}

// cloneAll deep-copies a collection so callers never share maps or pointers
// with the store.
func cloneAll(src []product.Record) []product.Record {
	dst := make([]product.Record, len(src))
	for i, r := range src {
		dst[i] = r.Clone()
	}
	return dst
}

func (m *MemoryStore) Load(_ context.Context) ([]product.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAll(m.records), nil
}

func (m *MemoryStore) Save(_ context.Context, records []product.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = cloneAll(records)
	return nil
}
