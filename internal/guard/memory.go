package guard

import (
	"context"
	"sync"
)

// MemoryStore keeps the count in process; used for one-shot runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	count int
	set   bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, m.set, nil
}

func (m *MemoryStore) Save(_ context.Context, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count, m.set = count, true
	return nil
}
