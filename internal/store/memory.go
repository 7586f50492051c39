package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by replay dry runs and tests.
type Memory struct {
	mu    sync.Mutex
	items map[string]Transcript
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]Transcript)}
}

func (m *Memory) FetchRecent(_ context.Context, limit int) ([]Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Transcript, 0, len(m.items))
	for _, t := range m.items {
		out = append(out, t)
	}
	return newestFirst(out, limit), nil
}

func (m *Memory) Save(_ context.Context, t Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(t)
	return nil
}

func (m *Memory) Update(_ context.Context, t Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(t)
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *Memory) Find(_ context.Context, id string) (Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return Transcript{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) put(t Transcript) {
	if stored, ok := m.items[t.ID]; ok {
		t = merge(stored, t)
	}
	m.items[t.ID] = t
}
