package statestore

import (
	"context"
	"sync"

	"demodesk/internal/script"
)

// MemoryStore is the in-memory Store used in tests and for local
// development without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*State
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*State)}
}

func (m *MemoryStore) Save(ctx context.Context, requesterKey string, result *ProvisionResult, s *script.DemoScript) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[requesterKey]
	if !ok {
		rec = &State{}
		m.records[requesterKey] = rec
	}
	if result != nil {
		rec.Result = sanitize(result)
	}
	if s != nil {
		rec.Script = cloneScript(s)
	}
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, requesterKey string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[requesterKey]
	if !ok {
		return nil, nil
	}
	out := &State{Result: sanitize(rec.Result)}
	if rec.Script != nil {
		out.Script = cloneScript(rec.Script)
	}
	return out, nil
}

// cloneScript deep-copies a script so stored state and callers never
// share the Steps and Prerequisites backing arrays.
func cloneScript(s *script.DemoScript) *script.DemoScript {
	c := *s
	if s.Prerequisites != nil {
		c.Prerequisites = append([]string(nil), s.Prerequisites...)
	}
	if s.Steps != nil {
		c.Steps = append([]script.Step(nil), s.Steps...)
	}
	return &c
}

func (m *MemoryStore) ClearScript(ctx context.Context, requesterKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[requesterKey]; ok {
		rec.Script = nil
	}
	return nil
}

func (m *MemoryStore) ClearAll(ctx context.Context, requesterKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, requesterKey)
	return nil
}
