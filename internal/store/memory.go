package store

import (
	"context"
	"sort"
	"sync"

	"imagededup/internal/identity"
)

// Memory is a process-local Store.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	closed  bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) Get(_ context.Context, id identity.FileIdentity) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Record{}, false, errClosed
	}
	rec, ok := m.records[id.Path]
	if !ok || !rec.Identity.Matches(id) {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (m *Memory) Put(_ context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	m.records[rec.Identity.Path] = rec
	return nil
}

func (m *Memory) Contains(ctx context.Context, id identity.FileIdentity) (bool, error) {
	_, ok, err := m.Get(ctx, id)
	return ok, err
}

func (m *Memory) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records)
	m.records = make(map[string]Record)
	return n, nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{Path: ":memory:"}
	for _, rec := range m.records {
		tally(&stats, rec)
	}
	return stats, nil
}

func (m *Memory) All(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity.Path < out[j].Identity.Path })
	return out, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
