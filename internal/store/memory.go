package store

import (
	"context"
	"sort"
	"sync"

	"github.com/aldr/autonomi-service/internal/model"
)

// Memory keeps records in a process-local map keyed by content address.
// Records are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	records map[string]model.HealthRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]model.HealthRecord)}
}

// Put stores rec under its content address.  A client supplied id is
// replaced by the address.
func (m *Memory) Put(_ context.Context, rec model.HealthRecord) (model.Receipt, error) {
	id, err := Address(rec)
	if err != nil {
		return model.Receipt{}, err
	}
	m.mu.Lock()
	m.records[id] = rec.WithID(id)
	m.mu.Unlock()
	return model.Receipt{ID: id, Stored: true}, nil
}

func (m *Memory) Get(_ context.Context, id string) (model.HealthRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return model.HealthRecord{}, ErrNotFound
	}
	return rec, nil
}

// List returns all records ordered by id.
func (m *Memory) List(_ context.Context) ([]model.HealthRecord, error) {
	m.mu.RLock()
	out := make([]model.HealthRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].IDString() < out[j].IDString() })
	return out, nil
}
