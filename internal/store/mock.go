package store

import (
	"context"

	"github.com/aldr/autonomi-service/internal/model"
)

// MockID is the identifier handed out for every record accepted by the
// mock backend.
const MockID = "mock-id-12345"

// Mock acknowledges records without keeping them and fabricates a fixed
// record for any lookup.  It holds no state and is safe for concurrent use.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (*Mock) Put(_ context.Context, _ model.HealthRecord) (model.Receipt, error) {
	return model.Receipt{ID: MockID, Stored: false}, nil
}

// Get returns the placeholder record with id echoed back.  Any id,
// including the empty string, is answered.
func (*Mock) Get(_ context.Context, id string) (model.HealthRecord, error) {
	return PlaceholderRecord(id), nil
}

func (*Mock) List(_ context.Context) ([]model.HealthRecord, error) {
	return []model.HealthRecord{}, nil
}

// PlaceholderRecord builds the fabricated record returned by the mock backend.
func PlaceholderRecord(id string) model.HealthRecord {
	return model.HealthRecord{
		ID:         &id,
		OwnerID:    "user123",
		RecordType: "bloodwork",
		Title:      "Mock Record",
		Content:    "This is a placeholder record",
		Date:       "2025-04-15",
	}
}
