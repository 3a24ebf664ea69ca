// Package store defines the record storage backends that sit behind the
// HTTP handlers.  The default backend only acknowledges records; the
// others keep them in memory, Redis or MySQL until the service is wired
// to the Autonomi network.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aldr/autonomi-service/internal/model"
)

// ErrNotFound is returned by Get when no record exists for the id.
// Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("record not found")

// Store is implemented by every record backend.
type Store interface {
	Put(ctx context.Context, rec model.HealthRecord) (model.Receipt, error)
	Get(ctx context.Context, id string) (model.HealthRecord, error)
	List(ctx context.Context) ([]model.HealthRecord, error)
}

// Backend names accepted by STORE_BACKEND.
const (
	BackendMock   = "mock"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

// ParseBackend normalises a backend name and rejects unknown ones.
func ParseBackend(name string) (string, error) {
	b := strings.ToLower(strings.TrimSpace(name))
	if b == "" {
		return BackendMock, nil
	}
	switch b {
	case BackendMock, BackendMemory, BackendRedis, BackendMySQL:
		return b, nil
	}
	return "", fmt.Errorf("unknown store backend %q", name)
}
