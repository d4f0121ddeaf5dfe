package backend

import (
	"context"

	"spendsync/internal/repository"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the repositories and the hooks to probe and
// release them. Ready and Cleanup may be nil.
type BackendResult struct {
	Expenses repository.ExpenseRepository
	Users    repository.UserRepository
	Ready    func(ctx context.Context) error
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Postgres specific
	DatabaseURL     string
	ConnectAttempts int
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
