package backend

import (
	"context"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/session"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/storage"
)

// Backend is the unified store interface behind the HTTP layer: session
// lifecycle plus the transactions each session holds.
type Backend interface {
	session.Store
	session.TransactionStore
}

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc

	// SQLite is set when the backend is SQLite so callers can wire the
	// export processor, which reads the pending-export queue directly.
	SQLite *storage.SQLiteRepository
}

// Factory creates backends based on configuration.
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
