package backend

import (
	"context"

	"subtrack/internal/storage"
)

// BackendResult contains the created persister. Closing the persister
// releases whatever the backend holds open.
type BackendResult struct {
	Persister storage.Persister
}

// Factory creates persisters from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File backend
	DataDirectory string

	// SQLite backend
	SQLiteDBPath string

	// Memory backend, optional encoded snapshot to start from
	SeedFile string
}

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
