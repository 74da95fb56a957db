package backend

import (
	"context"

	"complaints/internal/sheets"
	gsheet "complaints/internal/sheets/google"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the snapshot reader and optional cleanup function
type BackendResult struct {
	Reader  sheets.SnapshotReader
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// memory
	DataDirectory string

	// sqlite
	SQLiteDBPath string

	// sheets
	Sheets gsheet.Settings
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
