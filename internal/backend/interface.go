package backend

import (
	"context"

	"behavior/internal/source"
	"behavior/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the statement provider and optional cleanup function.
// Store is set only for the sqlite backend.
type BackendResult struct {
	Provider source.Provider
	Store    *storage.SQLiteRepository
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// file
	StatementPath string

	// sqlite
	SQLiteDBPath string

	// sheets
	GoogleSpreadsheetID string
	GoogleSheetRange    string

	// gcs
	GCSBucket string
	GCSObject string
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	GCSBackend    BackendType = "gcs"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SQLiteBackend, SheetsBackend, GCSBackend:
		return true
	default:
		return false
	}
}
