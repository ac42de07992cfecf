// Package backend builds the configured kv.ByteStore.
package backend

import (
	"context"

	"chitieu/internal/kv"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the byte store and an optional cleanup function
type BackendResult struct {
	Store   kv.ByteStore
	Cleanup CleanupFunc
}

// Close runs Cleanup when present.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates byte stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	DataDirectory string // file
	SQLiteDBPath  string // sqlite
	PostgresURL   string // postgres

	DynamoDBTable    string
	DynamoDBRegion   string
	DynamoDBEndpoint string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	FileBackend     BackendType = "file"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	DynamoDBBackend BackendType = "dynamodb"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, PostgresBackend, DynamoDBBackend:
		return true
	default:
		return false
	}
}

// Remote reports whether the backend talks to a server over the network.
func (bt BackendType) Remote() bool {
	return bt == PostgresBackend || bt == DynamoDBBackend
}
