// Package kv defines the key-value byte store the record store persists into.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned when the store is disabled or temporarily unreachable.
	ErrUnavailable = errors.New("byte store unavailable")
	// ErrQuotaExceeded is returned when a value does not fit the store's quota.
	ErrQuotaExceeded = errors.New("byte store quota exceeded")
)

// ByteStore is an opaque key-value persistence mechanism.
type ByteStore interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Closer is implemented by stores holding connections or file handles.
type Closer interface {
	Close() error
}
