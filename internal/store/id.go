package store

import "github.com/google/uuid"

// IDGenerator returns a fresh record identifier.
type IDGenerator func() string

// NewID returns a UUIDv7: a 48-bit millisecond timestamp followed by random
// bits, so ids sort roughly by creation time and never collide in practice.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
