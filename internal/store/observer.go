package store

import (
	"context"
	"time"

	"chitieu/internal/core"
)

type EventKind string

const (
	EventCreated EventKind = "created"
	EventRemoved EventKind = "removed"
	EventCleared EventKind = "cleared"
)

// Event describes one completed mutation. Record is zero for EventCleared;
// Count is the number of records affected.
type Event struct {
	Kind   EventKind
	Record core.Record
	Count  int
	At     time.Time
}

// Observer is notified after every mutation, outside the store lock.
// Implementations must not call back into mutating store methods synchronously.
type Observer interface {
	Notify(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

func (f ObserverFunc) Notify(ctx context.Context, e Event) { f(ctx, e) }

func notify(ctx context.Context, observers []Observer, e Event) {
	for _, o := range observers {
		o.Notify(ctx, e)
	}
}
