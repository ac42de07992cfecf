// Package store is the single source of truth for expense records. It keeps
// an ordered in-memory snapshot and mirrors it as one JSON array under a
// fixed key of a kv.ByteStore.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"chitieu/internal/core"
	"chitieu/internal/kv"
	"chitieu/internal/log"
)

// DefaultKey is the key the snapshot is persisted under.
const DefaultKey = "transactions_v1"

const (
	rejectedSuffix = ".rejected"
	corruptSuffix  = ".corrupt"
)

// PersistenceError reports a byte store failure. It never escapes the store's
// mutating operations; it is logged and surfaced through Health.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Metrics is the set of counters the store reports to.
type Metrics interface {
	RecordAppended()
	RecordRemoved()
	RecordsClearedN(n int)
	RecordsDroppedN(n int)
	SnapshotSize(n int)
	PersistFailed(op string)
	PersistObserved(op string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordAppended()                       {}
func (noopMetrics) RecordRemoved()                        {}
func (noopMetrics) RecordsClearedN(int)                   {}
func (noopMetrics) RecordsDroppedN(int)                   {}
func (noopMetrics) SnapshotSize(int)                      {}
func (noopMetrics) PersistFailed(string)                  {}
func (noopMetrics) PersistObserved(string, time.Duration) {}

type Store struct {
	mu sync.RWMutex

	kv         kv.ByteStore
	key        string
	now        func() time.Time
	newID      IDGenerator
	logger     *log.Logger
	metrics    Metrics
	observers  []Observer
	quarantine bool

	records []core.Record
	frags   [][]byte // frags[i] is the encoded form of records[i]
	ids     map[string]struct{}
	lastTS  time.Time
	lastErr error
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) { s.newID = gen }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentStore)
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

// WithQuarantine controls whether entries dropped on load are copied aside
// under "<key>.rejected" and unreadable blobs under "<key>.corrupt".
func WithQuarantine(enabled bool) Option {
	return func(s *Store) { s.quarantine = enabled }
}

// New returns an empty store. Call Load before mutating, otherwise the first
// write replaces whatever was persisted.
func New(bs kv.ByteStore, opts ...Option) *Store {
	s := &Store{
		kv:         bs,
		key:        DefaultKey,
		now:        time.Now,
		newID:      NewID,
		logger:     log.Discard(),
		metrics:    noopMetrics{},
		quarantine: true,
		ids:        map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open is New followed by Load.
func Open(ctx context.Context, bs kv.ByteStore, opts ...Option) *Store {
	s := New(bs, opts...)
	s.Load(ctx)
	return s
}

// Key returns the key the snapshot is persisted under.
func (s *Store) Key() string { return s.key }

// AddObserver registers o for subsequent mutations.
func (s *Store) AddObserver(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Load reads the persisted blob and replaces the in-memory snapshot with its
// well-formed records. Missing, unreadable or corrupt data yields an empty
// snapshot; Load never fails.
func (s *Store) Load(ctx context.Context) []core.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records, s.frags = nil, nil
	s.ids = map[string]struct{}{}
	defer func() { s.metrics.SnapshotSize(len(s.records)) }()

	blob, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.lastErr = &PersistenceError{Op: log.OpLoad, Key: s.key, Err: err}
		s.logger.WarnContext(ctx, "Failed to read persisted records, starting empty",
			log.FieldKey, s.key, log.FieldOperation, log.OpLoad, log.FieldError, err)
		return []core.Record{}
	}
	s.lastErr = nil
	if !ok {
		return []core.Record{}
	}

	items, err := splitBlob(blob)
	if err != nil {
		s.logger.ErrorContext(ctx, "Persisted records are corrupt, starting empty",
			log.FieldKey, s.key, log.FieldBytes, len(blob), log.FieldError, err)
		if s.quarantine {
			s.quarantineCorrupt(ctx, blob)
		}
		return []core.Record{}
	}

	var rejected []json.RawMessage
	for _, raw := range items {
		rec, err := decodeRecord(raw)
		if err == nil {
			if _, dup := s.ids[rec.ID]; dup {
				err = malformed("duplicate id %s", rec.ID)
			}
		}
		var frag []byte
		if err == nil {
			frag, err = encodeRecord(rec)
		}
		if err != nil {
			s.logger.DebugContext(ctx, "Dropping malformed record", log.FieldError, err)
			rejected = append(rejected, raw)
			continue
		}
		s.records = append(s.records, rec)
		s.frags = append(s.frags, frag)
		s.ids[rec.ID] = struct{}{}
	}

	if len(rejected) > 0 {
		s.metrics.RecordsDroppedN(len(rejected))
		s.logger.WarnContext(ctx, "Dropped malformed records on load",
			log.FieldKey, s.key, log.FieldDropped, len(rejected), log.FieldCount, len(s.records))
		// Once the dropped entries are safe in the quarantine the cleaned
		// snapshot is written back, so they are not quarantined twice.
		if s.quarantine && s.quarantineRejected(ctx, rejected) {
			s.persistLocked(ctx, log.OpLoad)
		}
	}
	return s.snapshotLocked()
}

// Append validates c, stamps it with a fresh id and the current time, adds it
// to the end of the snapshot and persists. The only error is an invalid
// candidate; persistence failures are reported through Health.
func (s *Store) Append(ctx context.Context, c core.Candidate) (core.Record, error) {
	if err := c.Validate(); err != nil {
		return core.Record{}, err
	}

	s.mu.Lock()
	rec := core.Record{
		ID:        s.uniqueIDLocked(),
		Amount:    c.Amount,
		Category:  c.Category,
		Timestamp: s.stampLocked(),
		Note:      c.Note,
	}
	frag, err := encodeRecord(rec)
	if err != nil {
		s.mu.Unlock()
		return core.Record{}, err
	}
	s.records = append(s.records, rec)
	s.frags = append(s.frags, frag)
	s.ids[rec.ID] = struct{}{}
	s.persistLocked(ctx, log.OpAppend)
	s.metrics.RecordAppended()
	s.metrics.SnapshotSize(len(s.records))
	observers := s.observers
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Record appended",
		log.FieldRecordID, rec.ID, log.FieldAmount, rec.Amount.String(), log.FieldCategory, string(rec.Category))
	notify(ctx, observers, Event{Kind: EventCreated, Record: rec, Count: 1, At: rec.Timestamp})
	return rec, nil
}

// Remove deletes the record with the given id. Removing an unknown id is a
// no-op and returns false.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := -1
	if _, ok := s.ids[id]; ok {
		for i := range s.records {
			if s.records[i].ID == id {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	rec := s.records[idx]
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.frags = append(s.frags[:idx], s.frags[idx+1:]...)
	delete(s.ids, id)
	s.persistLocked(ctx, log.OpRemove)
	s.metrics.RecordRemoved()
	s.metrics.SnapshotSize(len(s.records))
	observers := s.observers
	s.mu.Unlock()

	notify(ctx, observers, Event{Kind: EventRemoved, Record: rec, Count: 1, At: s.now().UTC()})
	return true
}

// Clear empties the snapshot and deletes the persisted key.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	n := len(s.records)
	s.records, s.frags = nil, nil
	s.ids = map[string]struct{}{}

	start := time.Now()
	if err := s.kv.Delete(context.WithoutCancel(ctx), s.key); err != nil {
		s.failedLocked(ctx, log.OpClear, err)
	} else {
		s.lastErr = nil
	}
	s.metrics.PersistObserved(log.OpClear, time.Since(start))
	s.metrics.RecordsClearedN(n)
	s.metrics.SnapshotSize(0)
	observers := s.observers
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Records cleared", log.FieldCount, n)
	notify(ctx, observers, Event{Kind: EventCleared, Count: n, At: s.now().UTC()})
}

// Snapshot returns a copy of the records in insertion order.
func (s *Store) Snapshot() []core.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (core.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.ids[id]; !ok {
		return core.Record{}, false
	}
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return core.Record{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Health returns the last persistence error, or nil once a write succeeds.
func (s *Store) Health() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) snapshotLocked() []core.Record {
	out := make([]core.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) uniqueIDLocked() string {
	for {
		id := s.newID()
		if _, taken := s.ids[id]; !taken && id != "" {
			return id
		}
	}
}

// stampLocked returns the current UTC time at millisecond precision, never
// earlier than the previous stamp.
func (s *Store) stampLocked() time.Time {
	ts := s.now().UTC().Truncate(time.Millisecond)
	if ts.Before(s.lastTS) {
		ts = s.lastTS
	}
	s.lastTS = ts
	return ts
}

func (s *Store) persistLocked(ctx context.Context, op string) {
	blob := joinFragments(s.frags)
	start := time.Now()
	// The snapshot already changed; a caller going away must not skip the write.
	err := s.kv.Set(context.WithoutCancel(ctx), s.key, blob)
	s.metrics.PersistObserved(op, time.Since(start))
	if err != nil {
		s.failedLocked(ctx, op, err)
		return
	}
	s.lastErr = nil
}

func (s *Store) failedLocked(ctx context.Context, op string, err error) {
	s.lastErr = &PersistenceError{Op: op, Key: s.key, Err: err}
	s.metrics.PersistFailed(op)
	msg := "Failed to persist records, change kept in memory only"
	if errors.Is(err, kv.ErrQuotaExceeded) {
		msg = "Byte store quota exceeded, change kept in memory only"
	}
	s.logger.ErrorContext(ctx, msg,
		log.FieldKey, s.key, log.FieldOperation, op, log.FieldCount, len(s.records), log.FieldError, err)
}

func (s *Store) quarantineCorrupt(ctx context.Context, blob []byte) {
	if err := s.kv.Set(ctx, s.key+corruptSuffix, blob); err != nil {
		s.logger.WarnContext(ctx, "Failed to quarantine corrupt blob",
			log.FieldKey, s.key+corruptSuffix, log.FieldError, err)
	}
}

// quarantineRejected appends the dropped elements to the rejected array,
// keeping what earlier loads put there.
func (s *Store) quarantineRejected(ctx context.Context, rejected []json.RawMessage) bool {
	key := s.key + rejectedSuffix
	existing, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read quarantine", log.FieldKey, key, log.FieldError, err)
		return false
	}
	var all []json.RawMessage
	if ok {
		if prev, err := splitBlob(existing); err == nil {
			all = prev
		}
	}
	all = append(all, rejected...)
	frags := make([][]byte, len(all))
	for i, raw := range all {
		frags[i] = raw
	}
	if err := s.kv.Set(ctx, key, joinFragments(frags)); err != nil {
		s.logger.WarnContext(ctx, "Failed to quarantine rejected records", log.FieldKey, key, log.FieldError, err)
		return false
	}
	return true
}
