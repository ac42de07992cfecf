// Package breaker guards a remote ByteStore with a circuit breaker so a dead
// backend fails fast with kv.ErrUnavailable instead of stalling every write.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chitieu/internal/kv"
	"chitieu/internal/log"

	"github.com/sony/gobreaker"
)

var _ kv.ByteStore = (*Store)(nil)

// Config holds the breaker thresholds.
type Config struct {
	Name             string
	MaxRequests      uint32        // allowed through while half-open
	Interval         time.Duration // closed-state counter reset period
	Timeout          time.Duration // open duration before probing
	FailureThreshold float64       // failure ratio that trips the breaker
	MinRequests      uint32        // requests needed before the ratio counts
}

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

type Store struct {
	next kv.ByteStore
	cb   *gobreaker.CircuitBreaker
}

// Wrap returns next guarded by a breaker configured with cfg.
func Wrap(next kv.ByteStore, cfg Config, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				log.FieldBackend, name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations say nothing about backend health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Store{next: next, cb: cb}
}

// State exposes the breaker state for health reporting.
func (s *Store) State() gobreaker.State {
	return s.cb.State()
}

// Close closes the wrapped store when it holds resources.
func (s *Store) Close() error {
	if c, ok := s.next.(kv.Closer); ok {
		return c.Close()
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return err
}

type getResult struct {
	value []byte
	ok    bool
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		v, ok, err := s.next.Get(ctx, key)
		return getResult{value: v, ok: ok}, err
	})
	if err != nil {
		return nil, false, mapErr(err)
	}
	r := res.(getResult)
	return r.value, r.ok, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Set(ctx, key, value)
	})
	return mapErr(err)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Delete(ctx, key)
	})
	return mapErr(err)
}
