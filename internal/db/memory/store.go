// Package memory provides an in-process implementation of the key-value and
// counter contracts. It backs tests and the degraded mode entered when the
// shared store is unreachable. Counters here are process-local: there is no
// cross-instance guarantee, and callers must treat this as the documented
// weaker mode, not as the distributed contract.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hirestack/candidex/internal/db"
)

// Compile-time checks against the narrow contracts.
var (
	_ db.KVStore      = (*Store)(nil)
	_ db.CounterStore = (*Store)(nil)
	_ db.Pinger       = (*Store)(nil)
)

type kvEntry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

type counterWindow struct {
	count   int64
	resetAt time.Time
}

// Store is a mutex-guarded map store with periodic expiry sweeps.
type Store struct {
	mu       sync.Mutex
	kv       map[string]kvEntry
	counters map[string]counterWindow

	now  func() time.Time
	done chan struct{}
}

// NewStore creates an in-process store. sweepInterval controls how often
// expired entries are evicted; 0 disables the background sweeper (expired
// entries are still ignored on read).
func NewStore(sweepInterval time.Duration) *Store {
	s := &Store{
		kv:       make(map[string]kvEntry),
		counters: make(map[string]counterWindow),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close stops the background sweeper.
func (s *Store) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.kv[key]
	if !ok || s.expired(e) {
		return nil, db.ErrKeyNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kv[key] = kvEntry{value: append([]byte(nil), value...), expiresAt: s.deadline(ttl)}
	return nil
}

// SetNX stores a value only if the key is absent or expired.
func (s *Store) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.kv[key]; ok && !s.expired(e) {
		return false, nil
	}
	s.kv[key] = kvEntry{value: append([]byte(nil), value...), expiresAt: s.deadline(ttl)}
	return true, nil
}

// Del removes a key.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.kv, key)
	return nil
}

// CheckAndIncr bumps the window counter for key under the store mutex.
// The count never exceeds limit+1; a fresh window starts on first increment.
func (s *Store) CheckAndIncr(
	_ context.Context, key string, limit int64, window time.Duration,
) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.counters[key]
	if !ok || !now.Before(w.resetAt) {
		w = counterWindow{count: 0, resetAt: now.Add(window)}
	}
	if w.count <= limit {
		w.count++
	}
	s.counters[key] = w
	return w.count, w.resetAt.Sub(now), nil
}

func (s *Store) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *Store) expired(e kvEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

func (s *Store) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.kv {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.kv, k)
		}
	}
	for k, w := range s.counters {
		if !now.Before(w.resetAt) {
			delete(s.counters, k)
		}
	}
}
