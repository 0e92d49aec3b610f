package gate

import (
	"sync"
	"time"
)

// counterEntry is a fixed-window counter. The window is anchored to the
// first touch of the key: a new window starts only when the entry is absent
// or expired, so a client straddling a window boundary can observe up to
// twice the nominal limit. That boundary burst is the documented policy,
// matching the behavior of the original write-expiring caches.
type counterEntry struct {
	count     int
	expiresAt time.Time
}

// ExpiringCounterStore is a concurrent-safe map of per-key fixed-window
// counters. Expired entries are treated as absent on every access; a
// low-priority janitor additionally sweeps them out so idle keys do not
// accumulate. The store is bounded: when an insert would exceed MaxEntries,
// the entry closest to expiry is evicted first, keeping memory bounded even
// when an attacker fans out across many source addresses.
type ExpiringCounterStore struct {
	mu      sync.Mutex
	entries map[string]*counterEntry

	maxEntries    int
	sweepInterval time.Duration
	done          chan struct{}

	now func() time.Time
}

const (
	// DefaultMaxEntries bounds each store to the same entry budget the
	// original caches used.
	DefaultMaxEntries = 10_000

	defaultSweepInterval = time.Minute
)

// NewExpiringCounterStore creates a store bounded to maxEntries live
// counters and starts its background sweep. Call Stop when done.
func NewExpiringCounterStore(maxEntries int, sweepInterval time.Duration) *ExpiringCounterStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	s := &ExpiringCounterStore{
		entries:       make(map[string]*counterEntry),
		maxEntries:    maxEntries,
		sweepInterval: sweepInterval,
		done:          make(chan struct{}),
		now:           time.Now,
	}

	go s.sweep()

	return s
}

// IncrementAndGet atomically increments the counter for key and returns the
// new count. If no live entry exists a fresh window of length window is
// started with count 1. The expiry check and the increment happen under one
// lock, so concurrent callers on the same key can neither double-initialize
// the window nor lose an increment.
func (s *ExpiringCounterStore) IncrementAndGet(key string, window time.Duration) int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.After(e.expiresAt) {
		if !ok && len(s.entries) >= s.maxEntries {
			s.evictLocked(now)
		}
		s.entries[key] = &counterEntry{count: 1, expiresAt: now.Add(window)}
		return 1
	}

	e.count++
	return e.count
}

// Peek returns the live count for key without mutating it. Expired entries
// report as absent whether or not the janitor has swept them yet.
func (s *ExpiringCounterStore) Peek(key string) (int, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.After(e.expiresAt) {
		return 0, false
	}
	return e.count, true
}

// Invalidate removes the entry for key immediately, regardless of expiry.
func (s *ExpiringCounterStore) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len returns the number of physically present entries, including entries
// that expired but have not been swept (for testing/metrics).
func (s *ExpiringCounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop stops the background sweep goroutine.
func (s *ExpiringCounterStore) Stop() {
	close(s.done)
}

// evictLocked makes room for one insert. Expired entries go first; if none
// exist, the live entry closest to expiry is dropped. O(n), but it only
// runs when the store is at capacity, which already signals abuse.
func (s *ExpiringCounterStore) evictLocked(now time.Time) {
	var victim string
	var victimExpiry time.Time

	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			return
		}
		if victim == "" || e.expiresAt.Before(victimExpiry) {
			victim = k
			victimExpiry = e.expiresAt
		}
	}
	if victim != "" {
		delete(s.entries, victim)
	}
}

func (s *ExpiringCounterStore) sweep() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweepExpired()
		}
	}
}

// sweepExpired removes expired entries. The critical section is short and
// never blocks on anything but the map itself, so request-path operations
// are only briefly delayed.
func (s *ExpiringCounterStore) sweepExpired() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}
