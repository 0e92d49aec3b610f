package gate

import (
	"sync"
	"time"
)

// BanList is a concurrent-safe set of temporarily banned client identities.
// Membership expires per entry; expired entries count as absent and need no
// explicit unban.
type BanList struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	sweepInterval time.Duration
	done          chan struct{}

	now func() time.Time
}

// NewBanList creates a ban list and starts its background sweep. Call Stop
// when done.
func NewBanList(sweepInterval time.Duration) *BanList {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	b := &BanList{
		entries:       make(map[string]time.Time),
		sweepInterval: sweepInterval,
		done:          make(chan struct{}),
		now:           time.Now,
	}

	go b.sweep()

	return b
}

// Ban inserts or refreshes an entry for key expiring after duration.
func (b *BanList) Ban(key string, duration time.Duration) {
	until := b.now().Add(duration)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = until
}

// IsBanned reports whether a live ban exists for key.
func (b *BanList) IsBanned(key string) bool {
	now := b.now()

	b.mu.RLock()
	defer b.mu.RUnlock()

	until, ok := b.entries[key]
	return ok && now.Before(until)
}

// Len returns the number of physically present entries (for testing).
func (b *BanList) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Stop stops the background sweep goroutine.
func (b *BanList) Stop() {
	close(b.done)
}

func (b *BanList) sweep() {
	ticker := time.NewTicker(b.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.sweepExpired()
		}
	}
}

func (b *BanList) sweepExpired() {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	for k, until := range b.entries {
		if !now.Before(until) {
			delete(b.entries, k)
		}
	}
}
