package blacklist

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = 15 * time.Minute

// Blacklist keeps revoked session tokens until their natural expiry.
// The list is authoritative: a token found here is invalid no matter what
// its signature says. Entries clean themselves up two ways: lazily on
// lookup and by the periodic sweep started with Run.
type Blacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time // token -> honored until

	sweepInterval time.Duration

	// injectable for tests
	now func() time.Time
}

type Option func(*Blacklist)

// WithSweepInterval overrides how often the background sweep runs
func WithSweepInterval(d time.Duration) Option {
	return func(b *Blacklist) { b.sweepInterval = d }
}

// WithNowFunc overrides the time source
func WithNowFunc(now func() time.Time) Option {
	return func(b *Blacklist) { b.now = now }
}

func New(opts ...Option) *Blacklist {
	b := &Blacklist{
		entries:       make(map[string]time.Time),
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Revoke marks the token invalid for ttl
// ttl should equal the token's remaining lifetime: there is no point
// remembering it past its natural expiry
func (b *Blacklist) Revoke(token string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[token] = b.now().Add(ttl)
}

// IsRevoked reports whether the token is on the list
// A stale entry is removed on the spot and reported as not revoked
func (b *Blacklist) IsRevoked(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	until, ok := b.entries[token]
	if !ok {
		return false
	}

	if !until.After(b.now()) {
		delete(b.entries, token)
		return false
	}

	return true
}

// Len returns the number of stored entries, stale ones included
func (b *Blacklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Run sweeps expired entries on a fixed interval until ctx is cancelled.
// Meant to be started in its own goroutine by the app, next to the HTTP
// server; request handling never waits on it beyond plain lock contention.
func (b *Blacklist) Run(ctx context.Context) {
	ticker := time.NewTicker(b.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.sweep()
		}
	}
}

func (b *Blacklist) sweep() {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	for token, until := range b.entries {
		if !until.After(now) {
			delete(b.entries, token)
		}
	}
}
