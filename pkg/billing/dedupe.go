package billing

import (
	"context"
	"sync"
	"time"
)

// DefaultDedupeTTL bounds how long a processed event ID is remembered.
// The processor retries failed deliveries for up to three days.
const DefaultDedupeTTL = 72 * time.Hour

// EventDeduper remembers which webhook event IDs are being or have been
// processed. pkg/redis.Claims satisfies it for multi-replica deployments.
type EventDeduper interface {
	// Claim returns false if id was already claimed and not released.
	Claim(ctx context.Context, id string) (bool, error)
	// Release forgets id so a redelivery is processed again.
	Release(ctx context.Context, id string) error
}

// MemoryDeduper is a process-local EventDeduper.
type MemoryDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time // id -> expiry
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &MemoryDeduper{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (d *MemoryDeduper) Claim(_ context.Context, id string) (bool, error) {
	if id == "" {
		return true, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false, nil
	}
	d.seen[id] = now.Add(d.ttl)

	// Sweep opportunistically so the map does not grow without bound.
	if len(d.seen)%256 == 0 {
		for k, exp := range d.seen {
			if !now.Before(exp) {
				delete(d.seen, k)
			}
		}
	}
	return true, nil
}

func (d *MemoryDeduper) Release(_ context.Context, id string) error {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
	return nil
}

type nopDeduper struct{}

func (nopDeduper) Claim(context.Context, string) (bool, error) { return true, nil }
func (nopDeduper) Release(context.Context, string) error       { return nil }
