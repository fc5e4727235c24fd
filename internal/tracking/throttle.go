package tracking

import (
	"context"
	"math"
	"sync"
	"time"
)

// Throttle enforces the minimum spacing between accepted location reports
// from the same technician. Every accepted report re-arms the window.
type Throttle interface {
	// Reserve returns ok=true when the technician may report now, otherwise
	// the remaining wait in whole seconds, rounded up.
	Reserve(ctx context.Context, technicianID int64) (retryAfterSeconds int64, ok bool, err error)
}

// MemoryThrottle is an in-process throttle table keyed by technician id. The
// read-compare-write per key runs under the table lock so concurrent reports
// for the same technician cannot both pass.
type MemoryThrottle struct {
	window time.Duration
	now    func() time.Time

	mu           sync.Mutex
	lastAccepted map[int64]time.Time
}

func NewMemoryThrottle(window time.Duration) *MemoryThrottle {
	return &MemoryThrottle{
		window:       window,
		now:          time.Now,
		lastAccepted: map[int64]time.Time{},
	}
}

// NewMemoryThrottleWithClock injects the clock, for tests.
func NewMemoryThrottleWithClock(window time.Duration, now func() time.Time) *MemoryThrottle {
	throttle := NewMemoryThrottle(window)
	throttle.now = now
	return throttle
}

func (t *MemoryThrottle) Reserve(_ context.Context, technicianID int64) (int64, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	last, seen := t.lastAccepted[technicianID]
	if seen {
		elapsed := now.Sub(last)
		if elapsed < t.window {
			remaining := int64(math.Ceil((t.window - elapsed).Seconds()))
			if remaining < 1 {
				remaining = 1
			}

			return remaining, false, nil
		}
	}

	t.lastAccepted[technicianID] = now
	return 0, true, nil
}
