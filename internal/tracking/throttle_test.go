package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_memory_throttle(t *testing.T) {
	t.Run("it should accept an unseen technician", func(t *testing.T) {
		throttle := NewMemoryThrottle(30 * time.Second)

		_, ok, err := throttle.Reserve(context.Background(), 2)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("it should report the remaining whole seconds rounded up", func(t *testing.T) {
		clock := &testClock{at: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
		throttle := NewMemoryThrottleWithClock(30*time.Second, clock.now)

		_, ok, err := throttle.Reserve(context.Background(), 2)
		assert.NoError(t, err)
		assert.True(t, ok)

		clock.advance(4*time.Second + 500*time.Millisecond)
		retryAfter, ok, err := throttle.Reserve(context.Background(), 2)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(26), retryAfter)
	})

	t.Run("it should report at least one second", func(t *testing.T) {
		clock := &testClock{at: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
		throttle := NewMemoryThrottleWithClock(30*time.Second, clock.now)

		_, _, err := throttle.Reserve(context.Background(), 2)
		assert.NoError(t, err)

		clock.advance(29*time.Second + 900*time.Millisecond)
		retryAfter, ok, err := throttle.Reserve(context.Background(), 2)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(1), retryAfter)
	})

	t.Run("it should re-arm the window on every accepted report", func(t *testing.T) {
		clock := &testClock{at: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
		throttle := NewMemoryThrottleWithClock(30*time.Second, clock.now)

		_, ok, err := throttle.Reserve(context.Background(), 2)
		assert.NoError(t, err)
		assert.True(t, ok)

		clock.advance(30 * time.Second)
		_, ok, err = throttle.Reserve(context.Background(), 2)
		assert.NoError(t, err)
		assert.True(t, ok)

		// Window restarted at the second acceptance, not the first.
		clock.advance(20 * time.Second)
		retryAfter, ok, err := throttle.Reserve(context.Background(), 2)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(10), retryAfter)
	})

	t.Run("it should keep a rejected attempt from re-arming the window", func(t *testing.T) {
		clock := &testClock{at: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
		throttle := NewMemoryThrottleWithClock(30*time.Second, clock.now)

		_, _, err := throttle.Reserve(context.Background(), 2)
		assert.NoError(t, err)

		clock.advance(20 * time.Second)
		_, ok, err := throttle.Reserve(context.Background(), 2)
		assert.NoError(t, err)
		assert.False(t, ok)

		clock.advance(10 * time.Second)
		_, ok, err = throttle.Reserve(context.Background(), 2)
		assert.NoError(t, err)
		assert.True(t, ok)
	})
}
