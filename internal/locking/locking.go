package locking

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
)

const (
	lockTTL       = 10 * time.Second
	retryInterval = 50 * time.Millisecond
	maxRetries    = 40
)

var errLockHeld = errors.New("lock is held by another caller")

// TaskKey builds the lock key that serializes check-then-mutate sequences on
// one task id.
func TaskKey(taskID int64) string {
	return fmt.Sprintf("lock:task:%d", taskID)
}

// WithKey runs fn while holding the named lock, waiting briefly for a
// concurrent holder to release it. Locks on different keys never contend.
func WithKey(lock domain.DistributedLock, key string, fn func() error) error {
	acquire := func() error {
		isLocked, err := lock.Lock(key, lockTTL)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !isLocked {
			return errLockHeld
		}

		return nil
	}

	err := backoff.Retry(acquire, backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), maxRetries))
	if err != nil {
		return err
	}

	defer func() {
		if err := lock.Unlock(key); err != nil {
			slog.Error("Error while unlocking locked key", "lock_key", key, "error", err.Error())
		}
	}()

	return fn()
}
