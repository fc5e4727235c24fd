package domain

import (
	"context"
	"time"
)

// DistributedLock serializes the check-then-mutate sequence per task id.
// Locks on different keys are fully independent.
type DistributedLock interface {
	Ping(ctx context.Context) (err error)
	Lock(lockKey string, lockTimeDuration time.Duration) (result bool, err error)
	Unlock(lockKey string) (err error)
	Close() error
}
