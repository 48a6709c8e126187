package throughcache

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/unkn0wn-root/throughcache/backend"
)

// acquire tries the population lock once. A LockFailed answer is reported as
// a *BackendError wrapping ErrLockFailed.
func (c *cache[V]) acquire(ctx context.Context, lockKey string) (backend.LockStatus, error) {
	st, err := doBackend(ctx, c.bc, "lock", lockKey, func(ctx context.Context) (backend.LockStatus, error) {
		return c.backend.Lock(ctx, lockKey, c.lockTimeout)
	})
	if err != nil {
		c.hooks.BackendError("lock", lockKey, err)
		return backend.LockFailed, err
	}
	if st != backend.LockAcquired && st != backend.LockBusy {
		err := &BackendError{Op: "lock", Key: lockKey, Err: ErrLockFailed}
		c.hooks.BackendError("lock", lockKey, err)
		return backend.LockFailed, err
	}
	return st, nil
}

// release deletes the lock key taken at leaseStart. It runs detached from
// the caller's context so an abandoned request still frees the key; if the
// backend is unreachable the lock expires after LockTimeout.
//
// Once the lease has outlived LockTimeout the backend may have handed the key
// to another caller, so the key is left alone.
func (c *cache[V]) release(ctx context.Context, lockKey string, leaseStart time.Time) {
	if held := time.Since(leaseStart); c.lockTimeout > 0 && held >= c.lockTimeout {
		c.hooks.LockExpired(lockKey)
		c.log.Debug("lock lease expired before release; not deleting", Fields{"key": lockKey, "held": held, "lockTimeout": c.lockTimeout})
		return
	}

	rctx, cancel := c.detached(ctx)
	defer cancel()

	_, err := doBackend(rctx, c.bc, "delete", lockKey, func(ctx context.Context) (backend.DeleteStatus, error) {
		return c.backend.Delete(ctx, lockKey)
	})
	if err != nil {
		c.hooks.BackendError("release", lockKey, err)
		c.log.Warn("lock release failed; lock will expire", Fields{"key": lockKey, "expiresIn": c.lockTimeout, "err": err})
	}
}

// detached returns a context that survives caller cancellation but is still
// bounded.
func (c *cache[V]) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.detachedTimeout)
}

// waiter paces BusyWait polling: exponential delays from PollInterval up to
// MaxPollInterval, never past the WaitTimeout deadline.
type waiter struct {
	b        *backoff.ExponentialBackOff
	deadline time.Time
}

func (c *cache[V]) newWaiter() *waiter {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.pollInterval
	b.MaxInterval = c.maxPollInterval
	b.Multiplier = 1.5
	b.RandomizationFactor = 0.2
	b.Reset()
	return &waiter{b: b, deadline: time.Now().Add(c.waitTimeout)}
}

// wait sleeps until the next poll. It reports timedOut once the deadline has
// passed and returns the context error if the caller gives up first.
func (w *waiter) wait(ctx context.Context) (timedOut bool, err error) {
	remaining := time.Until(w.deadline)
	if remaining <= 0 {
		return true, nil
	}
	d := w.b.NextBackOff()
	if d < 0 || d > remaining {
		d = remaining
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-t.C:
		return false, nil
	}
}
