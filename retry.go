package throughcache

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// backendCall bounds and retries a single backend operation.
type backendCall struct {
	timeout time.Duration // <= 0: none
	retries uint
	log     Logger
}

func (bc backendCall) attempt(ctx context.Context) (context.Context, context.CancelFunc) {
	if bc.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, bc.timeout)
}

// doBackend runs fn with the per-call timeout, retrying with exponential
// backoff when configured, and wraps the final error in *BackendError.
func doBackend[T any](ctx context.Context, bc backendCall, op, key string, fn func(context.Context) (T, error)) (T, error) {
	once := func() (T, error) {
		actx, cancel := bc.attempt(ctx)
		defer cancel()
		return fn(actx)
	}

	var (
		v   T
		err error
	)
	if bc.retries == 0 {
		v, err = once()
	} else {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 20 * time.Millisecond
		b.MaxInterval = 500 * time.Millisecond
		v, err = backoff.Retry(ctx, once,
			backoff.WithBackOff(b),
			backoff.WithMaxTries(bc.retries+1),
			backoff.WithNotify(func(err error, next time.Duration) {
				bc.log.Debug("backend call failed; retrying", Fields{"op": op, "key": key, "in": next, "err": err})
			}),
		)
	}
	if err != nil {
		return v, &BackendError{Op: op, Key: key, Err: err}
	}
	return v, nil
}
