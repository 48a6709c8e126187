// Package noop is a backend that stores nothing: every Get misses, every Set
// is accepted, Delete reports Missing and Lock always succeeds. Useful to run
// the cache wiring without a store, and as a stand-in in demos.
package noop

import (
	"context"
	"time"

	"github.com/unkn0wn-root/throughcache/backend"
)

// Backend optionally reports each call to Trace (op is "get", "set",
// "delete" or "lock").
type Backend struct {
	Trace func(op, key string)
}

var _ backend.Backend = Backend{}

func (b Backend) trace(op, key string) {
	if b.Trace != nil {
		b.Trace(op, key)
	}
}

func (b Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.trace("get", key)
	return nil, false, nil
}

func (b Backend) Set(_ context.Context, key string, _ []byte, _ time.Duration) (bool, error) {
	b.trace("set", key)
	return true, nil
}

func (b Backend) Delete(_ context.Context, key string) (backend.DeleteStatus, error) {
	b.trace("delete", key)
	return backend.Missing, nil
}

func (b Backend) Lock(_ context.Context, key string, _ time.Duration) (backend.LockStatus, error) {
	b.trace("lock", key)
	return backend.LockAcquired, nil
}

func (Backend) Close(context.Context) error { return nil }
