// Package backend defines the storage capability consumed by throughcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key. If a store performs
// internal transforms (e.g., a deadline header, compression), they MUST be fully
// reversed before returning from Get.
//
// Important: the keyspaces "entry:<ns>:" and "lock:<ns>:" are owned by throughcache.
// External code MUST NOT write values under these prefixes.
package backend

import (
	"context"
	"time"
)

// LockStatus is the outcome of a Lock attempt.
type LockStatus int

const (
	// LockAcquired means the caller now holds the lock until it deletes the
	// lock key or the timeout elapses.
	LockAcquired LockStatus = iota
	// LockBusy means another caller holds the lock. Not an error.
	LockBusy
	// LockFailed means the backend could not decide. Callers treat it like a
	// backend fault.
	LockFailed
)

func (s LockStatus) String() string {
	switch s {
	case LockAcquired:
		return "acquired"
	case LockBusy:
		return "busy"
	case LockFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DeleteStatus is the outcome of a Delete.
type DeleteStatus int

const (
	Deleted DeleteStatus = iota
	Missing
)

func (s DeleteStatus) String() string {
	if s == Deleted {
		return "deleted"
	}
	return "missing"
}

// Backend is a byte store with TTLs and a per-key mutex.
// Must be safe for concurrent use.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL; ttl <= 0 means no expiry.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Delete removes a key. Deleting an absent key returns Missing, not an error.
	// Deleting a held lock key releases the lock.
	Delete(ctx context.Context, key string) (DeleteStatus, error)

	// Lock tries to take a mutex scoped to key. The lock expires on its own
	// after timeout so a crashed holder cannot wedge the key. Lock never blocks
	// waiting for the current holder.
	Lock(ctx context.Context, key string, timeout time.Duration) (LockStatus, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
