package throughcache

import (
	"errors"
	"fmt"
)

var (
	ErrKeyDerivation = errors.New("throughcache: key derivation failed")
	ErrBackend       = errors.New("throughcache: backend failure")
	ErrUpstream      = errors.New("throughcache: upstream failure")
	ErrSerialization = errors.New("throughcache: serialization failed")

	// ErrBusy is returned under BusyFailFast when another caller is
	// populating the same key.
	ErrBusy = errors.New("throughcache: key is being populated")
	// ErrLockFailed is wrapped in a BackendError when a backend answers a
	// lock attempt with LockFailed.
	ErrLockFailed = errors.New("throughcache: lock failed")

	ErrInvalidKey = errors.New("throughcache: key is invalid")
	ErrKeyTooLong = errors.New("throughcache: key exceeds max length")
)

// KeyDerivationError means a request could not produce a usable cache key.
// Never retried.
type KeyDerivationError struct {
	Err error
}

func (e *KeyDerivationError) Error() string {
	return fmt.Sprintf("throughcache: derive key: %v", e.Err)
}

func (e *KeyDerivationError) Unwrap() []error { return []error{ErrKeyDerivation, e.Err} }

// BackendError is a transport or storage fault on get/set/delete/lock.
type BackendError struct {
	Op  string
	Key string // storage key
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("throughcache: backend %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() []error { return []error{ErrBackend, e.Err} }

// UpstreamError wraps the failure of the cached call itself. It is always the
// terminal result of Execute; the lock has been released when it is returned.
type UpstreamError struct {
	Key string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("throughcache: upstream %q: %v", e.Key, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// SerializationError means a value could not be encoded for storage. Execute
// only reports it to logs and hooks; Put returns it.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("throughcache: encode %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() []error { return []error{ErrSerialization, e.Err} }

func busyError(key string) error {
	return fmt.Errorf("throughcache: %q: %w", key, ErrBusy)
}

type InvalidateError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
