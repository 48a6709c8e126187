package throughcache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths. Keys are storage keys
// ("entry:<ns>:<key>" or "lock:<ns>:<key>").
type Hooks interface {
	// A lookup finished; hit=false covers misses and self-healed entries.
	Lookup(storageKey string, hit bool)

	// An entry was deleted on read.
	// reason ∈ {"corrupt", "gen_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// The backend failed an operation (after retries).
	// op ∈ {"get", "set", "delete", "lock", "release"}
	BackendError(op, storageKey string, err error)

	// Another caller holds the population lock.
	LockBusy(storageKey string)

	// The population outlived LockTimeout; the lock was not deleted since
	// another caller may hold it by now.
	LockExpired(storageKey string)

	// Execute called upstream without the cache.
	// reason ∈ {"backend_error", "lock_error", "busy_bypass", "wait_timeout"}
	Fallback(storageKey, reason string)

	// Upstream returned (err may be nil).
	UpstreamCall(storageKey string, took time.Duration, err error)

	// A computed value could not be stored (encode or backend failure).
	StoreFailed(storageKey string, err error)

	// Backend returned ok=false on Set (backpressure/eviction).
	StoreRejected(storageKey string)

	// GenStore errors.
	GenSnapshotError(storageKey string, err error)
	GenBumpError(storageKey string, err error)

	// Both gen bump and delete failed during Invalidate (likely backend outage).
	InvalidateOutage(key string, bumpErr, delErr error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Lookup(string, bool)                       {}
func (NopHooks) SelfHeal(string, string)                   {}
func (NopHooks) BackendError(string, string, error)        {}
func (NopHooks) LockBusy(string)                           {}
func (NopHooks) LockExpired(string)                        {}
func (NopHooks) Fallback(string, string)                   {}
func (NopHooks) UpstreamCall(string, time.Duration, error) {}
func (NopHooks) StoreFailed(string, error)                 {}
func (NopHooks) StoreRejected(string)                      {}
func (NopHooks) GenSnapshotError(string, error)            {}
func (NopHooks) GenBumpError(string, error)                {}
func (NopHooks) InvalidateOutage(string, error, error)     {}
