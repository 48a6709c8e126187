package throughcache

// BusyPolicy decides what a caller does when another caller holds the
// population lock for the same key.
type BusyPolicy int

const (
	// BusyWait polls the backend until the holder stores the value, the lock
	// frees up (the caller then tries to populate itself), or WaitTimeout
	// elapses (the caller then calls upstream directly without storing).
	BusyWait BusyPolicy = iota
	// BusyBypass calls upstream directly without waiting and without storing.
	BusyBypass
	// BusyFailFast returns ErrBusy.
	BusyFailFast
)

func (p BusyPolicy) String() string {
	switch p {
	case BusyWait:
		return "wait"
	case BusyBypass:
		return "bypass"
	case BusyFailFast:
		return "fail_fast"
	default:
		return "unknown"
	}
}

// FailurePolicy decides what Execute does when the backend errors on lookup
// or lock.
type FailurePolicy int

const (
	// FallbackUpstream calls upstream directly and skips the store.
	FallbackUpstream FailurePolicy = iota
	// FailRequest returns the *BackendError.
	FailRequest
)

func (p FailurePolicy) String() string {
	switch p {
	case FallbackUpstream:
		return "fallback_upstream"
	case FailRequest:
		return "fail_request"
	default:
		return "unknown"
	}
}
