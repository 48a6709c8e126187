package throughcache

import "time"

const (
	defaultTTL          = 10 * time.Minute
	defaultLockTimeout  = 30 * time.Second
	defaultPoll         = 25 * time.Millisecond
	defaultMaxPoll      = 500 * time.Millisecond
	defaultBackendCall  = 2 * time.Second
	defaultGenRetention = 30 * 24 * time.Hour
	defaultSweep        = time.Hour
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
