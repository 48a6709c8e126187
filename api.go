package throughcache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/throughcache/backend"
	"github.com/unkn0wn-root/throughcache/codec"
	"github.com/unkn0wn-root/throughcache/genstore"
)

// Cache is the read-through cache for responses of type V.
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Execute returns the cached response for req, or calls req's upstream,
	// stores the result and returns it. Concurrent misses for one key are
	// deduplicated through the backend lock according to BusyPolicy.
	Execute(ctx context.Context, req Request[V]) (V, error)

	// Peek looks req up without calling upstream.
	Peek(ctx context.Context, req Cacheable) (v V, ok bool, err error)
	// Put stores a known value for req (write-through).
	Put(ctx context.Context, req Cacheable, value V) error
	// Invalidate drops req's entry and bumps its generation so that a
	// population already in flight cannot store a stale value.
	Invalidate(ctx context.Context, req Cacheable) error
}

// Options tune the cache. Namespace, Backend and Codec are required; others
// have defaults.
type Options[V any] struct {
	// Required
	Namespace string // isolates keys of this cache, e.g. "ping", "app:prod:user"
	Backend   backend.Backend
	Codec     codec.Codec[V]

	Logger Logger       // nil => NopLogger
	Hooks  Hooks        // nil => NopHooks
	Tracer trace.Tracer // nil => no-op tracer

	DefaultTTL time.Duration // 0 => 10m
	MaxTTL     time.Duration // 0 => no clamp

	LockTimeout     time.Duration // lock expiry passed to Backend.Lock; 0 => 30s
	WaitTimeout     time.Duration // BusyWait deadline; 0 => LockTimeout
	PollInterval    time.Duration // first BusyWait poll delay; 0 => 25ms
	MaxPollInterval time.Duration // BusyWait poll delay cap; 0 => 500ms
	BusyPolicy      BusyPolicy    // default BusyWait
	FailurePolicy   FailurePolicy // default FallbackUpstream

	BackendTimeout  time.Duration // per backend call; 0 => 2s, < 0 => none
	BackendRetries  uint          // extra attempts on backend errors; 0 => none
	UpstreamTimeout time.Duration // 0 => caller's context only

	GenStore        genstore.GenStore // nil => LocalGenStore (in-process)
	CleanupInterval time.Duration     // LocalGenStore sweep; 0 => 1h
	GenRetention    time.Duration     // LocalGenStore retention; 0 => 30d

	Disabled bool // Execute calls upstream directly; Peek misses
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
