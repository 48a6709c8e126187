package throughcache

import (
	"context"
	"time"
)

// Cacheable is implemented by request values that can be cached.
// CacheKey must be deterministic and distinct for semantically distinct
// requests, e.g. "Ping::42". Use Key or HashKey to build it.
type Cacheable interface {
	CacheKey() (string, error)
}

// Policy is the per-request cache policy.
type Policy struct {
	// TTL overrides Options.DefaultTTL when > 0 (still clamped to MaxTTL).
	TTL time.Duration
	// Bypass skips the cache entirely: no lookup, no lock, no store.
	Bypass bool
}

// PolicyProvider may be implemented by a Cacheable to control its own policy.
type PolicyProvider interface {
	CachePolicy() Policy
}

// Upstream produces the response for a request: the expensive call that the
// cache fronts. Implementations typically forward the request to a service,
// a database or an actor mailbox and wait for the reply.
type Upstream[R any, V any] interface {
	Handle(ctx context.Context, req R) (V, error)
}

// UpstreamFunc adapts a function to Upstream.
type UpstreamFunc[R any, V any] func(ctx context.Context, req R) (V, error)

func (f UpstreamFunc[R, V]) Handle(ctx context.Context, req R) (V, error) { return f(ctx, req) }

// Request is a cacheable request bound to the upstream that can answer it.
type Request[V any] interface {
	Cacheable
	Invoke(ctx context.Context) (V, error)
}

// Bind ties req to up:
//
//	res, err := cache.Execute(ctx, throughcache.Bind[Ping, Pong](Ping{ID: 42}, upstream))
func Bind[R Cacheable, V any](req R, up Upstream[R, V]) Request[V] {
	return bound[R, V]{req: req, up: up}
}

type bound[R Cacheable, V any] struct {
	req R
	up  Upstream[R, V]
}

func (b bound[R, V]) CacheKey() (string, error)             { return b.req.CacheKey() }
func (b bound[R, V]) Invoke(ctx context.Context) (V, error) { return b.up.Handle(ctx, b.req) }

func (b bound[R, V]) CachePolicy() Policy {
	if p, ok := any(b.req).(PolicyProvider); ok {
		return p.CachePolicy()
	}
	return Policy{}
}

func policyOf(c Cacheable) Policy {
	if p, ok := c.(PolicyProvider); ok {
		return p.CachePolicy()
	}
	return Policy{}
}
