package throughcache

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/unkn0wn-root/throughcache/backend"
	"github.com/unkn0wn-root/throughcache/codec"
	"github.com/unkn0wn-root/throughcache/genstore"
	"github.com/unkn0wn-root/throughcache/internal/wire"
)

type cache[V any] struct {
	ns      string
	backend backend.Backend
	codec   codec.Codec[V]
	gen     genstore.GenStore
	log     Logger
	hooks   Hooks
	tracer  trace.Tracer

	enabled bool

	defaultTTL time.Duration
	maxTTL     time.Duration

	lockTimeout     time.Duration
	waitTimeout     time.Duration
	pollInterval    time.Duration
	maxPollInterval time.Duration
	busy            BusyPolicy
	failure         FailurePolicy

	bc              backendCall
	detachedTimeout time.Duration
	upstreamTimeout time.Duration
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Backend == nil {
		return nil, errors.New("throughcache: backend is required")
	}
	if opts.Codec == nil {
		return nil, errors.New("throughcache: codec is required")
	}
	if opts.Namespace == "" {
		return nil, errors.New("throughcache: namespace is required")
	}

	c := &cache[V]{
		ns:      opts.Namespace,
		backend: opts.Backend,
		codec:   opts.Codec,
		enabled: !opts.Disabled,
		busy:    opts.BusyPolicy,
		failure: opts.FailurePolicy,
		maxTTL:  opts.MaxTTL,
	}

	c.log = opts.Logger
	if c.log == nil {
		c.log = NopLogger{}
	}
	c.hooks = opts.Hooks
	if c.hooks == nil {
		c.hooks = NopHooks{}
	}
	c.tracer = opts.Tracer
	if c.tracer == nil {
		c.tracer = tracenoop.NewTracerProvider().Tracer("throughcache")
	}

	// defaults
	c.defaultTTL = coalesce(opts.DefaultTTL, defaultTTL)
	c.lockTimeout = coalesce(opts.LockTimeout, defaultLockTimeout)
	c.waitTimeout = coalesce(opts.WaitTimeout, c.lockTimeout)
	c.pollInterval = coalesce(opts.PollInterval, defaultPoll)
	c.maxPollInterval = coalesce(opts.MaxPollInterval, defaultMaxPoll)
	if c.maxPollInterval < c.pollInterval {
		c.maxPollInterval = c.pollInterval
	}
	c.upstreamTimeout = opts.UpstreamTimeout

	c.bc = backendCall{
		timeout: coalesce(opts.BackendTimeout, defaultBackendCall),
		retries: opts.BackendRetries,
		log:     c.log,
	}
	// release and store after a cancelled request still need a bound
	c.detachedTimeout = c.bc.timeout
	if c.detachedTimeout <= 0 {
		c.detachedTimeout = c.lockTimeout
	}

	if opts.GenStore != nil {
		c.gen = opts.GenStore
	} else {
		c.gen = genstore.NewLocalGenStore(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
	}

	if c.upstreamTimeout > c.lockTimeout {
		c.log.Warn("upstream timeout exceeds lock timeout; locks may expire mid-population",
			Fields{"ns": c.ns, "upstreamTimeout": c.upstreamTimeout, "lockTimeout": c.lockTimeout})
	}
	return c, nil
}

func (c *cache[V]) Enabled() bool { return c.enabled }

func (c *cache[V]) Close(ctx context.Context) error {
	// gen store first (best effort)
	if c.gen != nil {
		_ = c.gen.Close(ctx)
	}
	return c.backend.Close(ctx)
}

func (c *cache[V]) Execute(ctx context.Context, req Request[V]) (V, error) {
	var zero V
	if req == nil {
		return zero, &KeyDerivationError{Err: errors.New("nil request")}
	}
	key, err := deriveKey(req)
	if err != nil {
		return zero, err
	}
	pol := policyOf(req)

	ctx, span := c.tracer.Start(ctx, "throughcache.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("throughcache.namespace", c.ns),
			attribute.String("throughcache.key", key),
		))
	v, outcome, err := c.execute(ctx, req, key, pol)
	span.SetAttributes(attribute.String("throughcache.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	return v, err
}

// execute runs the lookup -> acquire -> invoke -> store -> release loop and
// reports how the request was answered: hit, populate, fallback, bypass or
// busy.
func (c *cache[V]) execute(ctx context.Context, req Request[V], key string, pol Policy) (V, string, error) {
	var zero V
	if !c.enabled || pol.Bypass {
		v, err := c.invoke(ctx, req, key)
		return v, "bypass", err
	}

	ek, lk := c.entryKey(key), c.lockKey(key)
	var w *waiter
	for {
		v, ok, err := c.lookup(ctx, ek)
		if err != nil {
			v, err := c.degrade(ctx, req, key, "backend_error", err)
			return v, "fallback", err
		}
		if ok {
			return v, "hit", nil
		}

		// taken before the backend call so the local view of the lease never
		// outlasts the backend's
		leaseStart := time.Now()
		st, err := c.acquire(ctx, lk)
		if err != nil {
			v, err := c.degrade(ctx, req, key, "lock_error", err)
			return v, "fallback", err
		}
		if st == backend.LockAcquired {
			v, hit, err := c.populate(ctx, req, key, c.ttlFor(pol), leaseStart)
			if hit {
				return v, "hit", nil
			}
			return v, "populate", err
		}

		c.hooks.LockBusy(lk)
		switch c.busy {
		case BusyBypass:
			v, err := c.fallback(ctx, req, key, "busy_bypass")
			return v, "fallback", err
		case BusyFailFast:
			return zero, "busy", busyError(key)
		}

		if w == nil {
			w = c.newWaiter()
		}
		timedOut, err := w.wait(ctx)
		if err != nil {
			return zero, "busy", err
		}
		if timedOut {
			v, err := c.fallback(ctx, req, key, "wait_timeout")
			return v, "fallback", err
		}
	}
}

// populate runs with the lock held since leaseStart. The lock is released
// after the store so waiters polling the entry find it before they can take
// the lock. hit reports that another holder stored the entry between our
// lookup and lock.
func (c *cache[V]) populate(ctx context.Context, req Request[V], key string, ttl time.Duration, leaseStart time.Time) (v V, hit bool, err error) {
	ek := c.entryKey(key)
	defer c.release(ctx, c.lockKey(key), leaseStart)

	obs, genOK := c.snapshotGen(ctx, ek)
	if genOK {
		if v, ok, err := c.read(ctx, ek); err == nil && ok {
			return v, true, nil
		}
	}
	v, err = c.invoke(ctx, req, key)
	if err != nil {
		return v, false, err
	}
	if !genOK {
		c.log.Debug("store skipped (generation unknown)", Fields{"key": key})
		return v, false, nil
	}

	sctx, cancel := c.detached(ctx)
	defer cancel()
	if err := c.write(sctx, key, v, obs, ttl); err != nil {
		c.hooks.StoreFailed(ek, err)
		c.log.Warn("store failed; value returned uncached", Fields{"key": key, "err": err})
	}
	return v, false, nil
}

func (c *cache[V]) invoke(ctx context.Context, req Request[V], key string) (V, error) {
	if c.upstreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.upstreamTimeout)
		defer cancel()
	}
	start := time.Now()
	v, err := req.Invoke(ctx)
	c.hooks.UpstreamCall(c.entryKey(key), time.Since(start), err)
	if err != nil {
		var zero V
		return zero, &UpstreamError{Key: key, Err: err}
	}
	return v, nil
}

// degrade applies FailurePolicy to a backend failure on lookup or lock.
func (c *cache[V]) degrade(ctx context.Context, req Request[V], key, reason string, cause error) (V, error) {
	if err := ctx.Err(); err != nil {
		var zero V
		return zero, err
	}
	if c.failure == FailRequest {
		var zero V
		return zero, cause
	}
	c.log.Warn("backend unavailable; calling upstream directly", Fields{"key": key, "reason": reason, "err": cause})
	return c.fallback(ctx, req, key, reason)
}

// fallback calls upstream without the lock and does not store the result.
func (c *cache[V]) fallback(ctx context.Context, req Request[V], key, reason string) (V, error) {
	c.hooks.Fallback(c.entryKey(key), reason)
	return c.invoke(ctx, req, key)
}

type getResult struct {
	raw []byte
	ok  bool
}

func (c *cache[V]) lookup(ctx context.Context, ek string) (V, bool, error) {
	v, ok, err := c.read(ctx, ek)
	if err == nil {
		c.hooks.Lookup(ek, ok)
	}
	return v, ok, err
}

// read fetches and validates an entry. Corrupt, stale or undecodable entries
// are deleted and reported as misses; only backend faults are errors.
func (c *cache[V]) read(ctx context.Context, ek string) (V, bool, error) {
	var zero V
	res, err := doBackend(ctx, c.bc, "get", ek, func(ctx context.Context) (getResult, error) {
		raw, ok, err := c.backend.Get(ctx, ek)
		return getResult{raw: raw, ok: ok}, err
	})
	if err != nil {
		c.hooks.BackendError("get", ek, err)
		return zero, false, err
	}
	if !res.ok {
		return zero, false, nil
	}

	gen, payload, err := wire.Decode(res.raw)
	if err != nil {
		c.selfHeal(ctx, ek, "corrupt")
		return zero, false, nil
	}
	cur, ok := c.snapshotGen(ctx, ek)
	if !ok {
		return zero, false, nil
	}
	if gen != cur {
		c.selfHeal(ctx, ek, "gen_mismatch")
		return zero, false, nil
	}
	v, err := c.codec.Decode(payload)
	if err != nil {
		c.selfHeal(ctx, ek, "value_decode")
		return zero, false, nil
	}
	return v, true, nil
}

func (c *cache[V]) selfHeal(ctx context.Context, ek, reason string) {
	c.hooks.SelfHeal(ek, reason)
	c.log.Debug("dropping unusable entry", Fields{"key": ek, "reason": reason})

	dctx, cancel := c.detached(ctx)
	defer cancel()
	_, err := doBackend(dctx, c.bc, "delete", ek, func(ctx context.Context) (backend.DeleteStatus, error) {
		return c.backend.Delete(ctx, ek)
	})
	if err != nil {
		c.hooks.BackendError("delete", ek, err)
		c.log.Warn("self-heal delete failed; entry stays until overwritten or expired", Fields{"key": ek, "reason": reason, "err": err})
	}
}

// write stores v stamped with observedGen, unless the generation moved since
// it was observed (the key was invalidated meanwhile).
func (c *cache[V]) write(ctx context.Context, key string, v V, observedGen uint64, ttl time.Duration) error {
	ek := c.entryKey(key)
	cur, ok := c.snapshotGen(ctx, ek)
	if !ok {
		return nil
	}
	if cur != observedGen {
		c.log.Debug("store skipped (gen mismatch)", Fields{"key": key, "obs": observedGen, "cur": cur})
		return nil
	}
	payload, err := c.codec.Encode(v)
	if err != nil {
		return &SerializationError{Key: key, Err: err}
	}
	frame := wire.Encode(observedGen, payload)
	stored, err := doBackend(ctx, c.bc, "set", ek, func(ctx context.Context) (bool, error) {
		return c.backend.Set(ctx, ek, frame, ttl)
	})
	if err != nil {
		c.hooks.BackendError("set", ek, err)
		return err
	}
	if !stored {
		c.hooks.StoreRejected(ek)
		c.log.Debug("store rejected by backend (pressure)", Fields{"key": key})
	}
	return nil
}

func (c *cache[V]) Peek(ctx context.Context, req Cacheable) (V, bool, error) {
	var zero V
	key, err := deriveKey(req)
	if err != nil {
		return zero, false, err
	}
	if !c.enabled {
		return zero, false, nil
	}
	return c.lookup(ctx, c.entryKey(key))
}

func (c *cache[V]) Put(ctx context.Context, req Cacheable, value V) error {
	key, err := deriveKey(req)
	if err != nil {
		return err
	}
	if !c.enabled {
		return nil
	}
	obs, ok := c.snapshotGen(ctx, c.entryKey(key))
	if !ok {
		return nil
	}
	return c.write(ctx, key, value, obs, c.ttlFor(policyOf(req)))
}

func (c *cache[V]) Invalidate(ctx context.Context, req Cacheable) error {
	key, err := deriveKey(req)
	if err != nil {
		return err
	}
	if !c.enabled {
		return nil
	}
	ek := c.entryKey(key)

	newGen, bumpErr := c.gen.Bump(ctx, ek)
	if bumpErr != nil {
		c.hooks.GenBumpError(ek, bumpErr)
		c.log.Error("gen bump error", Fields{"key": ek, "err": bumpErr})
	}
	_, delErr := doBackend(ctx, c.bc, "delete", ek, func(ctx context.Context) (backend.DeleteStatus, error) {
		return c.backend.Delete(ctx, ek)
	})
	if bumpErr != nil && delErr != nil {
		c.hooks.InvalidateOutage(key, bumpErr, delErr)
		return &InvalidateError{Key: key, BumpErr: bumpErr, DelErr: delErr}
	}
	c.log.Debug("invalidated key (bumped gen + deleted entry)", Fields{"key": key, "newGen": newGen})
	return nil
}

func (c *cache[V]) snapshotGen(ctx context.Context, ek string) (uint64, bool) {
	g, err := c.gen.Snapshot(ctx, ek)
	if err != nil {
		c.hooks.GenSnapshotError(ek, err)
		c.log.Warn("gen snapshot error", Fields{"key": ek, "err": err})
		return 0, false
	}
	return g, true
}

// ttlFor applies the per-request override, the default and the MaxTTL clamp.
func (c *cache[V]) ttlFor(p Policy) time.Duration {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if c.maxTTL > 0 && ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	return ttl
}

func (c *cache[V]) entryKey(key string) string {
	// isolate by namespace
	return "entry:" + c.ns + ":" + key
}

func (c *cache[V]) lockKey(key string) string {
	return "lock:" + c.ns + ":" + key
}
