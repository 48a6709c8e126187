// Package otelhooks records cache events as OpenTelemetry metrics. Storage
// keys are never used as attributes; cardinality is bounded by the small
// fixed sets of ops and reasons.
package otelhooks

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/throughcache"
)

// Hooks implements throughcache.Hooks on top of a metric.Meter.
type Hooks struct {
	attrs metric.MeasurementOption

	lookups      metric.Int64Counter
	selfHeals    metric.Int64Counter
	backendErrs  metric.Int64Counter
	busy         metric.Int64Counter
	expired      metric.Int64Counter
	fallbacks    metric.Int64Counter
	upstream     metric.Float64Histogram
	storeFails   metric.Int64Counter
	storeRejects metric.Int64Counter
	genErrs      metric.Int64Counter
	outages      metric.Int64Counter
}

var _ throughcache.Hooks = (*Hooks)(nil)

// New creates the instruments on meter. Every measurement carries
// throughcache.namespace=ns.
func New(meter metric.Meter, ns string) (*Hooks, error) {
	h := &Hooks{attrs: metric.WithAttributes(attribute.String("throughcache.namespace", ns))}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&h.lookups, "throughcache.lookups", "Cache lookups by result"},
		{&h.selfHeals, "throughcache.self_heals", "Unusable entries deleted on read"},
		{&h.backendErrs, "throughcache.backend.errors", "Backend operation failures"},
		{&h.busy, "throughcache.lock.busy", "Lock attempts that found the key being populated"},
		{&h.expired, "throughcache.lock.expired", "Populations that outlived their lock lease"},
		{&h.fallbacks, "throughcache.fallbacks", "Upstream calls made without the cache"},
		{&h.storeFails, "throughcache.store.failures", "Values that could not be stored"},
		{&h.storeRejects, "throughcache.store.rejected", "Writes refused by the backend"},
		{&h.genErrs, "throughcache.generation.errors", "Generation store failures"},
		{&h.outages, "throughcache.invalidate.outages", "Invalidations where bump and delete both failed"},
	}
	for _, c := range counters {
		ctr, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("{event}"))
		if err != nil {
			return nil, err
		}
		*c.dst = ctr
	}

	up, err := meter.Float64Histogram(
		"throughcache.upstream.duration_ms",
		metric.WithDescription("Upstream call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	h.upstream = up
	return h, nil
}

func (h *Hooks) add(c metric.Int64Counter, kv ...attribute.KeyValue) {
	c.Add(context.Background(), 1, h.attrs, metric.WithAttributes(kv...))
}

func (h *Hooks) Lookup(_ string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	h.add(h.lookups, attribute.String("result", result))
}

func (h *Hooks) SelfHeal(_, reason string) {
	h.add(h.selfHeals, attribute.String("reason", reason))
}

func (h *Hooks) BackendError(op, _ string, _ error) {
	h.add(h.backendErrs, attribute.String("op", op))
}

func (h *Hooks) LockBusy(string)    { h.add(h.busy) }
func (h *Hooks) LockExpired(string) { h.add(h.expired) }

func (h *Hooks) Fallback(_, reason string) {
	h.add(h.fallbacks, attribute.String("reason", reason))
}

func (h *Hooks) UpstreamCall(_ string, took time.Duration, err error) {
	h.upstream.Record(context.Background(), float64(took)/float64(time.Millisecond),
		h.attrs, metric.WithAttributes(attribute.Bool("error", err != nil)))
}

func (h *Hooks) StoreFailed(string, error) { h.add(h.storeFails) }
func (h *Hooks) StoreRejected(string)      { h.add(h.storeRejects) }

func (h *Hooks) GenSnapshotError(string, error) {
	h.add(h.genErrs, attribute.String("op", "snapshot"))
}

func (h *Hooks) GenBumpError(string, error) {
	h.add(h.genErrs, attribute.String("op", "bump"))
}

func (h *Hooks) InvalidateOutage(string, error, error) { h.add(h.outages) }
