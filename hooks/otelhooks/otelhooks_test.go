package otelhooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumBy(t *testing.T, m *metricdata.Metrics, key attribute.Key) map[string]int64 {
	t.Helper()
	if m == nil {
		t.Fatal("metric not found")
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(key)
		out[v.Emit()] += dp.Value
		if ns, _ := dp.Attributes.Value("throughcache.namespace"); ns.AsString() != "ping" {
			t.Fatalf("namespace attribute missing: %v", dp.Attributes)
		}
	}
	return out
}

func TestCountersAndHistogram(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	h, err := New(mp.Meter("test"), "ping")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	h.Lookup("entry:ping:Ping::1", false)
	h.Lookup("entry:ping:Ping::1", true)
	h.Lookup("entry:ping:Ping::1", true)
	h.Fallback("entry:ping:Ping::1", "busy_bypass")
	h.Fallback("entry:ping:Ping::1", "wait_timeout")
	h.BackendError("get", "entry:ping:Ping::1", errors.New("x"))
	h.UpstreamCall("entry:ping:Ping::1", 30*time.Millisecond, nil)
	h.UpstreamCall("entry:ping:Ping::1", 10*time.Millisecond, errors.New("x"))

	rm := collect(t, reader)

	lookups := sumBy(t, findMetric(rm, "throughcache.lookups"), "result")
	if lookups["hit"] != 2 || lookups["miss"] != 1 {
		t.Fatalf("lookups=%v", lookups)
	}
	fb := sumBy(t, findMetric(rm, "throughcache.fallbacks"), "reason")
	if fb["busy_bypass"] != 1 || fb["wait_timeout"] != 1 {
		t.Fatalf("fallbacks=%v", fb)
	}
	if be := sumBy(t, findMetric(rm, "throughcache.backend.errors"), "op"); be["get"] != 1 {
		t.Fatalf("backend errors=%v", be)
	}

	up := findMetric(rm, "throughcache.upstream.duration_ms")
	if up == nil {
		t.Fatal("upstream histogram not found")
	}
	hist, ok := up.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", up.Data)
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 || len(hist.DataPoints) != 2 {
		t.Fatalf("upstream points=%d count=%d", len(hist.DataPoints), count)
	}
}
