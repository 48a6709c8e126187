package ristretto

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/unkn0wn-root/throughcache/backend"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64, SyncWrites: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error on zero config")
	}
}

func TestRoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	if ok, err := b.Set(ctx, "k", []byte("payload"), time.Minute); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	got, ok, err := b.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, []byte("payload")) {
		t.Fatalf("Get: got=%q ok=%v err=%v", got, ok, err)
	}

	if st, err := b.Delete(ctx, "k"); err != nil || st != backend.Deleted {
		t.Fatalf("Delete: st=%v err=%v", st, err)
	}
	if st, err := b.Delete(ctx, "k"); err != nil || st != backend.Missing {
		t.Fatalf("repeat Delete: st=%v err=%v", st, err)
	}
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Fatalf("deleted key should miss")
	}
}

func TestLockReleasedByDelete(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	if st, _ := b.Lock(ctx, "lock:k", time.Minute); st != backend.LockAcquired {
		t.Fatalf("first Lock: %v", st)
	}
	if st, _ := b.Lock(ctx, "lock:k", time.Minute); st != backend.LockBusy {
		t.Fatalf("second Lock: %v", st)
	}
	if st, _ := b.Delete(ctx, "lock:k"); st != backend.Deleted {
		t.Fatalf("release: %v", st)
	}
	if st, _ := b.Lock(ctx, "lock:k", time.Minute); st != backend.LockAcquired {
		t.Fatalf("Lock after release: %v", st)
	}
}
