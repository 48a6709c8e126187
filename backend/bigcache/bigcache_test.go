package bigcache

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/unkn0wn-root/throughcache/backend"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(Config{LifeWindow: time.Hour, CleanWindow: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestRoundTripIsByteTransparent(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	for _, v := range [][]byte{{}, []byte("x"), bytes.Repeat([]byte{0xAB}, 4096)} {
		if ok, err := b.Set(ctx, "k", v, time.Minute); err != nil || !ok {
			t.Fatalf("Set: ok=%v err=%v", ok, err)
		}
		got, ok, err := b.Get(ctx, "k")
		if err != nil || !ok || !bytes.Equal(got, v) {
			t.Fatalf("Get: got=%x ok=%v err=%v want=%x", got, ok, err, v)
		}
	}
}

func TestPerEntryTTL(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	now := time.Unix(5000, 0)
	b.now = func() time.Time { return now }

	_, _ = b.Set(ctx, "short", []byte("s"), time.Second)
	_, _ = b.Set(ctx, "forever", []byte("f"), 0)

	now = now.Add(2 * time.Second)
	if _, ok, _ := b.Get(ctx, "short"); ok {
		t.Fatalf("short-lived entry should have expired")
	}
	if _, ok, _ := b.Get(ctx, "forever"); !ok {
		t.Fatalf("entry without ttl should survive")
	}
	// expired entry was dropped on read
	if st, _ := b.Delete(ctx, "short"); st != backend.Missing {
		t.Fatalf("expired entry should be gone, got %v", st)
	}
}

func TestDeleteAndLock(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	if st, err := b.Delete(ctx, "nope"); err != nil || st != backend.Missing {
		t.Fatalf("Delete missing: st=%v err=%v", st, err)
	}
	_, _ = b.Set(ctx, "k", []byte("v"), 0)
	if st, _ := b.Delete(ctx, "k"); st != backend.Deleted {
		t.Fatalf("Delete existing: %v", st)
	}

	if st, _ := b.Lock(ctx, "lock:k", time.Minute); st != backend.LockAcquired {
		t.Fatalf("Lock: %v", st)
	}
	if st, _ := b.Lock(ctx, "lock:k", time.Minute); st != backend.LockBusy {
		t.Fatalf("Lock busy: %v", st)
	}
	if st, _ := b.Delete(ctx, "lock:k"); st != backend.Deleted {
		t.Fatalf("release: %v", st)
	}
}
