package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestActorAnswersInOrder(t *testing.T) {
	a := startActor(time.Millisecond, 4)
	defer a.stop()

	for id := 1; id <= 3; id++ {
		pong, err := a.Handle(context.Background(), Ping{ID: id})
		if err != nil || pong.ID != id {
			t.Fatalf("Handle(%d): pong=%v err=%v", id, pong, err)
		}
	}
	if a.handled.Load() != 3 {
		t.Fatalf("handled=%d", a.handled.Load())
	}
}

func TestActorStoppedAndCancelled(t *testing.T) {
	a := startActor(time.Minute, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := a.Handle(ctx, Ping{ID: 1}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline, got %v", err)
	}
	a.stop()
	if _, err := a.Handle(context.Background(), Ping{ID: 2}); !errors.Is(err, errActorStopped) {
		t.Fatalf("want errActorStopped, got %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"-backend=bigcache", "-n=8", "-delay=10ms"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.backend != "bigcache" || cfg.n != 8 || cfg.delay != 10*time.Millisecond || cfg.codec != "json" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if _, err := parseFlags([]string{"-n=0"}); err == nil {
		t.Fatalf("expected error for -n=0")
	}
	if _, err := busyPolicy("sometimes"); err == nil {
		t.Fatalf("expected error for unknown busy policy")
	}
	if _, err := newCodec("xml"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}

func TestRunDeduplicatesWithLockingBackend(t *testing.T) {
	for _, be := range []string{"ristretto", "bigcache", "disk"} {
		t.Run(be, func(t *testing.T) {
			cfg := config{
				backend: be,
				codec:   "cbor",
				dir:     t.TempDir(),
				busy:    "wait",
				ns:      "test-" + be,
				id:      42,
				n:       6,
				rounds:  2,
				delay:   30 * time.Millisecond,
				ttl:     time.Minute,
			}
			calls, err := run(context.Background(), cfg, zaptest.NewLogger(t))
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if calls != 1 {
				t.Fatalf("actor calls=%d want 1 across %d pings", calls, cfg.n*cfg.rounds)
			}
		})
	}
}

func TestRunNoopCallsActorPerPing(t *testing.T) {
	cfg := config{backend: "noop", codec: "msgpack", busy: "wait", ns: "noop", id: 1, n: 3, rounds: 1, delay: time.Millisecond}
	calls, err := run(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 3 {
		t.Fatalf("noop backend stores nothing, calls=%d want 3", calls)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	cfg := config{backend: "etcd", codec: "json", busy: "wait", n: 1, rounds: 1}
	if _, err := run(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
