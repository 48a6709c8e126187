package genstore

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocalMissingIsZeroAndBumpIncrements(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if g, _ := s.Snapshot(ctx, "a"); g != 0 {
		t.Fatalf("missing key should be 0, got %d", g)
	}
	for want := uint64(1); want <= 3; want++ {
		g, err := s.Bump(ctx, "a")
		if err != nil || g != want {
			t.Fatalf("Bump: got=%d err=%v want=%d", g, err, want)
		}
	}
	if g, _ := s.Snapshot(ctx, "b"); g != 0 {
		t.Fatalf("bumping a must not affect b, got %d", g)
	}
}

func TestLocalConcurrentBumps(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Bump(ctx, "k")
		}()
	}
	wg.Wait()
	if g, _ := s.Snapshot(ctx, "k"); g != 50 {
		t.Fatalf("expected 50, got %d", g)
	}
}

func TestLocalCleanupPrunesOld(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	_, _ = s.Bump(ctx, "old")
	now = now.Add(2 * time.Second)
	_, _ = s.Bump(ctx, "fresh")
	s.Cleanup(time.Second)

	if g, _ := s.Snapshot(ctx, "old"); g != 0 {
		t.Fatalf("expected pruned -> 0, got %d", g)
	}
	if g, _ := s.Snapshot(ctx, "fresh"); g != 1 {
		t.Fatalf("fresh key should survive, got %d", g)
	}
}

func TestLocalCloseIsIdempotent(t *testing.T) {
	s := NewLocalGenStore(time.Millisecond, time.Second)
	_ = s.Close(context.Background())
	_ = s.Close(context.Background())
}
