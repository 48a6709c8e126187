// Package locktable is the in-process lock bookkeeping shared by the
// in-memory backends (ristretto, bigcache). Locks expire after their timeout.
package locktable

import (
	"sync"
	"time"
)

type Table struct {
	mu    sync.Mutex
	held  map[string]time.Time // key -> deadline
	now   func() time.Time
	sweep int
}

func New() *Table {
	return &Table{held: make(map[string]time.Time), now: time.Now}
}

// TryLock takes key if it is free or its previous holder's deadline passed.
// A non-positive timeout holds the lock until Unlock.
func (t *Table) TryLock(key string, timeout time.Duration) bool {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	if dl, ok := t.held[key]; ok && (dl.IsZero() || now.Before(dl)) {
		return false
	}
	var dl time.Time
	if timeout > 0 {
		dl = now.Add(timeout)
	}
	t.held[key] = dl

	// opportunistic pruning so abandoned locks do not accumulate
	t.sweep++
	if t.sweep >= 1024 {
		t.sweep = 0
		for k, d := range t.held {
			if !d.IsZero() && !now.Before(d) {
				delete(t.held, k)
			}
		}
	}
	return true
}

// Unlock releases key. Returns false if key was not held (or already expired).
func (t *Table) Unlock(key string) bool {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	dl, ok := t.held[key]
	if !ok {
		return false
	}
	delete(t.held, key)
	return dl.IsZero() || now.Before(dl)
}

// Held reports whether key is currently locked.
func (t *Table) Held(key string) bool {
	now := t.now()
	t.mu.Lock()
	dl, ok := t.held[key]
	t.mu.Unlock()
	return ok && (dl.IsZero() || now.Before(dl))
}
