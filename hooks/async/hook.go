// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery: 10, // sample logs: ~every 10th self-heal
//	    LookupEvery:   0,  // lookups are not logged
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := throughcache.New[Pong](throughcache.Options[Pong]{
//	    Namespace: "ping",
//	    Backend:   backend,
//	    Codec:     codec.JSON[Pong]{},
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/throughcache"
)

// Hooks forwards events to inner on worker goroutines. When the queue is
// full the event is dropped and counted.
type Hooks struct {
	inner   throughcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against concurrent sends
	closed  bool
	dropped atomic.Uint64
}

var _ throughcache.Hooks = (*Hooks)(nil)

func New(inner throughcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers. Events after Close are
// dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Lookup(k string, hit bool) { h.try(func() { h.inner.Lookup(k, hit) }) }
func (h *Hooks) SelfHeal(k, r string)      { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) LockBusy(k string)         { h.try(func() { h.inner.LockBusy(k) }) }
func (h *Hooks) LockExpired(k string)      { h.try(func() { h.inner.LockExpired(k) }) }
func (h *Hooks) Fallback(k, r string)      { h.try(func() { h.inner.Fallback(k, r) }) }
func (h *Hooks) StoreRejected(k string)    { h.try(func() { h.inner.StoreRejected(k) }) }
func (h *Hooks) StoreFailed(k string, err error) {
	h.try(func() { h.inner.StoreFailed(k, err) })
}
func (h *Hooks) BackendError(op, k string, err error) {
	h.try(func() { h.inner.BackendError(op, k, err) })
}
func (h *Hooks) UpstreamCall(k string, took time.Duration, err error) {
	h.try(func() { h.inner.UpstreamCall(k, took, err) })
}
func (h *Hooks) GenSnapshotError(k string, err error) {
	h.try(func() { h.inner.GenSnapshotError(k, err) })
}
func (h *Hooks) GenBumpError(k string, err error) { h.try(func() { h.inner.GenBumpError(k, err) }) }
func (h *Hooks) InvalidateOutage(k string, be, de error) {
	h.try(func() { h.inner.InvalidateOutage(k, be, de) })
}
