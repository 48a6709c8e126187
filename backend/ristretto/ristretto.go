package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/throughcache/backend"
	"github.com/unkn0wn-root/throughcache/internal/locktable"
)

// CostFunc computes the admission cost of a value.
type CostFunc func(key string, value []byte) int64

type Backend struct {
	c     *rc.Cache
	locks *locktable.Table
	cost  CostFunc
	sync  bool
}

var _ backend.Backend = (*Backend)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost per Set; nil => 1 per entry.
	Cost CostFunc
	// SyncWrites waits for ristretto's buffers to drain after every Set so a
	// following Get observes the value. Ristretto applies writes
	// asynchronously; without this a Get right after Set may miss.
	SyncWrites bool
}

func New(cfg Config) (*Backend, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == nil {
		cost = func(string, []byte) int64 { return 1 }
	}
	return &Backend{c: c, locks: locktable.New(), cost: cost, sync: cfg.SyncWrites}, nil
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := b.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	raw, _ := v.([]byte)
	if raw == nil {
		// self-heal: drop unexpected entry shape
		b.c.Del(key)
		return nil, false, nil
	}
	return raw, true, nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok := b.c.SetWithTTL(key, value, b.cost(key, value), ttl)
	if ok && b.sync {
		b.c.Wait()
	}
	return ok, nil
}

func (b *Backend) Delete(_ context.Context, key string) (backend.DeleteStatus, error) {
	if b.locks.Unlock(key) {
		return backend.Deleted, nil
	}
	_, ok := b.c.Get(key)
	b.c.Del(key)
	if b.sync {
		b.c.Wait()
	}
	if !ok {
		return backend.Missing, nil
	}
	return backend.Deleted, nil
}

func (b *Backend) Lock(_ context.Context, key string, timeout time.Duration) (backend.LockStatus, error) {
	if b.locks.TryLock(key, timeout) {
		return backend.LockAcquired, nil
	}
	return backend.LockBusy, nil
}

func (b *Backend) Close(_ context.Context) error {
	b.c.Wait()
	b.c.Close()
	return nil
}

// Metrics exposes ristretto's counters (nil unless Config.Metrics is set).
func (b *Backend) Metrics() *rc.Metrics { return b.c.Metrics }
