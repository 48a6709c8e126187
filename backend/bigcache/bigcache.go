package bigcache

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/throughcache/backend"
	"github.com/unkn0wn-root/throughcache/internal/locktable"
)

// deadline header: u64 big-endian unix nanos, 0 => no per-entry expiry
const hdrLen = 8

type Backend struct {
	c     *bc.BigCache
	locks *locktable.Table
	now   func() time.Time
}

var _ backend.Backend = (*Backend)(nil)

type Config struct {
	// LifeWindow is bigcache's global eviction window. Per-entry TTLs shorter
	// than this are enforced by the backend on read.
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Backend, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Backend{c: c, locks: locktable.New(), now: time.Now}, nil
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, err := b.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(raw) < hdrLen {
		_ = b.c.Delete(key) // foreign or truncated value
		return nil, false, nil
	}
	if dl := binary.BigEndian.Uint64(raw[:hdrLen]); dl != 0 && b.now().UnixNano() >= int64(dl) {
		_ = b.c.Delete(key)
		return nil, false, nil
	}
	return raw[hdrLen:], true, nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	buf := make([]byte, hdrLen+len(value))
	if ttl > 0 {
		binary.BigEndian.PutUint64(buf[:hdrLen], uint64(b.now().Add(ttl).UnixNano()))
	}
	copy(buf[hdrLen:], value)
	if err := b.c.Set(key, buf); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) Delete(_ context.Context, key string) (backend.DeleteStatus, error) {
	if b.locks.Unlock(key) {
		return backend.Deleted, nil
	}
	err := b.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return backend.Missing, nil
	}
	if err != nil {
		return backend.Missing, err
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
	return b.c.Close()
}
