// Package disk is a filesystem backend. Entries are files under Dir and locks
// are advisory file locks (flock), so several processes on one host sharing
// Dir deduplicate upstream calls between them.
//
// Lock expiry: a lock held by this process is treated as free once its timeout
// passes. A lock held by another process is released by that process or by
// the OS when it exits; it cannot be stolen after timeout.
package disk

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/unkn0wn-root/throughcache/backend"
)

const hdrLen = 8 // u64 big-endian deadline in unix nanos, 0 => no expiry

type heldLock struct {
	fl       *flock.Flock
	deadline time.Time
}

type Backend struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	held map[string]heldLock
}

var _ backend.Backend = (*Backend)(nil)

type Config struct {
	Dir      string
	DirPerms fs.FileMode // 0 => 0o755
}

func New(cfg Config) (*Backend, error) {
	if cfg.Dir == "" {
		return nil, errors.New("disk backend: dir is required")
	}
	perms := cfg.DirPerms
	if perms == 0 {
		perms = 0o755
	}
	if err := os.MkdirAll(cfg.Dir, perms); err != nil {
		return nil, fmt.Errorf("disk backend: %w", err)
	}
	return &Backend{dir: cfg.Dir, now: time.Now, held: make(map[string]heldLock)}, nil
}

func (b *Backend) name(key, ext string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(b.dir, hex.EncodeToString(sum[:16])+ext)
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	p := b.name(key, ".entry")
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(raw) < hdrLen {
		_ = os.Remove(p)
		return nil, false, nil
	}
	if dl := binary.BigEndian.Uint64(raw[:hdrLen]); dl != 0 && b.now().UnixNano() >= int64(dl) {
		_ = os.Remove(p)
		return nil, false, nil
	}
	return raw[hdrLen:], true, nil
}

// Set writes to a temp file and renames it into place so readers never see a
// partially written entry.
func (b *Backend) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var hdr [hdrLen]byte
	if ttl > 0 {
		binary.BigEndian.PutUint64(hdr[:], uint64(b.now().Add(ttl).UnixNano()))
	}

	f, err := os.CreateTemp(b.dir, ".tmp-*")
	if err != nil {
		return false, err
	}
	tmp := f.Name()
	_, err = f.Write(hdr[:])
	if err == nil {
		_, err = f.Write(value)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, b.name(key, ".entry"))
	}
	if err != nil {
		_ = os.Remove(tmp)
		return false, err
	}
	return true, nil
}

func (b *Backend) Delete(_ context.Context, key string) (backend.DeleteStatus, error) {
	b.mu.Lock()
	h, ok := b.held[key]
	if ok {
		delete(b.held, key)
	}
	b.mu.Unlock()
	if ok {
		expired := !h.deadline.IsZero() && !b.now().Before(h.deadline)
		if err := h.fl.Unlock(); err != nil {
			return backend.Missing, err
		}
		if expired {
			return backend.Missing, nil
		}
		return backend.Deleted, nil
	}

	err := os.Remove(b.name(key, ".entry"))
	if errors.Is(err, fs.ErrNotExist) {
		return backend.Missing, nil
	}
	if err != nil {
		return backend.Missing, err
	}
	return backend.Deleted, nil
}

func (b *Backend) Lock(_ context.Context, key string, timeout time.Duration) (backend.LockStatus, error) {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.held[key]; ok {
		if h.deadline.IsZero() || now.Before(h.deadline) {
			return backend.LockBusy, nil
		}
		// our own hold outlived its timeout
		_ = h.fl.Unlock()
		delete(b.held, key)
	}

	fl := flock.New(b.name(key, ".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return backend.LockFailed, err
	}
	if !ok {
		return backend.LockBusy, nil // held by another process
	}
	var dl time.Time
	if timeout > 0 {
		dl = now.Add(timeout)
	}
	b.held[key] = heldLock{fl: fl, deadline: dl}
	return backend.LockAcquired, nil
}

// Close releases every lock this process still holds. Entries stay on disk.
func (b *Backend) Close(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for k, h := range b.held {
		if err := h.fl.Unlock(); err != nil {
			errs = append(errs, err)
		}
		delete(b.held, k)
	}
	return errors.Join(errs...)
}
