package redis

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/throughcache/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// sweepAt bounds the lease table; expired leases are dropped once it grows past this.
const sweepAt = 64

type lease struct {
	token    string
	deadline time.Time // zero => no expiry
}

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	owner       string

	mu   sync.Mutex
	held map[string]lease
}

var _ backend.Backend = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this backend exclusively owns the client
	// Owner prefixes every lock token ("<owner>:<uuid>") so operators can see
	// who holds a key. Defaults to a timestamp-based name.
	Owner string
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	owner := cfg.Owner
	if owner == "" {
		owner = "throughcache-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return &Redis{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		owner:       owner,
		held:        make(map[string]lease),
	}, nil
}

func (b *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := b.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return v, true, nil
}

func (b *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0 // non-positive => no expiry
	}
	if err := b.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes key. A lock taken through this backend is removed only while
// it still carries the token written by Lock; once the lease lapsed and
// another holder took the key, Delete reports Missing and leaves it.
func (b *Redis) Delete(ctx context.Context, key string) (backend.DeleteStatus, error) {
	b.mu.Lock()
	l, isLock := b.held[key]
	delete(b.held, key)
	b.mu.Unlock()

	var (
		n   int64
		err error
	)
	if isLock {
		n, err = releaseScript.Run(ctx, b.rdb, []string{key}, l.token).Int64()
	} else {
		n, err = b.rdb.Del(ctx, key).Result()
	}
	if err != nil {
		return backend.Missing, err
	}
	if n == 0 {
		return backend.Missing, nil
	}
	return backend.Deleted, nil
}

// Lock is SET key token NX PX timeout with a fresh token per lease. Redis
// expires the key itself, so a crashed holder frees the key after timeout.
func (b *Redis) Lock(ctx context.Context, key string, timeout time.Duration) (backend.LockStatus, error) {
	token := b.owner + ":" + uuid.NewString()
	ok, err := b.rdb.SetNX(ctx, key, token, timeout).Result()
	if err != nil {
		return backend.LockFailed, err
	}
	if !ok {
		return backend.LockBusy, nil
	}

	now := time.Now()
	var dl time.Time
	if timeout > 0 {
		dl = now.Add(timeout)
	}
	b.mu.Lock()
	if len(b.held) >= sweepAt {
		for k, l := range b.held {
			if !l.deadline.IsZero() && now.After(l.deadline) {
				delete(b.held, k)
			}
		}
	}
	b.held[key] = lease{token: token, deadline: dl}
	b.mu.Unlock()
	return backend.LockAcquired, nil
}

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (b *Redis) Close(context.Context) error {
	if b.closeClient {
		if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
