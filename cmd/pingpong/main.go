// Command pingpong sends concurrent pings through a read-through cache to an
// actor that takes a while to answer. With a locking backend only one ping per
// id reaches the actor; the rest are served from the cache.
//
//	pingpong -backend=ristretto -n=8 -id=42
//	pingpong -backend=redis -redis=localhost:6379 -busy=bypass
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/throughcache"
	"github.com/unkn0wn-root/throughcache/backend"
	"github.com/unkn0wn-root/throughcache/backend/bigcache"
	"github.com/unkn0wn-root/throughcache/backend/disk"
	"github.com/unkn0wn-root/throughcache/backend/noop"
	rbackend "github.com/unkn0wn-root/throughcache/backend/redis"
	"github.com/unkn0wn-root/throughcache/backend/ristretto"
	"github.com/unkn0wn-root/throughcache/codec"
	"github.com/unkn0wn-root/throughcache/genstore"
	zaplog "github.com/unkn0wn-root/throughcache/log/zap"
)

type config struct {
	backend   string
	codec     string
	redisAddr string
	dir       string
	busy      string
	ns        string
	id        int
	n         int
	rounds    int
	delay     time.Duration
	ttl       time.Duration
	debug     bool
}

func parseFlags(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("pingpong", flag.ContinueOnError)
	fs.StringVar(&cfg.backend, "backend", "noop", "cache backend: noop, ristretto, bigcache, disk or redis")
	fs.StringVar(&cfg.codec, "codec", "json", "value codec: json, msgpack or cbor")
	fs.StringVar(&cfg.redisAddr, "redis", "localhost:6379", "redis address (backend=redis)")
	fs.StringVar(&cfg.dir, "dir", "", "cache directory (backend=disk); default a temp dir")
	fs.StringVar(&cfg.busy, "busy", "wait", "busy policy: wait, bypass or failfast")
	fs.StringVar(&cfg.ns, "ns", "pingpong", "cache namespace")
	fs.IntVar(&cfg.id, "id", 42, "ping id")
	fs.IntVar(&cfg.n, "n", 4, "concurrent pings per round")
	fs.IntVar(&cfg.rounds, "rounds", 2, "rounds of pings")
	fs.DurationVar(&cfg.delay, "delay", 3*time.Second, "actor response delay")
	fs.DurationVar(&cfg.ttl, "ttl", time.Minute, "cache ttl")
	fs.BoolVar(&cfg.debug, "debug", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.n <= 0 || cfg.rounds <= 0 {
		return cfg, errors.New("-n and -rounds must be positive")
	}
	return cfg, nil
}

func busyPolicy(s string) (throughcache.BusyPolicy, error) {
	switch strings.ToLower(s) {
	case "wait":
		return throughcache.BusyWait, nil
	case "bypass":
		return throughcache.BusyBypass, nil
	case "failfast":
		return throughcache.BusyFailFast, nil
	}
	return 0, fmt.Errorf("unknown busy policy %q", s)
}

func newCodec(s string) (codec.Codec[Pong], error) {
	switch strings.ToLower(s) {
	case "json":
		return codec.JSON[Pong]{}, nil
	case "msgpack":
		return codec.Msgpack[Pong]{}, nil
	case "cbor":
		c, err := codec.NewCBOR[Pong](true)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown codec %q", s)
}

// newBackend returns the backend and, for redis, a generation store shared
// with other processes.
func newBackend(cfg config, log *zap.Logger) (backend.Backend, genstore.GenStore, error) {
	switch cfg.backend {
	case "noop":
		return noop.Backend{Trace: func(op, key string) {
			log.Debug("noop backend", zap.String("op", op), zap.String("key", key))
		}}, nil, nil
	case "ristretto":
		b, err := ristretto.New(ristretto.Config{
			NumCounters: 1e4,
			MaxCost:     1 << 20,
			BufferItems: 64,
			Cost:        func(_ string, v []byte) int64 { return int64(len(v)) },
			SyncWrites:  true,
		})
		return b, nil, err
	case "bigcache":
		b, err := bigcache.New(bigcache.Config{LifeWindow: 10 * time.Minute, CleanWindow: time.Minute})
		return b, nil, err
	case "disk":
		dir := cfg.dir
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "pingpong-cache")
		}
		b, err := disk.New(disk.Config{Dir: dir})
		return b, nil, err
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.redisAddr})
		b, err := rbackend.New(rbackend.Config{Client: rdb, CloseClient: true})
		if err != nil {
			return nil, nil, err
		}
		return b, genstore.NewRedisGenStore(rdb, cfg.ns), nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.backend)
}

// run returns how many pings reached the actor.
func run(ctx context.Context, cfg config, log *zap.Logger) (int64, error) {
	cd, err := newCodec(cfg.codec)
	if err != nil {
		return 0, err
	}
	busy, err := busyPolicy(cfg.busy)
	if err != nil {
		return 0, err
	}
	be, gs, err := newBackend(cfg, log)
	if err != nil {
		return 0, err
	}

	cache, err := throughcache.New[Pong](throughcache.Options[Pong]{
		Namespace:  cfg.ns,
		Backend:    be,
		Codec:      cd,
		GenStore:   gs,
		Logger:     zaplog.New(log),
		DefaultTTL: cfg.ttl,
		// the actor is slow; waiters must outlast it
		LockTimeout: cfg.delay + 5*time.Second,
		BusyPolicy:  busy,
	})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := cache.Close(context.Background()); err != nil {
			log.Warn("close cache", zap.Error(err))
		}
	}()

	a := startActor(cfg.delay, cfg.n)
	defer a.stop()

	for round := 1; round <= cfg.rounds; round++ {
		start := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < cfg.n; i++ {
			g.Go(func() error {
				pong, err := cache.Execute(gctx, throughcache.Bind[Ping, Pong](Ping{ID: cfg.id}, a))
				if err != nil {
					return err
				}
				log.Info("got reply",
					zap.Int("round", round),
					zap.Int("caller", i),
					zap.Stringer("pong", pong),
					zap.Time("answered", pong.Answered))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return a.handled.Load(), fmt.Errorf("round %d: %w", round, err)
		}
		log.Info("round done",
			zap.Int("round", round),
			zap.Duration("took", time.Since(start)),
			zap.Int64("actorCalls", a.handled.Load()))
	}
	return a.handled.Load(), nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	zcfg := zap.NewDevelopmentConfig()
	if !cfg.debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	log, err := zcfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	calls, err := run(ctx, cfg, log)
	if err != nil {
		log.Error("pingpong failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Printf("%d pings x %d rounds, %d reached the actor\n", cfg.n, cfg.rounds, calls)
}
