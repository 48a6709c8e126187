// Package throughcache is a read-through cache for request/response calls.
// A request that knows its own cache key is answered from a shared backend
// when possible; on a miss exactly one caller per key takes a backend lock,
// calls the upstream, stores the result and releases the lock, while other
// callers for the same key wait, bypass or fail fast (BusyPolicy).
//
// Components:
//   - Backend: byte store with TTL plus a per-key lock (Redis, Ristretto,
//     BigCache, disk, noop). Releasing a lock is a Delete of its key.
//   - Codec[V]: (de)serializes V <-> []byte.
//   - GenStore: generation counter per key. Entries are stamped with the
//     generation observed before the upstream call and written only if it is
//     still current, so Invalidate wins over a population already in flight.
//
// Keys:
//
//	entry:<ns>:<key>  - cached response
//	lock:<ns>:<key>   - population lock
//
// Usage:
//
//	c, _ := throughcache.New[Pong](throughcache.Options[Pong]{
//		Namespace: "ping",
//		Backend:   redisbackend,
//		Codec:     codec.JSON[Pong]{},
//	})
//	pong, err := c.Execute(ctx, throughcache.Bind[Ping, Pong](Ping{ID: 42}, actor))
//
// Backend faults never turn into stale reads: lookups and lock attempts that
// fail fall back to the upstream (FallbackUpstream) or fail the request
// (FailRequest), and store or release failures are logged and reported to
// Hooks while the caller still gets its value.
package throughcache
