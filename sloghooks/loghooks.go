// Package sloghooks logs cache events with log/slog. Keys are redacted by
// default since they may carry user identifiers.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/throughcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	FallbackEvery uint64
	BusyEvery     uint64
	// Lookups are high volume: 0 = never log, otherwise every Nth.
	LookupEvery uint64
	// Upstream calls slower than this are logged at Warn; 0 = never.
	SlowUpstream time.Duration
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	fallbackCtr atomic.Uint64
	busyCtr     atomic.Uint64
	lookupCtr   atomic.Uint64
}

var _ throughcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Lookup(storageKey string, hit bool) {
	if h.l == nil || h.opts.LookupEvery == 0 || !sample(h.opts.LookupEvery, &h.lookupCtr) {
		return
	}
	h.l.Debug("throughcache.lookup",
		"key", h.redact(storageKey),
		"hit", hit)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("throughcache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) BackendError(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("throughcache.backend_error",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) LockBusy(storageKey string) {
	if h.l == nil || !sample(h.opts.BusyEvery, &h.busyCtr) {
		return
	}
	h.l.Debug("throughcache.lock_busy",
		"key", h.redact(storageKey))
}

func (h *Hooks) LockExpired(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("throughcache.lock_expired",
		"key", h.redact(storageKey))
}

func (h *Hooks) Fallback(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.FallbackEvery, &h.fallbackCtr) {
		return
	}
	h.l.Info("throughcache.fallback",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) UpstreamCall(storageKey string, took time.Duration, err error) {
	if h.l == nil {
		return
	}
	switch {
	case err != nil:
		h.l.Warn("throughcache.upstream_error",
			"key", h.redact(storageKey),
			"took", took,
			"err", err)
	case h.opts.SlowUpstream > 0 && took >= h.opts.SlowUpstream:
		h.l.Warn("throughcache.upstream_slow",
			"key", h.redact(storageKey),
			"took", took)
	}
}

func (h *Hooks) StoreFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("throughcache.store_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) StoreRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("throughcache.store_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) GenSnapshotError(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("throughcache.gen_snapshot_error",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) GenBumpError(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("throughcache.gen_bump_error",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) InvalidateOutage(key string, bumpErr, delErr error) {
	if h.l == nil {
		return
	}
	h.l.Error("throughcache.invalidate_outage",
		"key", h.redact(key),
		"bump_err", bumpErr,
		"del_err", delErr)
}
