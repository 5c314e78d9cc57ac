// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Failover composes the Redis backend with the in-memory fallback.
//
// While Redis is healthy every write is mirrored to the fallback, so a flip
// loses no session content. The first Redis error trips the flip; from then
// on all operations go to the fallback and Redis is never retried for the
// remainder of the process lifetime. Mirror-write failures before the flip
// are logged and ignored: the fallback is a warm standby, not a second
// source of truth.
type Failover struct {
	primary  Backend
	fallback Backend
	logger   *slog.Logger

	degraded atomic.Bool
	flipOnce sync.Once

	// OnFailover, if set, is invoked exactly once when the flip trips.
	// main wires the degraded-mode metric through it.
	OnFailover func()
}

// NewFailover wraps primary and fallback. logger must not be nil.
func NewFailover(primary, fallback Backend, logger *slog.Logger) *Failover {
	return &Failover{primary: primary, fallback: fallback, logger: logger}
}

// NewMemoryOnly returns a Failover pinned to the given in-memory backend, for
// deployments that run without Redis. It reports the memory backend and
// degraded mode from the start; OnFailover is never invoked.
func NewMemoryOnly(backend Backend, logger *slog.Logger) *Failover {
	f := &Failover{primary: backend, fallback: backend, logger: logger}
	f.degraded.Store(true)
	f.flipOnce.Do(func() {})
	return f
}

// Backend reports which backend is currently serving operations.
func (f *Failover) Backend() BackendKind {
	if f.degraded.Load() {
		return BackendMemory
	}
	return BackendRedis
}

// Degraded reports whether the store has flipped to the fallback.
func (f *Failover) Degraded() bool {
	return f.degraded.Load()
}

// flip trips the one-directional switch to the fallback.
func (f *Failover) flip(op string, err error) {
	f.flipOnce.Do(func() {
		f.degraded.Store(true)
		f.logger.Error("session store failing over to in-memory backend",
			"op", op, "error", err)
		if f.OnFailover != nil {
			f.OnFailover()
		}
	})
}

// Get reads from the active backend. A primary failure flips to the fallback
// and the read is retried there, so a key written before the flip is still
// readable with identical content.
func (f *Failover) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !f.degraded.Load() {
		value, found, err := f.primary.Get(ctx, key)
		if err == nil {
			return value, found, nil
		}
		f.flip("get", err)
	}
	return f.fallback.Get(ctx, key)
}

// SetWithTTL writes to the active backend. Before the flip the write also
// lands in the fallback so failover preserves content.
func (f *Failover) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !f.degraded.Load() {
		if mirrorErr := f.fallback.SetWithTTL(ctx, key, value, ttl); mirrorErr != nil {
			f.logger.Warn("fallback mirror write failed", "key", key, "error", mirrorErr)
		}
		err := f.primary.SetWithTTL(ctx, key, value, ttl)
		if err == nil {
			return nil
		}
		f.flip("set", err)
	}
	return f.fallback.SetWithTTL(ctx, key, value, ttl)
}

// Delete removes the key from the active backend, and from the fallback too
// while the primary is healthy, so the mirror never resurrects a deleted
// session after a flip.
func (f *Failover) Delete(ctx context.Context, key string) (bool, error) {
	if !f.degraded.Load() {
		if _, mirrorErr := f.fallback.Delete(ctx, key); mirrorErr != nil {
			f.logger.Warn("fallback mirror delete failed", "key", key, "error", mirrorErr)
		}
		removed, err := f.primary.Delete(ctx, key)
		if err == nil {
			return removed, nil
		}
		f.flip("delete", err)
	}
	return f.fallback.Delete(ctx, key)
}

// Close closes both backends.
func (f *Failover) Close() error {
	perr := f.primary.Close()
	ferr := f.fallback.Close()
	if perr != nil {
		return perr
	}
	return ferr
}
