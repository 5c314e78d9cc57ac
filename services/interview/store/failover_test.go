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
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyBackend is an in-memory Backend that starts failing on demand.
type flakyBackend struct {
	data    map[string][]byte
	failing bool
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{data: make(map[string][]byte)}
}

var errBackendDown = errors.New("connection refused")

func (b *flakyBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	if b.failing {
		return nil, false, errBackendDown
	}
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *flakyBackend) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	if b.failing {
		return errBackendDown
	}
	b.data[key] = value
	return nil
}

func (b *flakyBackend) Delete(_ context.Context, key string) (bool, error) {
	if b.failing {
		return false, errBackendDown
	}
	_, ok := b.data[key]
	delete(b.data, key)
	return ok, nil
}

func (b *flakyBackend) Close() error { return nil }

func newTestFailover(t *testing.T, primary Backend) *Failover {
	t.Helper()
	fallback, err := NewMemoryStore(nil)
	require.NoError(t, err)
	t.Cleanup(func() { fallback.Close() })
	return NewFailover(primary, fallback, slog.Default())
}

// =============================================================================
// Failover Tests
// =============================================================================

func TestFailover_HealthyPrimaryServesReads(t *testing.T) {
	primary := newFlakyBackend()
	f := newTestFailover(t, primary)
	ctx := context.Background()

	require.NoError(t, f.SetWithTTL(ctx, "s1", []byte(`{"id":"s1"}`), time.Minute))

	value, found, err := f.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`{"id":"s1"}`), value)
	assert.Equal(t, BackendRedis, f.Backend())
	assert.False(t, f.Degraded())
}

func TestFailover_FlipPreservesContent(t *testing.T) {
	primary := newFlakyBackend()
	f := newTestFailover(t, primary)
	ctx := context.Background()

	payload := []byte(`{"session_id":"s1","status":"active"}`)
	require.NoError(t, f.SetWithTTL(ctx, "s1", payload, time.Minute))

	primary.failing = true

	value, found, err := f.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, found, "session written before the flip must survive it")
	assert.Equal(t, payload, value, "round-trip identity across the flip")
	assert.Equal(t, BackendMemory, f.Backend())
	assert.True(t, f.Degraded())
}

func TestFailover_FlipIsOneDirectional(t *testing.T) {
	primary := newFlakyBackend()
	f := newTestFailover(t, primary)
	ctx := context.Background()

	flips := 0
	f.OnFailover = func() { flips++ }

	primary.failing = true
	_, _, err := f.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, f.Backend())

	// Primary recovers, but the switch must not flip back.
	primary.failing = false
	require.NoError(t, f.SetWithTTL(ctx, "s2", []byte("x"), time.Minute))
	assert.Equal(t, BackendMemory, f.Backend())
	assert.Empty(t, primary.data, "no writes may reach the primary after the flip")

	// More failures must not re-trigger the hook.
	primary.failing = true
	_, _, _ = f.Get(ctx, "s2")
	assert.Equal(t, 1, flips, "failover hook fires exactly once")
}

func TestFailover_UnreachableStoreReadsAsAbsent(t *testing.T) {
	primary := newFlakyBackend()
	primary.failing = true
	f := newTestFailover(t, primary)

	_, found, err := f.Get(context.Background(), "never-written")
	require.NoError(t, err)
	assert.False(t, found, "unreachable store is indistinguishable from absent key")
}

func TestFailover_DeleteMirrorsBeforeFlip(t *testing.T) {
	primary := newFlakyBackend()
	f := newTestFailover(t, primary)
	ctx := context.Background()

	require.NoError(t, f.SetWithTTL(ctx, "s1", []byte("x"), time.Minute))
	removed, err := f.Delete(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, removed)

	// Flip; the mirror must not resurrect the deleted key.
	primary.failing = true
	_, found, err := f.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)
}

// =============================================================================
// MemoryStore Tests
// =============================================================================

func TestMemoryStore_TTLExpiry(t *testing.T) {
	s, err := NewMemoryStore(nil)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SetWithTTL(ctx, "short", []byte("v"), 50*time.Millisecond))

	_, found, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, found)

	time.Sleep(120 * time.Millisecond)

	_, found, err = s.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found, "key must expire after its TTL")
}

func TestMemoryStore_WriteResetsTTL(t *testing.T) {
	s, err := NewMemoryStore(nil)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SetWithTTL(ctx, "k", []byte("v1"), 80*time.Millisecond))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.SetWithTTL(ctx, "k", []byte("v2"), 80*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	// 100ms after the first write, but only 50ms after the second.
	value, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found, "sliding expiry: the second write must reset the TTL")
	assert.Equal(t, []byte("v2"), value)
}

func TestMemoryStore_DeleteReportsRemoval(t *testing.T) {
	s, err := NewMemoryStore(nil)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SetWithTTL(ctx, "k", []byte("v"), time.Minute))

	removed, err := s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, removed)
}
