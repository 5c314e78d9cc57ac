// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store provides key-value session persistence with TTL.
//
// # Description
//
// Two backends implement the same contract: Redis (preferred, shared across
// service instances) and an in-process BadgerDB in memory mode (fallback).
// The Failover wrapper composes the two: it mirrors every write to the
// fallback while Redis is healthy, and on the first Redis failure it flips to
// the fallback for the remainder of the process lifetime. The flip is
// one-directional to avoid oscillation; which backend is active is
// observable via Backend(), not just logged.
//
// # TTL Semantics
//
// Every SetWithTTL resets the key's TTL, giving sliding expiry from the last
// write. A Get never extends a TTL.
//
// # Consistency
//
// No backend provides compare-and-swap or locking. Concurrent writers to one
// key race and the later write wins.
package store

import (
	"context"
	"time"
)

// BackendKind names the active backend for observability.
type BackendKind string

const (
	BackendRedis  BackendKind = "redis"
	BackendMemory BackendKind = "memory"
)

// Backend is the key-value contract both storage tiers implement.
//
// Get returns (nil, false, nil) for an absent key; callers cannot distinguish
// an expired key from one never written. SetWithTTL overwrites the value and
// resets the TTL. Delete reports whether a key was removed.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Close() error
}
