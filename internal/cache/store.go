// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cache provides the host key/value cache that session and schema
// caching sit on. Entries are grouped by namespace and expire after a fixed
// time-to-live chosen when the store is opened.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ferr "seedfast/forcebridge/internal/errors"
)

// DefaultTTL matches the one-hour lifetime remote sessions are reused for.
const DefaultTTL = time.Hour

// Store is a namespaced byte cache. Implementations are safe for concurrent use.
type Store interface {
	// Read returns the stored value and true, or false when the key is absent or expired.
	Read(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Write(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	// Clear drops every entry of a namespace.
	Clear(ctx context.Context, namespace string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Backend is one of "memory", "sqlite" or "postgres". Empty means memory.
	Backend string
	// Path is the SQLite database file.
	Path string
	// DSN is the Postgres connection string.
	DSN string
	TTL time.Duration
}

// Open returns the backend named by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	switch opts.Backend {
	case "", "memory":
		return NewMemory(ttl), nil
	case "sqlite":
		return OpenSQLite(ctx, opts.Path, ttl)
	case "postgres":
		return OpenPostgres(ctx, opts.DSN, ttl)
	default:
		return nil, ferr.Newf(ferr.Configuration, "unknown cache backend %q (use memory, sqlite or postgres)", opts.Backend)
	}
}

// Remember returns the JSON-decoded value under key, computing and storing it
// with fn on a miss. A value that fails to decode counts as a miss.
func Remember[T any](ctx context.Context, s Store, namespace, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	raw, ok, err := s.Read(ctx, namespace, key)
	if err != nil {
		return zero, err
	}
	if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
	}

	v, err := fn(ctx)
	if err != nil {
		return zero, err
	}
	if err := Put(ctx, s, namespace, key, v); err != nil {
		return zero, err
	}
	return v, nil
}

// Get decodes the JSON value under key into T.
func Get[T any](ctx context.Context, s Store, namespace, key string) (T, bool, error) {
	var v T
	raw, ok, err := s.Read(ctx, namespace, key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, nil
	}
	return v, true, nil
}

// Put stores v JSON-encoded under key.
func Put[T any](ctx context.Context, s Store, namespace, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s/%s: %w", namespace, key, err)
	}
	return s.Write(ctx, namespace, key, raw)
}
