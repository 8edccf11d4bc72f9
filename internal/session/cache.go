// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session caches authenticated remote sessions per connection so a
// login happens at most once per cache lifetime.
package session

import (
	"context"

	"seedfast/forcebridge/internal/cache"
	ferr "seedfast/forcebridge/internal/errors"
	"seedfast/forcebridge/internal/logging"
	"seedfast/forcebridge/internal/remote"

	"github.com/pterm/pterm"
	"golang.org/x/sync/singleflight"
)

// Namespace groups session entries in the host cache.
const Namespace = "salesforce"

// LoginFunc performs a fresh login.
type LoginFunc func(ctx context.Context) (remote.Session, error)

// Cache hands out sessions keyed by connection name. Concurrent misses for the
// same connection share a single login.
type Cache struct {
	store cache.Store
	group singleflight.Group
	log   *pterm.Logger
}

// New creates a session cache over store.
func New(store cache.Store, log *pterm.Logger) *Cache {
	return &Cache{store: store, log: logging.OrNop(log)}
}

// Key is the cache key for a connection's session.
func Key(connection string) string { return connection + "_login" }

// GetOrCreate returns the cached session for connection, calling login on a miss.
// A failed login stores nothing and returns an Authentication error (or the
// Configuration error login reported).
func (c *Cache) GetOrCreate(ctx context.Context, connection string, login LoginFunc) (remote.Session, error) {
	if s, ok := c.lookup(ctx, connection); ok {
		return s, nil
	}

	v, err, _ := c.group.Do(connection, func() (any, error) {
		if s, ok := c.lookup(ctx, connection); ok {
			return s, nil
		}

		s, err := login(ctx)
		if err != nil {
			c.log.Warn("login failed", c.log.Args("connection", connection, "error", logging.Mask(err.Error())))
			if ferr.IsKind(err, ferr.Configuration) {
				return nil, err
			}
			return nil, ferr.Wrap(ferr.Authentication, "login to "+connection+" failed", err)
		}

		if err := cache.Put(ctx, c.store, Namespace, Key(connection), s); err != nil {
			c.log.Warn("session not cached", c.log.Args("connection", connection, "error", err.Error()))
		}
		c.log.Debug("logged in", c.log.Args("connection", connection, "instance", s.InstanceURL))
		return s, nil
	})
	if err != nil {
		return remote.Session{}, err
	}
	return v.(remote.Session), nil
}

// Invalidate forgets the cached session so the next call logs in again.
func (c *Cache) Invalidate(ctx context.Context, connection string) error {
	return c.store.Delete(ctx, Namespace, Key(connection))
}

func (c *Cache) lookup(ctx context.Context, connection string) (remote.Session, bool) {
	s, ok, err := cache.Get[remote.Session](ctx, c.store, Namespace, Key(connection))
	if err != nil {
		c.log.Warn("session cache unreadable", c.log.Args("connection", connection, "error", err.Error()))
		return remote.Session{}, false
	}
	if !ok || s.Token == "" || s.InstanceURL == "" {
		return remote.Session{}, false
	}
	return s, true
}
