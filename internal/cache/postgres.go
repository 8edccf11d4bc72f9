// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS forcebridge_cache (
	namespace  TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      BYTEA       NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (namespace, key)
)`

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres shares one cache between several hosts running the adapter.
type Postgres struct {
	q     querier
	close func()
	ttl   time.Duration
	now   func() time.Time
}

// OpenPostgres connects a pool to dsn and creates the cache table if needed.
func OpenPostgres(ctx context.Context, dsn string, ttl time.Duration) (*Postgres, error) {
	normalized, err := NormalizePostgresDSN(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}
	s, err := newPostgres(ctx, pool, ttl)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.close = pool.Close
	return s, nil
}

func newPostgres(ctx context.Context, q querier, ttl time.Duration) (*Postgres, error) {
	if _, err := q.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to apply cache schema: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Postgres{q: q, ttl: ttl, now: time.Now}, nil
}

func (p *Postgres) Read(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var value []byte
	err := p.q.QueryRow(ctx,
		`SELECT value FROM forcebridge_cache WHERE namespace = $1 AND key = $2 AND expires_at > $3`,
		namespace, key, p.now(),
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres cache read %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

func (p *Postgres) Write(ctx context.Context, namespace, key string, value []byte) error {
	_, err := p.q.Exec(ctx,
		`INSERT INTO forcebridge_cache (namespace, key, value, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		namespace, key, value, p.now().Add(p.ttl),
	)
	if err != nil {
		return fmt.Errorf("postgres cache write %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, namespace, key string) error {
	if _, err := p.q.Exec(ctx, `DELETE FROM forcebridge_cache WHERE namespace = $1 AND key = $2`, namespace, key); err != nil {
		return fmt.Errorf("postgres cache delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (p *Postgres) Clear(ctx context.Context, namespace string) error {
	if _, err := p.q.Exec(ctx, `DELETE FROM forcebridge_cache WHERE namespace = $1`, namespace); err != nil {
		return fmt.Errorf("postgres cache clear %s: %w", namespace, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}
