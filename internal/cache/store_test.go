// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	ferr "seedfast/forcebridge/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Read(ctx, "salesforce", "prod_login")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Write(ctx, "salesforce", "prod_login", []byte(`{"token":"a"}`)))
	require.NoError(t, s.Write(ctx, "salesforce", "Contact_sObject", []byte(`{}`)))
	require.NoError(t, s.Write(ctx, "other", "prod_login", []byte(`x`)))

	got, ok, err := s.Read(ctx, "salesforce", "prod_login")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"token":"a"}`, string(got))

	require.NoError(t, s.Write(ctx, "salesforce", "prod_login", []byte(`{"token":"b"}`)))
	got, _, _ = s.Read(ctx, "salesforce", "prod_login")
	assert.Equal(t, `{"token":"b"}`, string(got))

	require.NoError(t, s.Delete(ctx, "salesforce", "prod_login"))
	_, ok, _ = s.Read(ctx, "salesforce", "prod_login")
	assert.False(t, ok)

	require.NoError(t, s.Clear(ctx, "salesforce"))
	_, ok, _ = s.Read(ctx, "salesforce", "Contact_sObject")
	assert.False(t, ok)

	_, ok, _ = s.Read(ctx, "other", "prod_login")
	assert.True(t, ok, "clear must not touch other namespaces")
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory(time.Hour))
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(time.Hour)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Write(ctx, "ns", "k", []byte("v")))
	now = now.Add(59 * time.Minute)
	_, ok, _ := m.Read(ctx, "ns", "k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = m.Read(ctx, "ns", "k")
	assert.False(t, ok)
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	buf := []byte("abc")
	require.NoError(t, m.Write(ctx, "ns", "k", buf))
	buf[0] = 'z'
	got, _, _ := m.Read(ctx, "ns", "k")
	assert.Equal(t, "abc", string(got))
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	s, err := OpenSQLite(context.Background(), path, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	exerciseStore(t, s)
}

func TestSQLite_ExpiryAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := OpenSQLite(ctx, path, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "ns", "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	got, ok, err := s.Read(ctx, "ns", "k")
	require.NoError(t, err)
	require.True(t, ok, "entries survive reopening")
	assert.Equal(t, "v", string(got))

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok, err = s.Read(ctx, "ns", "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Options{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	s.Close()

	_, err = Open(ctx, Options{Backend: "redis"})
	assert.True(t, ferr.IsKind(err, ferr.Configuration))

	_, err = Open(ctx, Options{Backend: "postgres", DSN: "mysql://x"})
	var dsnErr *DSNError
	assert.True(t, errors.As(err, &dsnErr))
}

type payload struct {
	Token string `json:"token"`
	N     int    `json:"n"`
}

func TestRemember(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(time.Hour)
	var calls atomic.Int32
	fn := func(context.Context) (payload, error) {
		calls.Add(1)
		return payload{Token: "t", N: 7}, nil
	}

	v, err := Remember(ctx, s, "ns", "k", fn)
	require.NoError(t, err)
	assert.Equal(t, payload{Token: "t", N: 7}, v)

	v, err = Remember(ctx, s, "ns", "k", fn)
	require.NoError(t, err)
	assert.Equal(t, payload{Token: "t", N: 7}, v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemember_ErrorNotStored(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(time.Hour)
	boom := errors.New("boom")

	_, err := Remember(ctx, s, "ns", "k", func(context.Context) (payload, error) { return payload{}, boom })
	assert.ErrorIs(t, err, boom)

	_, ok, _ := s.Read(ctx, "ns", "k")
	assert.False(t, ok)
}

func TestRemember_CorruptEntryRecomputed(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(time.Hour)
	require.NoError(t, s.Write(ctx, "ns", "k", []byte("not json")))

	v, err := Remember(ctx, s, "ns", "k", func(context.Context) (payload, error) { return payload{N: 1}, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, v.N)

	got, ok, err := Get[payload](ctx, s, "ns", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, got.N)
}
