// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"seedfast/forcebridge/internal/cache"
	ferr "seedfast/forcebridge/internal/errors"
	"seedfast/forcebridge/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingLogin(calls *atomic.Int32, token string) LoginFunc {
	return func(context.Context) (remote.Session, error) {
		calls.Add(1)
		return remote.Session{Token: token, InstanceURL: "https://na1.example.com", AcquiredAt: time.Now()}, nil
	}
}

func TestGetOrCreate_LogsInOnceWithinTTL(t *testing.T) {
	ctx := context.Background()
	c := New(cache.NewMemory(time.Hour), nil)
	var calls atomic.Int32

	s1, err := c.GetOrCreate(ctx, "prod", countingLogin(&calls, "00D1"))
	require.NoError(t, err)
	s2, err := c.GetOrCreate(ctx, "prod", countingLogin(&calls, "00D2"))
	require.NoError(t, err)

	assert.Equal(t, "00D1", s1.Token)
	assert.Equal(t, "00D1", s2.Token)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrCreate_StoresUnderConnectionKey(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory(time.Hour)
	c := New(store, nil)
	var calls atomic.Int32

	_, err := c.GetOrCreate(ctx, "prod", countingLogin(&calls, "00D1"))
	require.NoError(t, err)

	raw, ok, err := store.Read(ctx, "salesforce", "prod_login")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"sessionId":"00D1"`)
	assert.Contains(t, string(raw), `"serverUrl":"https://na1.example.com"`)
}

func TestGetOrCreate_FailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory(time.Hour)
	c := New(store, nil)

	_, err := c.GetOrCreate(ctx, "prod", func(context.Context) (remote.Session, error) {
		return remote.Session{}, errors.New("INVALID_LOGIN: Invalid username, password, security token")
	})
	require.Error(t, err)
	assert.True(t, ferr.IsKind(err, ferr.Authentication))

	_, ok, _ := store.Read(ctx, Namespace, Key("prod"))
	assert.False(t, ok)

	var calls atomic.Int32
	_, err = c.GetOrCreate(ctx, "prod", countingLogin(&calls, "00D9"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "failed login must not be cached")
}

func TestGetOrCreate_ConfigurationErrorKeepsKind(t *testing.T) {
	c := New(cache.NewMemory(time.Hour), nil)
	_, err := c.GetOrCreate(context.Background(), "prod", func(context.Context) (remote.Session, error) {
		return remote.Session{}, ferr.New(ferr.Configuration, "client_id is required")
	})
	assert.True(t, ferr.IsKind(err, ferr.Configuration))
}

func TestGetOrCreate_ConcurrentMissesShareOneLogin(t *testing.T) {
	ctx := context.Background()
	c := New(cache.NewMemory(time.Hour), nil)
	var calls atomic.Int32
	release := make(chan struct{})
	login := func(context.Context) (remote.Session, error) {
		calls.Add(1)
		<-release
		return remote.Session{Token: "00D", InstanceURL: "https://x"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.GetOrCreate(ctx, "prod", login)
			assert.NoError(t, err)
			assert.Equal(t, "00D", s.Token)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c := New(cache.NewMemory(time.Hour), nil)
	var calls atomic.Int32

	_, err := c.GetOrCreate(ctx, "prod", countingLogin(&calls, "00D1"))
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, "prod"))

	s, err := c.GetOrCreate(ctx, "prod", countingLogin(&calls, "00D2"))
	require.NoError(t, err)
	assert.Equal(t, "00D2", s.Token)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetOrCreate_SeparateConnections(t *testing.T) {
	ctx := context.Background()
	c := New(cache.NewMemory(time.Hour), nil)
	var calls atomic.Int32

	a, _ := c.GetOrCreate(ctx, "prod", countingLogin(&calls, "prod-token"))
	b, _ := c.GetOrCreate(ctx, "sandbox", countingLogin(&calls, "sandbox-token"))
	assert.Equal(t, "prod-token", a.Token)
	assert.Equal(t, "sandbox-token", b.Token)
	assert.Equal(t, int32(2), calls.Load())
}
