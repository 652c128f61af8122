package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, opts ...RedisStoreOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	opts = append([]RedisStoreOption{WithRetryWait(time.Millisecond)}, opts...)
	return NewRedisStore(rdb, 30*time.Minute, opts...), mr
}

func TestRedisStore_GetPut(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	fresh, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", fresh.SessionID)
	assert.False(t, mr.Exists(contextKey("s1")))

	c := New("s1")
	c.Enter("transfer", nil)
	c.Slots["to_account"] = "100002"
	c.TurnCount = 3
	require.NoError(t, s.Put(ctx, c))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "transfer", got.ActiveFlow)
	assert.Equal(t, "100002", got.Slots["to_account"])
	assert.Equal(t, 3, got.TurnCount)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestRedisStore_PutRejectsInvalid(t *testing.T) {
	s, mr := newRedisStore(t)
	c := New("s1")
	c.ActiveFlow = "transfer"
	assert.Error(t, s.Put(context.Background(), c))
	assert.False(t, mr.Exists(contextKey("s1")))
}

func TestRedisStore_ContextExpires(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	c := New("s1")
	c.TurnCount = 2
	require.NoError(t, s.Put(ctx, c))
	assert.Equal(t, 30*time.Minute, mr.TTL(contextKey("s1")))

	// every save renews the TTL
	mr.FastForward(20 * time.Minute)
	require.NoError(t, s.Put(ctx, c))
	assert.Equal(t, 30*time.Minute, mr.TTL(contextKey("s1")))

	mr.FastForward(31 * time.Minute)
	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, got.TurnCount)
}

func TestRedisStore_LockSerializesSameSession(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := s.Lock(ctx, "s1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.False(t, mr.Exists(lockKey("s1")))
}

func TestRedisStore_LockHonoursContext(t *testing.T) {
	s, mr := newRedisStore(t, WithLease(5*time.Second))
	unlock, err := s.Lock(context.Background(), "s1")
	require.NoError(t, err)
	defer unlock()
	assert.Equal(t, 5*time.Second, mr.TTL(lockKey("s1")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Lock(ctx, "s1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	other, err := s.Lock(context.Background(), "s2")
	require.NoError(t, err)
	other()
}

func TestRedisStore_StaleUnlockKeepsNewLease(t *testing.T) {
	s, mr := newRedisStore(t, WithLease(time.Second))

	stale, err := s.Lock(context.Background(), "s1")
	require.NoError(t, err)

	// the first holder overran its lease and a second turn took the lock
	mr.FastForward(2 * time.Second)
	current, err := s.Lock(context.Background(), "s1")
	require.NoError(t, err)
	held, err := mr.Get(lockKey("s1"))
	require.NoError(t, err)

	stale()
	after, err := mr.Get(lockKey("s1"))
	require.NoError(t, err)
	assert.Equal(t, held, after)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Lock(ctx, "s1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	current()
	current()
	assert.False(t, mr.Exists(lockKey("s1")))
}

func TestRedisStore_ServerErrors(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, s.rdb.Ping(context.Background()).Err())
	mr.SetError("READONLY replica")

	_, err := s.Get(context.Background(), "s1")
	assert.Error(t, err)
	assert.Error(t, s.Put(context.Background(), New("s1")))
	_, err = s.Lock(context.Background(), "s1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockTimeout)
}
