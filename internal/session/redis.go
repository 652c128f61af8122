package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	errx "github.com/bank-of-trust/bankbot-core/internal/core/error"
	logx "github.com/bank-of-trust/bankbot-core/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLock deletes the lock key only while it still holds our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps contexts as JSON documents that expire after the session TTL.
// Turns of one session are serialized with a SET NX lease so several replicas can share it.
type RedisStore struct {
	rdb       redis.Cmdable
	ttl       time.Duration
	lease     time.Duration
	retryWait time.Duration
}

type RedisStoreOption func(*RedisStore)

// WithLease sets how long a lock is held before Redis expires it on its own.
func WithLease(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.lease = d }
}

// WithRetryWait sets the polling interval while waiting for a busy lock.
func WithRetryWait(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.retryWait = d }
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{rdb: rdb, ttl: ttl, lease: 10 * time.Second, retryWait: 25 * time.Millisecond}
	for _, o := range opts {
		o(s)
	}
	return s
}

func contextKey(sessionID string) string {
	return fmt.Sprintf("session:%s:context", sessionID)
}

func lockKey(sessionID string) string {
	return fmt.Sprintf("session:%s:lock", sessionID)
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Context, error) {
	key := contextKey(sessionID)
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(sessionID), nil
	}
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load session context from redis")
		return nil, errx.WrapRedis(err)
	}
	c, err := decode(raw)
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to unmarshal session context")
		return nil, err
	}
	return c, nil
}

func (s *RedisStore) Put(ctx context.Context, c *Context) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal session context: %w", err)
	}
	key := contextKey(c.SessionID)
	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to store session context")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) Lock(ctx context.Context, sessionID string) (Unlock, error) {
	key := lockKey(sessionID)
	token := uuid.NewString()
	for {
		ok, err := s.rdb.SetNX(ctx, key, token, s.lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			logx.Error().Err(err).Str("key", key).Msg("failed to acquire session lock")
			return nil, errx.WrapRedis(err)
		}
		if ok {
			break
		}
		t := time.NewTimer(s.retryWait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ErrLockTimeout
		case <-t.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// the turn context may already be cancelled; release on a fresh one
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseLock.Run(rctx, s.rdb, []string{key}, token).Err(); err != nil {
			logx.Warn().Err(err).Str("key", key).Msg("failed to release session lock; lease will expire")
		}
	}, nil
}

func decode(raw []byte) (*Context, error) {
	var c Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("unmarshal session context: %w", err)
	}
	if c.Slots == nil {
		c.Slots = map[string]string{}
	}
	return &c, nil
}

var _ Store = (*RedisStore)(nil)
