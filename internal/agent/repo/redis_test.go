package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T, ttl time.Duration) (*RedisConversationRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisConversationRepository(rdb, ttl), mr
}

func TestRedisConversationRepository(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisRepo(t, time.Hour)

	h, err := r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, h.Messages)

	require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage("hi")))
	require.NoError(t, r.AddMessage(ctx, "s1", schema.AssistantMessage("Hello!", nil)))
	require.NoError(t, r.AddMessage(ctx, "s2", schema.UserMessage("other")))
	assert.Equal(t, time.Hour, mr.TTL(transcriptKey("s1")))

	n, err := r.GetMessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	h, err = r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 2)
	assert.Equal(t, schema.User, h.Messages[0].Role)
	assert.Equal(t, "Hello!", h.Messages[1].Content)

	require.NoError(t, r.ClearHistory(ctx, "s1"))
	n, err = r.GetMessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = r.GetMessageCount(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedisConversationRepository_TrimKeepsNewest(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisRepo(t, 0)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, r.AddMessage(ctx, "s", schema.UserMessage(s)))
	}
	assert.Zero(t, mr.TTL(transcriptKey("s")))

	require.NoError(t, r.TrimHistory(ctx, "s", 0))
	n, err := r.GetMessageCount(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, r.TrimHistory(ctx, "s", 2))
	h, err := r.LoadHistory(ctx, "s")
	require.NoError(t, err)
	require.Len(t, h.Messages, 2)
	assert.Equal(t, "d", h.Messages[0].Content)
	assert.Equal(t, "e", h.Messages[1].Content)

	require.NoError(t, r.TrimHistory(ctx, "s", 10))
	n, err = r.GetMessageCount(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRedisConversationRepository_ExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisRepo(t, time.Minute)
	require.NoError(t, r.AddMessage(ctx, "s", schema.UserMessage("hi")))

	mr.FastForward(30 * time.Second)
	require.NoError(t, r.AddMessage(ctx, "s", schema.UserMessage("again")))
	assert.Equal(t, time.Minute, mr.TTL(transcriptKey("s")))

	mr.FastForward(2 * time.Minute)
	n, err := r.GetMessageCount(ctx, "s")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisConversationRepository_CorruptEntry(t *testing.T) {
	r, mr := newRedisRepo(t, 0)
	_, err := mr.Push(transcriptKey("s"), "{")
	require.NoError(t, err)

	_, err = r.LoadHistory(context.Background(), "s")
	assert.ErrorContains(t, err, "index 0")
}
