package conversations

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bank-of-trust/bankbot-core/internal/agent/model"
	"github.com/bank-of-trust/bankbot-core/internal/agent/repo"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(maxTurns int) *MessagesManager {
	var cfg model.DialogueConfig
	cfg.Transcript.MaxTurns = maxTurns
	return NewMessagesManager(repo.NewMemoryConversationRepository(), cfg)
}

func TestRecordTurn(t *testing.T) {
	ctx := context.Background()
	m := newManager(10)

	require.NoError(t, m.RecordTurn(ctx, "s", "balance", "The available balance is ₹1,000.", TurnRecord{
		Intent: "check_balance", Confidence: 0.97, Route: "free_text",
	}))

	msgs, err := m.Recent(ctx, "s", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, "balance", msgs[0].Content)
	assert.Equal(t, schema.Assistant, msgs[1].Role)
	assert.Equal(t, "check_balance", msgs[1].Extra[model.ExtraIntent])
	assert.Equal(t, 0.97, msgs[1].Extra[model.ExtraConfidence])
	assert.Equal(t, false, msgs[1].Extra[model.ExtraFallback])
	assert.Equal(t, "free_text", msgs[1].Extra[model.ExtraRoute])
}

func TestRecordTurn_ReplyOnly(t *testing.T) {
	ctx := context.Background()
	m := newManager(10)

	require.NoError(t, m.RecordTurn(ctx, "s", "", "Transfer successful.", TurnRecord{}))
	msgs, err := m.Recent(ctx, "s", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, schema.Assistant, msgs[0].Role)
}

func TestRecordTurn_TrimsToMaxTurns(t *testing.T) {
	ctx := context.Background()
	m := newManager(2)

	for _, q := range []string{"one", "two", "three"} {
		require.NoError(t, m.RecordTurn(ctx, "s", q, "re "+q, TurnRecord{}))
	}
	msgs, err := m.Recent(ctx, "s", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, "re three", msgs[3].Content)
}

func TestRecordTurn_TrimsRedisTranscript(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var cfg model.DialogueConfig
	cfg.Transcript.MaxTurns = 2
	m := NewMessagesManager(repo.NewRedisConversationRepository(rdb, time.Hour), cfg)

	for _, q := range []string{"one", "two", "three"} {
		require.NoError(t, m.RecordTurn(ctx, "s", q, "re "+q, TurnRecord{Intent: "greet"}))
	}
	stored, err := mr.List("transcript:s:messages")
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	msgs, err := m.Recent(ctx, "s", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, "greet", msgs[3].Extra[model.ExtraIntent])
}

func TestTrimTail(t *testing.T) {
	msgs := []*schema.Message{schema.UserMessage("a"), schema.UserMessage("b"), schema.UserMessage("c")}

	got := trimTail(msgs, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Content)

	got = trimTail(msgs, 5)
	assert.Len(t, got, 3)
	got[0] = nil
	assert.NotNil(t, msgs[0])

	assert.Empty(t, trimTail(msgs, -1))
}
