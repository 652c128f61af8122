package repo

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryConversationRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryConversationRepository()

	require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage("hi")))
	require.NoError(t, r.AddMessage(ctx, "s1", schema.AssistantMessage("Hello!", nil)))
	require.NoError(t, r.AddMessage(ctx, "s2", schema.UserMessage("other")))

	n, err := r.GetMessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	h, err := r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", h.SessionID)
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

func TestMemoryConversationRepository_Trim(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryConversationRepository()
	for _, s := range []string{"a", "b", "c", "d"} {
		require.NoError(t, r.AddMessage(ctx, "s", schema.UserMessage(s)))
	}

	require.NoError(t, r.TrimHistory(ctx, "s", 0))
	n, _ := r.GetMessageCount(ctx, "s")
	assert.Equal(t, 4, n)

	require.NoError(t, r.TrimHistory(ctx, "s", 2))
	h, err := r.LoadHistory(ctx, "s")
	require.NoError(t, err)
	require.Len(t, h.Messages, 2)
	assert.Equal(t, "c", h.Messages[0].Content)
	assert.Equal(t, "d", h.Messages[1].Content)
}

func TestDecodeMessages(t *testing.T) {
	b, err := json.Marshal(schema.AssistantMessage("ok", nil))
	require.NoError(t, err)

	msgs, err := decodeMessages([]string{string(b)})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, schema.Assistant, msgs[0].Role)

	_, err = decodeMessages([]string{string(b), "{"})
	assert.ErrorContains(t, err, "index 1")
}

func TestTranscriptKey(t *testing.T) {
	assert.Equal(t, "transcript:abc:messages", transcriptKey("abc"))
}
