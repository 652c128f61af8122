package conversations

import (
	"context"
	"fmt"

	"github.com/bank-of-trust/bankbot-core/internal/agent/model"

	"github.com/cloudwego/eino/schema"
)

// MessagesManager keeps the per-session transcript. The dialogue core never reads it back
// to make decisions; it is for audit and the terminal "history" command.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.DialogueConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         config.Transcript.MaxTurns,
	}
}

// TurnRecord carries the diagnostics attached to the assistant message.
type TurnRecord struct {
	Intent     string
	Confidence float64
	Fallback   bool
	Route      string
}

// RecordTurn saves the user message and the bot reply, then trims the transcript.
// An empty user text (a settle result) records the reply only.
func (cm *MessagesManager) RecordTurn(ctx context.Context, sessionID, userText, botText string, rec TurnRecord) error {
	if userText != "" {
		if err := cm.conversationRepo.AddMessage(ctx, sessionID, schema.UserMessage(userText)); err != nil {
			return err
		}
	}

	assistantMsg := schema.AssistantMessage(botText, nil)
	assistantMsg.Extra = map[string]any{
		model.ExtraIntent:     rec.Intent,
		model.ExtraConfidence: rec.Confidence,
		model.ExtraFallback:   rec.Fallback,
		model.ExtraRoute:      rec.Route,
	}
	if err := cm.conversationRepo.AddMessage(ctx, sessionID, assistantMsg); err != nil {
		return err
	}

	if cm.maxTurns > 0 {
		return cm.conversationRepo.TrimHistory(ctx, sessionID, cm.maxTurns*2)
	}
	return nil
}

// Recent returns at most the last n messages.
func (cm *MessagesManager) Recent(ctx context.Context, sessionID string, n int) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return trimTail(history.Messages, n), nil
}

func (cm *MessagesManager) Clear(ctx context.Context, sessionID string) error {
	return cm.conversationRepo.ClearHistory(ctx, sessionID)
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, max int) []*schema.Message {
	if max < 0 {
		max = 0
	}
	if len(messages) <= max {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-max:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
