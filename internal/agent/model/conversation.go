package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Extra keys set on assistant transcript messages.
const (
	ExtraIntent     = "intent"
	ExtraConfidence = "confidence"
	ExtraFallback   = "fallback"
	ExtraRoute      = "route"
)

type ConversationRepository interface {
	// AddMessage appends a message to the session transcript
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// LoadHistory retrieves the transcript of a session
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)

	// ClearHistory removes the transcript of a session
	ClearHistory(ctx context.Context, sessionID string) error

	// GetMessageCount returns the number of messages in the transcript
	GetMessageCount(ctx context.Context, sessionID string) (int, error)

	// TrimHistory keeps only the newest max messages
	TrimHistory(ctx context.Context, sessionID string, max int) error
}

// ConversationHistory represents a loaded transcript.
type ConversationHistory struct {
	SessionID string
	Messages  []*schema.Message
}
