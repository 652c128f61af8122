package repo

import (
	"context"
	"sync"

	"github.com/bank-of-trust/bankbot-core/internal/agent/model"
	"github.com/cloudwego/eino/schema"
)

// MemoryConversationRepository keeps transcripts in process. Used when no Redis URL is
// configured and in tests.
type MemoryConversationRepository struct {
	mu   sync.Mutex
	msgs map[string][]*schema.Message
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{msgs: make(map[string][]*schema.Message)}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, sessionID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs[sessionID] = append(r.msgs[sessionID], message)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, sessionID string) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]*schema.Message, len(r.msgs[sessionID]))
	copy(msgs, r.msgs[sessionID])
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.msgs, sessionID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs[sessionID]), nil
}

func (r *MemoryConversationRepository) TrimHistory(_ context.Context, sessionID string, max int) error {
	if max <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if msgs := r.msgs[sessionID]; len(msgs) > max {
		r.msgs[sessionID] = append([]*schema.Message(nil), msgs[len(msgs)-max:]...)
	}
	return nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
