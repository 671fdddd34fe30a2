// Package repo holds the conversation checkpoint stores.
package repo

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/model"
)

// MemoryConversationRepository keeps checkpoints in a process-local map.
// Nothing is evicted. The mutex only guards the map; concurrent turns on one
// conversation still race and the last save wins.
type MemoryConversationRepository struct {
	mu          sync.RWMutex
	checkpoints map[string]*model.Checkpoint
	now         func() time.Time
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		checkpoints: make(map[string]*model.Checkpoint),
		now:         time.Now,
	}
}

func (r *MemoryConversationRepository) Load(_ context.Context, conversationID string) (*model.Checkpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp, ok := r.checkpoints[conversationID]
	if !ok {
		return nil, nil
	}
	return cloneCheckpoint(cp), nil
}

func (r *MemoryConversationRepository) Save(_ context.Context, conversationID string, messages []*schema.Message) (*model.Checkpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := &model.Checkpoint{
		ConversationID: conversationID,
		Messages:       cloneMessages(messages),
		Step:           model.NextStep(r.checkpoints[conversationID]),
		UpdatedAt:      r.now().UTC(),
	}
	r.checkpoints[conversationID] = cp
	return cloneCheckpoint(cp), nil
}

func (r *MemoryConversationRepository) Delete(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkpoints, conversationID)
	return nil
}

func cloneCheckpoint(cp *model.Checkpoint) *model.Checkpoint {
	out := *cp
	out.Messages = cloneMessages(cp.Messages)
	return &out
}

func cloneMessages(in []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, len(in))
	copy(out, in)
	return out
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
