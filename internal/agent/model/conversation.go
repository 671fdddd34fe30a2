package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// FirstCheckpointStep is the step recorded for the very first checkpoint of a conversation.
const FirstCheckpointStep = -1

type ConversationRepository interface {
	// Load returns the last checkpoint for the conversation, or nil when none exists.
	Load(ctx context.Context, conversationID string) (*Checkpoint, error)

	// Save replaces the stored history with messages and advances the step counter.
	Save(ctx context.Context, conversationID string, messages []*schema.Message) (*Checkpoint, error)

	// Delete removes all stored history for the conversation.
	Delete(ctx context.Context, conversationID string) error
}

// Checkpoint is the persisted form of a conversation.
type Checkpoint struct {
	ConversationID string            `json:"conversation_id"`
	Messages       []*schema.Message `json:"messages"`
	Step           int               `json:"step"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NextStep returns the step the next checkpoint after prev must carry.
func NextStep(prev *Checkpoint) int {
	if prev == nil {
		return FirstCheckpointStep
	}
	return prev.Step + 1
}
