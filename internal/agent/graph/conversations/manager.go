package conversations

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/model"
)

// SystemPromptFunc renders the system prompt stored at conversation creation.
type SystemPromptFunc func(ctx context.Context) (string, error)

// MessagesManager loads a conversation into per-turn state and persists it at turn end.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	variant          model.Variant
	systemPrompt     SystemPromptFunc
}

func NewMessagesManager(conversationRepo model.ConversationRepository, variant model.Variant, systemPrompt SystemPromptFunc) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		variant:          variant,
		systemPrompt:     systemPrompt,
	}
}

// Begin loads the conversation history, seeding a new conversation when none
// exists, and appends the user's query.
func (cm *MessagesManager) Begin(ctx context.Context, conversationID, query string) (*model.AppState, error) {
	checkpoint, err := cm.conversationRepo.Load(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	var history []*schema.Message
	if checkpoint != nil {
		history = append(history, checkpoint.Messages...)
	} else if history, err = cm.seed(ctx); err != nil {
		return nil, err
	}

	state := &model.AppState{
		ConversationID: conversationID,
		Variant:        cm.variant,
		Messages:       history,
		TurnStart:      len(history),
	}
	state.Messages = append(state.Messages, schema.UserMessage(query))
	return state, nil
}

// seed returns the initial history of a new conversation.
func (cm *MessagesManager) seed(ctx context.Context) ([]*schema.Message, error) {
	if cm.variant != model.VariantSimple || cm.systemPrompt == nil {
		return nil, nil
	}
	prompt, err := cm.systemPrompt(ctx)
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}
	return []*schema.Message{schema.SystemMessage(prompt)}, nil
}

// Commit persists the full history of the turn.
func (cm *MessagesManager) Commit(ctx context.Context, state *model.AppState) (*model.Checkpoint, error) {
	checkpoint, err := cm.conversationRepo.Save(ctx, state.ConversationID, state.Messages)
	if err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	return checkpoint, nil
}

// Clear deletes the conversation.
func (cm *MessagesManager) Clear(ctx context.Context, conversationID string) error {
	return cm.conversationRepo.Delete(ctx, conversationID)
}
