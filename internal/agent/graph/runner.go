package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/graph/conversations"
	"github.com/tanpawarit/research-agent/internal/agent/graph/nodes"
	"github.com/tanpawarit/research-agent/internal/agent/graph/observers"
	"github.com/tanpawarit/research-agent/internal/agent/graph/tools"
	"github.com/tanpawarit/research-agent/internal/agent/model"
	"github.com/tanpawarit/research-agent/internal/agent/sources"
	"github.com/tanpawarit/research-agent/internal/agent/trace"
	errx "github.com/tanpawarit/research-agent/internal/core/error"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

// DefaultAnswer replaces an empty final answer.
const DefaultAnswer = "I wasn't able to produce an answer for that. Please try rephrasing your question."

// Runner executes one conversation turn through the compiled graph.
type Runner struct {
	runnable            compose.Runnable[[]*schema.Message, *schema.Message]
	mm                  *conversations.MessagesManager
	variant             model.Variant
	defaultConversation string
}

// Invoke runs a turn to completion.
func (r *Runner) Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error) {
	return r.run(ctx, in, nil)
}

// Stream runs a turn, forwarding execution-trace events to sink as they happen.
func (r *Runner) Stream(ctx context.Context, in model.QueryInput, sink trace.Sink) (*model.TurnResult, error) {
	if sink == nil {
		sink = trace.SinkFunc(func(trace.Event) {})
	}
	return r.run(ctx, in, sink)
}

// Clear deletes a conversation's history.
func (r *Runner) Clear(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return errx.BadRequest("Conversation id is required")
	}
	return r.mm.Clear(ctx, conversationID)
}

func (r *Runner) run(ctx context.Context, in model.QueryInput, sink trace.Sink) (*model.TurnResult, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, errx.BadRequest("Query is required")
	}
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		conversationID = r.defaultConversation
	}
	log := logx.Conversation(conversationID)

	state, err := r.mm.Begin(ctx, conversationID, query)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	ctx = trace.WithRecorder(ctx, trace.NewRecorder(sink))
	ctx = withState(ctx, state)

	human := state.Messages[len(state.Messages)-1]
	_, err = r.runnable.Invoke(ctx, []*schema.Message{human},
		compose.WithCallbacks(observers.NewAllCallbacks(r.variant)),
	)
	if err != nil {
		log.Error().Err(err).Msg("Graph execution failed")
		return nil, fmt.Errorf("run research graph: %w", err)
	}
	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Msg("Turn cancelled; not persisting")
		return nil, err
	}

	answer := finalize(state)
	found := sources.Extract(state.TurnMessages(), string(tools.ToolTavilySearch))

	checkpoint, err := r.mm.Commit(ctx, state)
	if err != nil {
		log.Error().Err(err).Msg("Error saving conversation")
		return nil, err
	}

	log.Info().
		Int("messages", len(state.Messages)).
		Int("sources", len(found)).
		Int("steps", state.Steps).
		Int("checkpoint_step", checkpoint.Step).
		Float64("total_cost_usd", state.TotalCostUSD).
		Dur("duration", time.Since(started)).
		Msg("Turn completed")

	return &model.TurnResult{
		ConversationID: conversationID,
		Response:       answer,
		Sources:        found,
		Messages:       state.Messages,
		CheckpointStep: checkpoint.Step,
		TotalCostUSD:   state.TotalCostUSD,
	}, nil
}

// finalize returns the turn's answer and leaves history ending in a plain
// assistant message: a forced finish can leave unanswered tool calls behind.
func finalize(state *model.AppState) string {
	n := len(state.Messages)
	if n == 0 {
		return DefaultAnswer
	}
	last := state.Messages[n-1]
	answer := strings.TrimSpace(last.Content)
	if answer == "" {
		answer = DefaultAnswer
	}
	if nodes.HasPendingToolCalls(last) {
		state.Messages[n-1] = schema.AssistantMessage(answer, nil)
	}
	return answer
}

type stateKey struct{}

func withState(ctx context.Context, s *model.AppState) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

func stateFromContext(ctx context.Context) *model.AppState {
	s, _ := ctx.Value(stateKey{}).(*model.AppState)
	return s
}
