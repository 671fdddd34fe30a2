package nodes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/graph/prompts"
	"github.com/tanpawarit/research-agent/internal/agent/model"
	"github.com/tanpawarit/research-agent/internal/agent/trace"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

// ================ model ================

// NewModelPreHandler builds the prompt for the research model. History already
// holds the node input, appended by the runner or the tools node.
func NewModelPreHandler(sys prompts.SystemConfig) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, _ []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		state.Steps++
		history := cloneMessages(state.Messages)

		// The simple variant stores its system prompt in history.
		if state.Variant == model.VariantSimple {
			return history, nil
		}

		systemPrompt, err := prompts.RenderResearchSystem(ctx, sys)
		if err != nil {
			return nil, fmt.Errorf("render research system prompt: %w", err)
		}
		return append([]*schema.Message{schema.SystemMessage(systemPrompt)}, history...), nil
	}
}

// NewModelNode calls the tool-bound research model.
func NewModelNode(chatModel einomodel.BaseChatModel) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, prompt []*schema.Message) (*schema.Message, error) {
		logx.Debug().Msg("AI thinking...")
		return generate(ctx, chatModel, NodeModel, prompt)
	})
}

// NewModelPostHandler normalizes tool call ids, records usage cost and appends
// the assistant message to history.
func NewModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return nil, errors.New("model returned no message")
		}

		// Some providers omit tool_call ids.
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		recordUsage(state, NodeModel, modelName, out)
		state.Messages = append(state.Messages, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Str("conversation_id", state.ConversationID).Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Str("conversation_id", state.ConversationID).Msg("AI response ready")
		}
		return out, nil
	}
}

// NewModelBranchCondition routes after the model: to tools while tool calls
// are pending and the limits allow it, otherwise to the finishing node.
func NewModelBranchCondition(variant model.Variant, limits Limits) func(context.Context, *schema.Message) (string, error) {
	finish := NodeCompress
	if variant == model.VariantSimple {
		finish = compose.END
	}

	return func(ctx context.Context, out *schema.Message) (string, error) {
		if !HasPendingToolCalls(out) {
			logx.Debug().Str("next", finish).Msg("No tool calls - finishing")
			return finish, nil
		}

		var (
			limited bool
			results int
			steps   int
		)
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limited = checkAndMarkToolLimit(state, limits)
			results = turnToolResults(state)
			steps = state.Steps
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}

		if limited {
			logx.Warn().
				Int("tool_results", results).
				Int("steps", steps).
				Int("max_tool_results", normalizeMaxToolResults(limits.MaxToolResults)).
				Int("recursion_limit", normalizeRecursionLimit(limits.RecursionLimit)).
				Msg("Tool limit reached - finishing")
			return finish, nil
		}

		logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Routing to tools")
		return NodeTools, nil
	}
}

// ================ tools ================

// NewToolsPreHandler counts the tools step.
func NewToolsPreHandler() func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(_ context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		state.Steps++
		logx.Debug().
			Str("conversation_id", state.ConversationID).
			Int("tool_count", len(in.ToolCalls)).
			Int("tool_results", turnToolResults(state)).
			Msg("Tool execution attempt")
		return in, nil
	}
}

// NewToolsNode executes every pending tool call of the assistant message as one batch.
func NewToolsNode(d Dispatcher, sequential bool) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in *schema.Message) ([]*schema.Message, error) {
		if in == nil {
			return nil, nil
		}
		return ExecuteToolCalls(ctx, d, in.ToolCalls, sequential), nil
	})
}

// NewToolsPostHandler appends the tool results to history.
func NewToolsPostHandler() func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(_ context.Context, out []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		state.Messages = append(state.Messages, out...)
		return out, nil
	}
}

// ================ compress ================

// NewCompressPreHandler drops an unanswered tool request before compression.
func NewCompressPreHandler() func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(_ context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		state.Steps++
		before := len(state.Messages)
		state.Messages = dropTrailingToolRequest(state.Messages, state.TurnStart)
		if len(state.Messages) < before {
			logx.Debug().Str("conversation_id", state.ConversationID).Msg("Dropped unanswered tool request before compression")
		}
		return in, nil
	}
}

// NewCompressNode rewrites the turn's findings into the final answer with the summary model.
func NewCompressNode(summaryModel einomodel.BaseChatModel, maxTokens int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) (*schema.Message, error) {
		var history []*schema.Message
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			history = cloneMessages(state.Messages)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		system, human, err := prompts.RenderCompress(ctx)
		if err != nil {
			return nil, err
		}

		prompt := make([]*schema.Message, 0, len(history)+2)
		prompt = append(prompt, system)
		for _, m := range history {
			if m != nil && m.Role != schema.System {
				prompt = append(prompt, m)
			}
		}
		prompt = append(prompt, human)

		return generate(ctx, summaryModel, NodeCompress, prompt, einomodel.WithMaxTokens(maxTokens))
	})
}

// NewCompressPostHandler records usage and appends the final answer to history.
func NewCompressPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(_ context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return nil, errors.New("compress returned no message")
		}
		recordUsage(state, NodeCompress, modelName, out)
		state.Messages = append(state.Messages, out)
		return out, nil
	}
}

// ================ helpers ================

// generate calls chatModel, streaming tokens to the turn's recorder when a
// consumer is attached.
func generate(ctx context.Context, chatModel einomodel.BaseChatModel, node string, prompt []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	rec := trace.FromContext(ctx)
	rec.Emit(trace.Event{Kind: trace.KindModelStart, Name: node, Node: node, Messages: prompt})

	var out *schema.Message
	if rec.Streaming() {
		sr, err := chatModel.Stream(ctx, prompt, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s stream: %w", node, err)
		}
		defer sr.Close()

		var chunks []*schema.Message
		for {
			chunk, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("%s stream recv: %w", node, err)
			}
			if chunk == nil {
				continue
			}
			chunks = append(chunks, chunk)
			rec.Emit(trace.Event{Kind: trace.KindModelStream, Name: node, Node: node, Chunk: chunk})
		}

		if len(chunks) == 0 {
			out = schema.AssistantMessage("", nil)
		} else {
			out, err = schema.ConcatMessages(chunks)
			if err != nil {
				return nil, fmt.Errorf("%s concat stream: %w", node, err)
			}
		}
	} else {
		var err error
		out, err = chatModel.Generate(ctx, prompt, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s generate: %w", node, err)
		}
	}

	rec.Emit(trace.Event{Kind: trace.KindModelEnd, Name: node, Node: node, Message: out})
	return out, nil
}

// recordUsage computes and logs usage cost for one model call.
func recordUsage(state *model.AppState, node, modelName string, out *schema.Message) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra["usage_cost"] = map[string]any{
		"currency":          "USD",
		"model":             modelName,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"input_cost":        inC,
		"output_cost":       outC,
		"total_cost":        totalC,
	}

	// Accumulate only total cost into state
	state.TotalCostUSD += totalC

	logx.Debug().
		Str("conversation_id", state.ConversationID).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("total_cost_usd", totalC).
		Float64("turn_cost_usd", state.TotalCostUSD).
		Msg("LLM usage")
}
