package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/sourcegraph/conc/iter"

	"github.com/tanpawarit/research-agent/internal/agent/trace"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

// Dispatcher runs one tool call. On failure content is the placeholder to record.
type Dispatcher interface {
	Dispatch(ctx context.Context, call schema.ToolCall) (content string, err error)
}

// ExecuteToolCalls runs calls and returns exactly one tool result per call, in call order.
func ExecuteToolCalls(ctx context.Context, d Dispatcher, calls []schema.ToolCall, sequential bool) []*schema.Message {
	if len(calls) == 0 {
		return nil
	}

	run := func(call *schema.ToolCall) *schema.Message {
		return runToolCall(ctx, d, *call)
	}

	var results []*schema.Message
	if sequential {
		results = make([]*schema.Message, 0, len(calls))
		for i := range calls {
			results = append(results, run(&calls[i]))
		}
	} else {
		results = iter.Map(calls, run)
	}

	return ensureToolResults(calls, results)
}

func runToolCall(ctx context.Context, d Dispatcher, call schema.ToolCall) (msg *schema.Message) {
	rec := trace.FromContext(ctx)
	name := call.Function.Name

	rec.Emit(trace.Event{
		Kind:       trace.KindToolStart,
		Name:       name,
		Node:       NodeTools,
		ToolName:   name,
		ToolCallID: call.ID,
		Arguments:  call.Function.Arguments,
	})

	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("tool_name", name).Str("tool_call_id", call.ID).Interface("panic", r).Msg("Tool panicked")
			msg = schema.ToolMessage(fmt.Sprintf("Error: %s failed unexpectedly.", name), call.ID, schema.WithToolName(name))
		}
		rec.Emit(trace.Event{
			Kind:       trace.KindToolEnd,
			Name:       name,
			Node:       NodeTools,
			ToolName:   name,
			ToolCallID: call.ID,
			ToolOutput: msg.Content,
		})
	}()

	content, err := d.Dispatch(ctx, call)
	if err != nil {
		logx.Warn().Err(err).Str("tool_name", name).Str("tool_call_id", call.ID).Msg("Tool call failed; recording placeholder")
	}
	if strings.TrimSpace(content) == "" {
		content = fmt.Sprintf("Tool %s returned no output.", name)
	}
	return schema.ToolMessage(content, call.ID, schema.WithToolName(name))
}

// ensureToolResults pairs results with calls positionally, filling a
// placeholder wherever a result is missing or answers a different call.
func ensureToolResults(calls []schema.ToolCall, results []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, len(calls))
	for i, call := range calls {
		if i < len(results) && results[i] != nil && results[i].ToolCallID == call.ID {
			out[i] = results[i]
			continue
		}
		out[i] = schema.ToolMessage(
			fmt.Sprintf("Error: no result was produced for tool call %s.", call.ID),
			call.ID,
			schema.WithToolName(call.Function.Name),
		)
	}
	return out
}
