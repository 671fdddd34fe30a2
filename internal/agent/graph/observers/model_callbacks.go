package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

// newModelHandler builds a typed ModelCallbackHandler to log the latest user
// message and the assistant reply around model calls.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := logx.Debug().Str("model_type", info.Type).Str("name", info.Name)
			if input != nil {
				ev = ev.Int("message_count", len(input.Messages)).Int("tool_count", len(input.Tools))
				if um := lastUserContent(input.Messages); um != "" {
					ev = ev.Str("user", truncate(um, 200))
				}
			}
			ev.Msg("Model start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := logx.Debug().Str("model_type", info.Type).Str("name", info.Name)
			if output != nil && output.Message != nil {
				ev = ev.Int("tool_calls", len(output.Message.ToolCalls))
				if content := strings.TrimSpace(output.Message.Content); content != "" {
					ev = ev.Str("assistant", truncate(content, 200))
				}
			}
			ev.Msg("Model end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("model_type", info.Type).Str("name", info.Name).Msg("Model error")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
