package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/graph/nodes"
	"github.com/tanpawarit/research-agent/internal/agent/model"
	"github.com/tanpawarit/research-agent/internal/agent/trace"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

// newNodeHandler turns node and graph lifecycle callbacks into chain trace
// events. Graph-level events carry no node tag.
func newNodeHandler(variant model.Variant) einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, input einocb.CallbackInput) context.Context {
			node, ok := nodeOf(info, input)
			if !ok {
				return ctx
			}
			trace.FromContext(ctx).Emit(trace.Event{
				Kind:  trace.KindChainStart,
				Name:  info.Name,
				Node:  node,
				Input: input,
			})
			logx.Debug().Str("node", info.Name).Str("component", string(info.Component)).Msg("Node start")
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, output einocb.CallbackOutput) context.Context {
			node, ok := nodeOf(info, output)
			if !ok {
				return ctx
			}
			trace.FromContext(ctx).Emit(trace.Event{
				Kind:   trace.KindChainEnd,
				Name:   info.Name,
				Node:   node,
				Output: output,
				Final:  isFinal(variant, node, output),
			})
			logx.Debug().Str("node", info.Name).Str("component", string(info.Component)).Msg("Node end")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("node", info.Name).Str("component", string(info.Component)).Msg("Node failed")
			return ctx
		}).
		Build()
}

// nodeOf returns the node tag for a lifecycle callback. Model callbacks that
// surface under a lambda's run info are skipped.
func nodeOf(info *einocb.RunInfo, payload any) (string, bool) {
	if info == nil {
		return "", false
	}
	switch payload.(type) {
	case *einomodel.CallbackInput, *einomodel.CallbackOutput:
		return "", false
	}
	switch info.Component {
	case compose.ComponentOfGraph:
		return "", true
	case compose.ComponentOfLambda:
		switch info.Name {
		case nodes.NodeModel, nodes.NodeTools, nodes.NodeCompress:
			return info.Name, true
		}
	}
	return "", false
}

func isFinal(variant model.Variant, node string, output any) bool {
	switch node {
	case nodes.NodeCompress:
		return true
	case nodes.NodeModel:
		msg, ok := output.(*schema.Message)
		return ok && variant == model.VariantSimple && !nodes.HasPendingToolCalls(msg)
	default:
		return false
	}
}
