package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/tanpawarit/research-agent/internal/agent/model"
)

// NewAllCallbacks aggregates all observer handlers (node trace, model, prompt) into one callbacks.Handler.
func NewAllCallbacks(variant model.Variant) einocb.Handler {
	nodeHandler := newNodeHandler(variant)

	return callbackHelper.NewHandlerHelper().
		Lambda(nodeHandler).
		Graph(nodeHandler).
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}
