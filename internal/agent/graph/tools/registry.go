package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/memory"
	"github.com/tanpawarit/research-agent/internal/agent/model"
	"github.com/tanpawarit/research-agent/internal/agent/search"
)

// Deps are the collaborators the tools call into.
type Deps struct {
	Variant    model.Variant
	Searcher   search.Searcher
	Summarizer Summarizer
	// Memory is optional; memory tools are registered only when it is set.
	Memory     memory.Store
	MemoryTopK int
}

// Registry is the closed dispatch table from tool name to implementation.
type Registry struct {
	order []ToolName
	tools map[ToolName]tool.InvokableTool
}

// NewRegistry registers the tools available to the given variant.
func NewRegistry(d Deps) (*Registry, error) {
	if d.Searcher == nil {
		return nil, fmt.Errorf("tools: searcher is required")
	}

	r := &Registry{tools: make(map[ToolName]tool.InvokableTool)}

	format := FormatSourceBlocks
	if d.Variant == model.VariantSimple {
		format = FormatJSON
	}
	r.register(ToolTavilySearch, createTavilySearchTool(d.Searcher, d.Summarizer, format))

	if d.Variant != model.VariantSimple {
		r.register(ToolThink, createThinkTool())
	}
	if d.Memory != nil {
		r.register(ToolSaveToMemory, createSaveToMemoryTool(d.Memory))
		r.register(ToolRetrieveFromMemory, createRetrieveFromMemoryTool(d.Memory, d.MemoryTopK))
	}
	return r, nil
}

func (r *Registry) register(name ToolName, t tool.InvokableTool) {
	r.order = append(r.order, name)
	r.tools[name] = t
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []ToolName {
	out := make([]ToolName, len(r.order))
	copy(out, r.order)
	return out
}

// Infos returns the tool schemas to bind to the chat model.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		info, err := r.tools[name].Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool %s info: %w", name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Dispatch runs one tool call. On failure the returned content is the
// placeholder to record and err carries the cause.
func (r *Registry) Dispatch(ctx context.Context, call schema.ToolCall) (string, error) {
	name, err := ParseToolName(call.Function.Name)
	if err != nil {
		return fmt.Sprintf("Error: %s is not a valid tool.", call.Function.Name), err
	}
	t, ok := r.tools[name]
	if !ok {
		err = fmt.Errorf("tool %q is not enabled", name)
		return fmt.Sprintf("Error: %s is not a valid tool.", name), err
	}

	args := call.Function.Arguments
	if args == "" {
		args = "{}"
	}
	out, err := t.InvokableRun(ctx, args)
	if err != nil {
		return name.failureMessage(err), err
	}
	return out, nil
}
