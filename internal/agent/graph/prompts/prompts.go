package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/graph/tools"
)

var (
	//go:embed template/research_system.txt
	researchSystemPrompt string
	//go:embed template/simple_system.txt
	simpleSystemPrompt string
	//go:embed template/compress_system.txt
	compressSystemPrompt string
	//go:embed template/compress_human.txt
	compressHumanPrompt string
	//go:embed template/summarize_webpage.txt
	summarizeWebpagePrompt string
)

// now is replaced in tests.
var now = time.Now

func today() string {
	return now().Format("Mon Jan 2, 2006")
}

// SystemConfig parameterises the system prompts.
type SystemConfig struct {
	MemoryEnabled bool
	MaxToolCalls  int
}

func (c SystemConfig) vars() map[string]any {
	return map[string]any{
		"Date":          today(),
		"SearchTool":    tools.ToolTavilySearch,
		"ThinkTool":     tools.ToolThink,
		"SaveTool":      tools.ToolSaveToMemory,
		"RetrieveTool":  tools.ToolRetrieveFromMemory,
		"MemoryEnabled": c.MemoryEnabled,
		"MaxToolCalls":  c.MaxToolCalls,
	}
}

// RenderResearchSystem renders the research loop's system prompt and triggers prompt callbacks.
func RenderResearchSystem(ctx context.Context, cfg SystemConfig) (string, error) {
	return renderSingle(ctx, "research system", schema.SystemMessage(researchSystemPrompt), cfg.vars())
}

// RenderSimpleSystem renders the system prompt stored once per conversation.
func RenderSimpleSystem(ctx context.Context, cfg SystemConfig) (string, error) {
	return renderSingle(ctx, "simple system", schema.SystemMessage(simpleSystemPrompt), cfg.vars())
}

// RenderCompress renders the compression system and human instructions.
func RenderCompress(ctx context.Context) (system *schema.Message, human *schema.Message, err error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(compressSystemPrompt),
		schema.UserMessage(compressHumanPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{"Date": today()})
	if err != nil {
		return nil, nil, fmt.Errorf("compress prompt render: %w", err)
	}
	if len(msgs) != 2 {
		return nil, nil, fmt.Errorf("compress prompt render: got %d messages", len(msgs))
	}
	return msgs[0], msgs[1], nil
}

// RenderSummarizeWebpage renders the webpage summarization instruction.
func RenderSummarizeWebpage(ctx context.Context, webpageContent string) (string, error) {
	return renderSingle(ctx, "summarize webpage", schema.UserMessage(summarizeWebpagePrompt), map[string]any{
		"Date":           today(),
		"WebpageContent": webpageContent,
	})
}

func renderSingle(ctx context.Context, name string, msg *schema.Message, vars map[string]any) (string, error) {
	tpl := prompt.FromMessages(schema.GoTemplate, msg)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs[0].Content, nil
}
