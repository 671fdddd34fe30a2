package graph

import (
	"context"
	"fmt"

	"github.com/tanpawarit/research-agent/internal/agent/graph/prompts"
	"github.com/tanpawarit/research-agent/internal/agent/graph/tools"
	"github.com/tanpawarit/research-agent/internal/agent/llm"
)

var webpageSummarySchema = llm.ObjectSchema{
	Name: "webpage_summary",
	Fields: []llm.Field{
		{Name: "summary", Description: "Concise summary of the webpage content"},
		{Name: "key_excerpts", Description: "Important quotes and excerpts from the content"},
	},
}

type webpageSummary struct {
	Summary     string `json:"summary"`
	KeyExcerpts string `json:"key_excerpts"`
}

// NewWebpageSummarizer condenses raw search page content with a structured-output model.
// Errors are returned as-is; the search tool falls back to truncated raw content.
func NewWebpageSummarizer(gen llm.StructuredGenerator) tools.Summarizer {
	return tools.SummarizerFunc(func(ctx context.Context, content string) (string, error) {
		prompt, err := prompts.RenderSummarizeWebpage(ctx, content)
		if err != nil {
			return "", err
		}

		var out webpageSummary
		if err := gen.GenerateJSON(ctx, prompt, webpageSummarySchema, &out); err != nil {
			return "", fmt.Errorf("summarize webpage: %w", err)
		}
		return fmt.Sprintf("<summary>\n%s\n</summary>\n\n<key_excerpts>\n%s\n</key_excerpts>", out.Summary, out.KeyExcerpts), nil
	})
}
