package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/sourcegraph/conc/iter"

	"github.com/tanpawarit/research-agent/internal/agent/search"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

// NoResultsMessage is returned when the search endpoint yields nothing usable.
const NoResultsMessage = "No valid search results found. Please try different search queries."

const rawContentFallbackLimit = 1000

type TavilySearchInput struct {
	Query string `json:"query"`
}

// Summarizer condenses raw webpage content.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// SummarizerFunc adapts a function to Summarizer.
type SummarizerFunc func(ctx context.Context, content string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, content string) (string, error) {
	return f(ctx, content)
}

// SearchFormat selects how results are rendered for the model.
type SearchFormat int

const (
	// FormatSourceBlocks renders "--- SOURCE N: title ---" blocks with summaries.
	FormatSourceBlocks SearchFormat = iota
	// FormatJSON renders a JSON array of {title,url,content}.
	FormatJSON
)

type jsonResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

func createTavilySearchTool(searcher search.Searcher, summarizer Summarizer, format SearchFormat) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: string(ToolTavilySearch),
			Desc: "Fetch results from Tavily search API with content summarization. Use this to search for current information on the web.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "A single search query to execute",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *TavilySearchInput) (string, error) {
			if strings.TrimSpace(in.Query) == "" {
				return "", adapterFailure(errors.New("query is required"))
			}

			resp, err := searcher.Search(ctx, in.Query)
			if err != nil {
				return "", adapterFailure(err)
			}
			if resp == nil || len(resp.Results) == 0 {
				return NoResultsMessage, nil
			}

			if format == FormatJSON {
				out, err := formatJSON(resp.Results)
			if err != nil {
				return "", adapterFailure(err)
			}
			return out, nil
			}
			return formatSourceBlocks(ctx, resp.Results, summarizer), nil
		},
	)
}

func formatJSON(results []search.Result) (string, error) {
	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		out = append(out, jsonResult{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal search results: %w", err)
	}
	return string(b), nil
}

func formatSourceBlocks(ctx context.Context, results []search.Result, summarizer Summarizer) string {
	summaries := iter.Map(results, func(r *search.Result) string {
		if r.RawContent == "" {
			return r.Content
		}
		return summarizeOrTruncate(ctx, summarizer, r.RawContent)
	})

	var b strings.Builder
	b.WriteString("Search results:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n\n--- SOURCE %d: %s ---\n", i+1, r.Title)
		fmt.Fprintf(&b, "URL: %s\n\n", r.URL)
		fmt.Fprintf(&b, "SUMMARY:\n%s\n\n", summaries[i])
		b.WriteString(strings.Repeat("-", 80))
		b.WriteString("\n")
	}
	return b.String()
}

func summarizeOrTruncate(ctx context.Context, summarizer Summarizer, raw string) string {
	if summarizer != nil {
		summary, err := summarizer.Summarize(ctx, raw)
		if err == nil {
			return summary
		}
		logx.Warn().Err(err).Msg("Failed to summarize webpage")
	}
	return truncateUTF8(raw, rawContentFallbackLimit)
}

// truncateUTF8 cuts s to at most limit bytes on a rune boundary and marks the cut.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
