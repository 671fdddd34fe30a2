package graph

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tanpawarit/research-agent/internal/agent/llm"
)

type fakeGenerator struct {
	prompt string
	schema llm.ObjectSchema
	reply  string
	err    error
}

func (g *fakeGenerator) GenerateJSON(_ context.Context, prompt string, schema llm.ObjectSchema, out any) error {
	g.prompt, g.schema = prompt, schema
	if g.err != nil {
		return g.err
	}
	return json.Unmarshal([]byte(g.reply), out)
}

func TestWebpageSummarizerFormatsSummaryAndExcerpts(t *testing.T) {
	gen := &fakeGenerator{reply: `{"summary":"Paris is the capital.","key_excerpts":"\"Paris\""}`}
	got, err := NewWebpageSummarizer(gen).Summarize(context.Background(), "RAW PAGE BODY")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	want := "<summary>\nParis is the capital.\n</summary>\n\n<key_excerpts>\n\"Paris\"\n</key_excerpts>"
	if got != want {
		t.Fatalf("summary mismatch: got=%q want=%q", got, want)
	}
	if !strings.Contains(gen.prompt, "RAW PAGE BODY") {
		t.Fatalf("prompt does not embed the page content")
	}
	if gen.schema.Name != "webpage_summary" || len(gen.schema.Fields) != 2 {
		t.Fatalf("schema mismatch: got=%+v", gen.schema)
	}
}

func TestWebpageSummarizerPropagatesErrors(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota")}
	if _, err := NewWebpageSummarizer(gen).Summarize(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
}
