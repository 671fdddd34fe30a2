package prompts

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	now = func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) }
	m.Run()
}

func TestRenderResearchSystemListsMemoryToolsOnlyWhenEnabled(t *testing.T) {
	with, err := RenderResearchSystem(context.Background(), SystemConfig{MemoryEnabled: true, MaxToolCalls: 10})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(with, "save_to_memory") || !strings.Contains(with, "After 10 tool results") {
		t.Fatalf("research prompt missing memory tools or limit:\n%s", with)
	}
	if !strings.Contains(with, "Fri Mar 14, 2025") {
		t.Fatalf("research prompt missing date")
	}

	without, err := RenderResearchSystem(context.Background(), SystemConfig{MaxToolCalls: 10})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(without, "save_to_memory") {
		t.Fatalf("memory tools listed while disabled")
	}
}

func TestRenderCompressReturnsSystemAndHuman(t *testing.T) {
	sys, human, err := RenderCompress(context.Background())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if sys.Role != "system" || human.Role != "user" {
		t.Fatalf("roles mismatch: got=%q,%q", sys.Role, human.Role)
	}
	if !strings.Contains(human.Content, "clean up these findings") {
		t.Fatalf("human instruction mismatch: %q", human.Content)
	}
}

func TestRenderSummarizeWebpageKeepsTemplateSyntaxInContent(t *testing.T) {
	out, err := RenderSummarizeWebpage(context.Background(), "page with {{.Date}} braces")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "page with {{.Date}} braces") {
		t.Fatalf("content was re-templated:\n%s", out)
	}
}
