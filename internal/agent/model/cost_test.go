package model

import (
	"math"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestResolvePricing(t *testing.T) {
	t.Parallel()

	cases := []struct {
		model string
		want  Pricing
	}{
		{"gemini-2.5-flash", Pricing{InputPerM: 0.30, OutputPerM: 2.50}},
		{"models/gemini-2.5-flash-lite", Pricing{InputPerM: 0.10, OutputPerM: 0.40}},
		{"gemini-2.5-flash-lite-preview-06-17", Pricing{InputPerM: 0.10, OutputPerM: 0.40}},
		{"gpt-4o-mini-2024-07-18", Pricing{InputPerM: 0.15, OutputPerM: 0.60}},
		{"unknown-model", Pricing{}},
	}
	for _, tc := range cases {
		if got := ResolvePricing(tc.model); got != tc.want {
			t.Fatalf("pricing mismatch for %q: got=%+v want=%+v", tc.model, got, tc.want)
		}
	}
}

func TestComputeCost(t *testing.T) {
	t.Parallel()

	usage := &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000}
	in, out, total := ComputeCost(usage, Pricing{InputPerM: 0.30, OutputPerM: 2.50})
	if math.Abs(in-0.30) > 1e-9 || math.Abs(out-1.25) > 1e-9 || math.Abs(total-1.55) > 1e-9 {
		t.Fatalf("cost mismatch: in=%v out=%v total=%v", in, out, total)
	}

	if _, _, total := ComputeCost(nil, Pricing{InputPerM: 1}); total != 0 {
		t.Fatalf("nil usage cost mismatch: got=%v want=0", total)
	}
}
