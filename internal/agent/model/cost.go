package model

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

var defaultPricing = map[string]Pricing{
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
	"gpt-4o":                {InputPerM: 2.50, OutputPerM: 10.00},
	"gpt-4o-mini":           {InputPerM: 0.15, OutputPerM: 0.60},
	"gpt-4.1":               {InputPerM: 2.00, OutputPerM: 8.00},
	"gpt-4.1-mini":          {InputPerM: 0.40, OutputPerM: 1.60},
}

// ResolvePricing returns the pricing of the longest known model name that
// prefixes model, so dated or "models/"-qualified names resolve too. Unknown
// models cost zero.
func ResolvePricing(model string) Pricing {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(model)), "models/")
	if p, ok := defaultPricing[name]; ok {
		return p
	}
	best := ""
	for known := range defaultPricing {
		if strings.HasPrefix(name, known+"-") && len(known) > len(best) {
			best = known
		}
	}
	return defaultPricing[best]
}

// ComputeCost converts token usage to USD cost using per-1M Pricing.
func ComputeCost(usage *schema.TokenUsage, p Pricing) (inputCost, outputCost, total float64) {
	if usage == nil {
		return 0, 0, 0
	}
	inputCost = p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0
	outputCost = p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0
	return inputCost, outputCost, inputCost + outputCost
}
