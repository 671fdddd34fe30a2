// Package llm builds the hosted model collaborators: chat models for the
// orchestration graph, embedders for vector memory and a structured-output
// generator for webpage summaries. Gemini is reached through eino-ext and the
// genai SDK; OpenAI through go-openai.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/tanpawarit/research-agent/internal/agent/model"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Provider holds the SDK client of the configured LLM vendor.
type Provider struct {
	name   string
	gemini *genai.Client
	openai *openai.Client
}

// NewProvider creates the SDK client selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg model.ProviderConfig) (*Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for provider %q", ProviderGemini)
		}
		clientCfg := &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if cfg.GeminiBaseURL != "" {
			clientCfg.HTTPOptions.BaseURL = cfg.GeminiBaseURL
		}
		client, err := genai.NewClient(ctx, clientCfg)
		if err != nil {
			logx.Error().Err(err).Msg("Error creating Gemini client")
			return nil, fmt.Errorf("error creating Gemini client: %w", err)
		}
		return &Provider{name: ProviderGemini, gemini: client}, nil

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider %q", ProviderOpenAI)
		}
		clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
		if cfg.OpenAIBaseURL != "" {
			clientCfg.BaseURL = cfg.OpenAIBaseURL
		}
		return &Provider{name: ProviderOpenAI, openai: openai.NewClientWithConfig(clientCfg)}, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}
