package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/tanpawarit/research-agent/internal/agent/model"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

// ChatModels holds the tool-calling research model and the plain summary model.
type ChatModels struct {
	Research          einomodel.ChatModel
	Summary           einomodel.BaseChatModel
	ResearchModelName string
	SummaryModelName  string
	CompressMaxTokens int
}

// NewChatModels creates both chat models with the given configuration.
func (p *Provider) NewChatModels(ctx context.Context, research model.ResearchModelConfig, summary model.SummaryModelConfig) (*ChatModels, error) {
	var (
		researchModel einomodel.ChatModel
		summaryModel  einomodel.BaseChatModel
	)

	switch p.name {
	case ProviderGemini:
		rm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      p.gemini,
			Model:       research.Model,
			Temperature: &research.Temperature,
			MaxTokens:   &research.MaxTokens,
		})
		if err != nil {
			logx.Error().Err(err).Msg("Error creating research model")
			return nil, fmt.Errorf("error creating research model: %w", err)
		}
		sm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      p.gemini,
			Model:       summary.Model,
			Temperature: &summary.Temperature,
			MaxTokens:   &summary.MaxTokens,
		})
		if err != nil {
			logx.Error().Err(err).Msg("Error creating summary model")
			return nil, fmt.Errorf("error creating summary model: %w", err)
		}
		researchModel, summaryModel = rm, sm

	case ProviderOpenAI:
		researchModel = NewOpenAIChatModel(p.openai, research.Model, research.MaxTokens, research.Temperature)
		summaryModel = NewOpenAIChatModel(p.openai, summary.Model, summary.MaxTokens, summary.Temperature)

	default:
		return nil, fmt.Errorf("unknown LLM provider %q", p.name)
	}

	compressMax := summary.CompressMaxTokens
	if compressMax <= summary.MaxTokens {
		compressMax = summary.MaxTokens * 2
	}

	return &ChatModels{
		Research:          researchModel,
		Summary:           summaryModel,
		ResearchModelName: research.Model,
		SummaryModelName:  summary.Model,
		CompressMaxTokens: compressMax,
	}, nil
}
