package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Embedder turns text into a dense vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// NewEmbedder returns the embedder of the configured provider.
func (p *Provider) NewEmbedder(modelName string, dimensions int) (Embedder, error) {
	switch p.name {
	case ProviderGemini:
		return &geminiEmbedder{client: p.gemini, model: modelName, dims: dimensions}, nil
	case ProviderOpenAI:
		return &openAIEmbedder{client: p.openai, model: modelName, dims: dimensions}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", p.name)
	}
}

type geminiEmbedder struct {
	client *genai.Client
	model  string
	dims   int
}

func (e *geminiEmbedder) Dimensions() int { return e.dims }

func (e *geminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{}
	if e.dims > 0 {
		cfg.OutputDimensionality = genai.Ptr(int32(e.dims))
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini embed: empty response")
	}
	return resp.Embeddings[0].Values, nil
}

type openAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

func (e *openAIEmbedder) Dimensions() int { return e.dims }

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dims,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai embed: empty response")
	}
	return resp.Data[0].Embedding, nil
}
