package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Field is one required string property of a structured response.
type Field struct {
	Name        string
	Description string
}

// ObjectSchema describes a flat JSON object of required string fields.
type ObjectSchema struct {
	Name   string
	Fields []Field
}

// JSONSchema renders the schema as a JSON Schema document.
func (s ObjectSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = map[string]any{"type": "string", "description": f.Description}
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func (s ObjectSchema) genaiSchema() *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = &genai.Schema{Type: genai.TypeString, Description: f.Description}
		required = append(required, f.Name)
	}
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

// StructuredGenerator asks a model for output constrained to a fixed schema.
type StructuredGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, schema ObjectSchema, out any) error
}

// NewStructuredGenerator returns the structured-output generator of the configured provider.
func (p *Provider) NewStructuredGenerator(modelName string, temperature float32) (StructuredGenerator, error) {
	switch p.name {
	case ProviderGemini:
		return &geminiStructured{client: p.gemini, model: modelName, temperature: temperature}, nil
	case ProviderOpenAI:
		return &openAIStructured{client: p.openai, model: modelName, temperature: temperature}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", p.name)
	}
}

type geminiStructured struct {
	client      *genai.Client
	model       string
	temperature float32
}

func (g *geminiStructured) GenerateJSON(ctx context.Context, prompt string, schema ObjectSchema, out any) error {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.genaiSchema(),
	})
	if err != nil {
		return fmt.Errorf("gemini structured output: %w", err)
	}
	return decodeStructured(resp.Text(), out)
}

type openAIStructured struct {
	client      *openai.Client
	model       string
	temperature float32
}

func (o *openAIStructured) GenerateJSON(ctx context.Context, prompt string, schema ObjectSchema, out any) error {
	raw, err := json.Marshal(schema.JSONSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schema.Name,
				Schema: json.RawMessage(raw),
				Strict: true,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("openai structured output: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("openai structured output: no choices")
	}
	return decodeStructured(resp.Choices[0].Message.Content, out)
}

func decodeStructured(text string, out any) error {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), out); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	return nil
}
