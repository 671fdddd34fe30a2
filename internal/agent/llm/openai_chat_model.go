package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai"
)

// OpenAIChatModel adapts go-openai's chat completion API to eino's ChatModel.
type OpenAIChatModel struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	tools       []openai.Tool
}

var _ einomodel.ChatModel = (*OpenAIChatModel)(nil)

func NewOpenAIChatModel(client *openai.Client, model string, maxTokens int, temperature float32) *OpenAIChatModel {
	return &OpenAIChatModel{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// BindTools replaces the tool set advertised on every request.
func (m *OpenAIChatModel) BindTools(tools []*schema.ToolInfo) error {
	converted, err := toOpenAITools(tools)
	if err != nil {
		return err
	}
	m.tools = converted
	return nil
}

func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	req := m.request(input, opts)

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	out := fromOpenAIMessage(choice.Message)
	out.ResponseMeta = &schema.ResponseMeta{
		FinishReason: string(choice.FinishReason),
		Usage: &schema.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	return out, nil
}

func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	req := m.request(input, opts)
	req.Stream = true
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion stream failed: %w", err)
	}

	sr, sw := schema.Pipe[*schema.Message](16)
	go func() {
		defer sw.Close()
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				sw.Send(nil, fmt.Errorf("chat completion stream recv: %w", err))
				return
			}

			chunk := &schema.Message{Role: schema.Assistant}
			if len(resp.Choices) > 0 {
				delta := resp.Choices[0].Delta
				chunk.Content = delta.Content
				chunk.ToolCalls = fromOpenAIToolCalls(delta.ToolCalls)
				if fr := resp.Choices[0].FinishReason; fr != "" {
					chunk.ResponseMeta = &schema.ResponseMeta{FinishReason: string(fr)}
				}
			}
			if resp.Usage != nil {
				if chunk.ResponseMeta == nil {
					chunk.ResponseMeta = &schema.ResponseMeta{}
				}
				chunk.ResponseMeta.Usage = &schema.TokenUsage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				}
			}
			if closed := sw.Send(chunk, nil); closed {
				return
			}
		}
	}()

	return sr, nil
}

func (m *OpenAIChatModel) request(input []*schema.Message, opts []einomodel.Option) openai.ChatCompletionRequest {
	maxTokens, temperature := m.maxTokens, m.temperature
	common := einomodel.GetCommonOptions(&einomodel.Options{
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}, opts...)

	req := openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: toOpenAIMessages(input),
		Tools:    m.tools,
	}
	if common.MaxTokens != nil {
		req.MaxTokens = *common.MaxTokens
	}
	if common.Temperature != nil {
		req.Temperature = *common.Temperature
	}
	return req
}

func toOpenAIMessages(in []*schema.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(in))
	for _, msg := range in {
		if msg == nil {
			continue
		}
		oai := openai.ChatCompletionMessage{Content: msg.Content}
		switch msg.Role {
		case schema.System:
			oai.Role = openai.ChatMessageRoleSystem
		case schema.User:
			oai.Role = openai.ChatMessageRoleUser
		case schema.Assistant:
			oai.Role = openai.ChatMessageRoleAssistant
			for _, tc := range msg.ToolCalls {
				oai.ToolCalls = append(oai.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
		case schema.Tool:
			oai.Role = openai.ChatMessageRoleTool
			oai.ToolCallID = msg.ToolCallID
			oai.Name = msg.ToolName
		}
		out = append(out, oai)
	}
	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) *schema.Message {
	return &schema.Message{
		Role:      schema.Assistant,
		Content:   msg.Content,
		ToolCalls: fromOpenAIToolCalls(msg.ToolCalls),
	}
}

func fromOpenAIToolCalls(calls []openai.ToolCall) []schema.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]schema.ToolCall, 0, len(calls))
	for _, tc := range calls {
		out = append(out, schema.ToolCall{
			Index: tc.Index,
			ID:    tc.ID,
			Type:  string(tc.Type),
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out
}

func toOpenAITools(tools []*schema.ToolInfo) ([]openai.Tool, error) {
	out := make([]openai.Tool, 0, len(tools))
	for _, info := range tools {
		if info == nil {
			continue
		}
		var params any = map[string]any{"type": "object", "properties": map[string]any{}}
		if info.ParamsOneOf != nil {
			js, err := info.ParamsOneOf.ToJSONSchema()
			if err != nil {
				return nil, fmt.Errorf("convert params of tool %q: %w", info.Name, err)
			}
			raw, err := json.Marshal(js)
			if err != nil {
				return nil, fmt.Errorf("marshal params of tool %q: %w", info.Name, err)
			}
			params = json.RawMessage(raw)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        info.Name,
				Description: info.Desc,
				Parameters:  params,
			},
		})
	}
	return out, nil
}
