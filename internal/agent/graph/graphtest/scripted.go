// Package graphtest provides deterministic model and search doubles for graph tests.
package graphtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/search"
)

// Response configures one model call in a scripted sequence.
type Response struct {
	Message *schema.Message
	Err     error
}

// Reply is a plain assistant answer.
func Reply(content string) Response {
	return Response{Message: schema.AssistantMessage(content, nil)}
}

// CallTool is an assistant message requesting a single tool call.
func CallTool(id, name, args string) Response {
	return Response{Message: schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})}
}

// ScriptedModel replays responses in order. Once the script is exhausted it
// repeats the last response when Repeat is set and fails otherwise.
type ScriptedModel struct {
	Repeat bool

	mu        sync.Mutex
	index     int
	responses []Response
	prompts   [][]*schema.Message
	tools     []*schema.ToolInfo
}

func NewScriptedModel(responses ...Response) *ScriptedModel {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedModel{responses: cloned}
}

var _ einomodel.ChatModel = (*ScriptedModel)(nil)

func (m *ScriptedModel) BindTools(tools []*schema.ToolInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = tools
	return nil
}

func (m *ScriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	return m.next(input)
}

// Stream emits the scripted content word by word, followed by a chunk carrying
// the tool calls.
func (m *ScriptedModel) Stream(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.next(input)
	if err != nil {
		return nil, err
	}

	var chunks []*schema.Message
	for _, word := range strings.SplitAfter(msg.Content, " ") {
		if word != "" {
			chunks = append(chunks, schema.AssistantMessage(word, nil))
		}
	}
	if len(msg.ToolCalls) > 0 {
		chunks = append(chunks, schema.AssistantMessage("", msg.ToolCalls))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (m *ScriptedModel) next(input []*schema.Message) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, append([]*schema.Message(nil), input...))

	i := m.index
	if i >= len(m.responses) {
		if !m.Repeat || len(m.responses) == 0 {
			return nil, fmt.Errorf("script exhausted at call %d", m.index+1)
		}
		i = len(m.responses) - 1
	}
	m.index++

	current := m.responses[i]
	if current.Err != nil {
		return nil, current.Err
	}
	out := *current.Message
	out.ToolCalls = append([]schema.ToolCall(nil), current.Message.ToolCalls...)
	if out.Role == "" {
		out.Role = schema.Assistant
	}
	return &out, nil
}

// Calls returns the number of model calls made so far.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Prompts returns a copy of every prompt the model received.
func (m *ScriptedModel) Prompts() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// BoundTools returns the names of the tools bound to the model.
func (m *ScriptedModel) BoundTools() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tools))
	for _, t := range m.tools {
		names = append(names, t.Name)
	}
	return names
}

// Searcher returns fixed results for every query and records the queries.
type Searcher struct {
	Results []search.Result
	Err     error

	mu      sync.Mutex
	queries []string
}

func (s *Searcher) Search(_ context.Context, query string) (*search.Response, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return &search.Response{Query: query, Results: s.Results}, nil
}

// Queries returns the queries seen so far.
func (s *Searcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}
