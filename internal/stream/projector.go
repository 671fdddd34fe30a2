// Package stream projects execution-trace events onto the SSE wire schema.
package stream

import (
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/trace"
)

// Metadata tags a projected event with its graph position.
type Metadata struct {
	Node string `json:"langgraph_node,omitempty"`
	Step int    `json:"langgraph_step"`
}

// Event is one projected event as sent to clients.
type Event struct {
	Event    string   `json:"event"`
	Data     any      `json:"data"`
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata"`
}

type Chunk struct {
	Content   string            `json:"content"`
	ToolCalls []schema.ToolCall `json:"tool_calls"`
}

type ChunkData struct {
	Chunk Chunk `json:"chunk"`
}

type ModelOutput struct {
	Content     string `json:"content"`
	FinalAnswer string `json:"final_answer,omitempty"`
}

type ModelData struct {
	Output *ModelOutput `json:"output,omitempty"`
}

type ToolInput struct {
	Query any `json:"query"`
}

type ToolData struct {
	Input  *ToolInput `json:"input,omitempty"`
	Output string     `json:"output,omitempty"`
	Name   string     `json:"name,omitempty"`
}

type ChainInput struct {
	Type         string `json:"type"`
	MessageCount int    `json:"message_count"`
}

type ChainMessage struct {
	Role        string `json:"role"`
	Name        string `json:"name,omitempty"`
	Content     string `json:"content"`
	FinalAnswer string `json:"final_answer,omitempty"`
}

type ChainData struct {
	Input  *ChainInput `json:"input,omitempty"`
	Output any         `json:"output,omitempty"`
}

// Project filters ev and reshapes it onto the wire schema. It reports false
// for events that must not reach the client: model starts, empty tokens,
// model ends without content and tool or chain events without a node tag.
func Project(ev trace.Event) (Event, bool) {
	out := Event{
		Event:    ev.Kind.String(),
		Name:     ev.Name,
		Metadata: Metadata{Node: ev.Node, Step: ev.Step},
	}

	switch ev.Kind {
	case trace.KindModelStart:
		return Event{}, false

	case trace.KindModelStream:
		if ev.Chunk == nil || ev.Chunk.Content == "" {
			return Event{}, false
		}
		calls := ev.Chunk.ToolCalls
		if calls == nil {
			calls = []schema.ToolCall{}
		}
		out.Data = ChunkData{Chunk: Chunk{Content: ev.Chunk.Content, ToolCalls: calls}}
		out.Name = nameOr(ev.Name, "model")

	case trace.KindModelEnd:
		if ev.Message == nil || ev.Message.Content == "" {
			return Event{}, false
		}
		out.Data = ModelData{Output: &ModelOutput{Content: ev.Message.Content}}
		out.Name = nameOr(ev.Name, "model")

	case trace.KindToolStart:
		if ev.Node == "" {
			return Event{}, false
		}
		out.Data = ToolData{Input: toolInput(ev.Arguments), Name: ev.ToolName}
		out.Name = nameOr(ev.Name, "tool")

	case trace.KindToolEnd:
		if ev.Node == "" {
			return Event{}, false
		}
		out.Data = ToolData{Output: ev.ToolOutput, Name: ev.ToolName}
		out.Name = nameOr(ev.Name, "tool")

	case trace.KindChainStart:
		if ev.Node == "" {
			return Event{}, false
		}
		data := ChainData{}
		if ev.Input != nil {
			data.Input = &ChainInput{Type: "simplified", MessageCount: messageCount(ev.Input)}
		}
		out.Data = data
		out.Name = nameOr(ev.Name, "chain")

	case trace.KindChainEnd:
		if ev.Node == "" {
			return Event{}, false
		}
		out.Data = ChainData{Output: chainOutput(ev.Output, ev.Final)}
		out.Name = nameOr(ev.Name, "chain")

	default:
		return Event{}, false
	}
	return out, true
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// toolInput keeps the query argument, or the whole argument object when there is none.
func toolInput(arguments string) *ToolInput {
	arguments = strings.TrimSpace(arguments)
	if arguments == "" {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return &ToolInput{Query: arguments}
	}
	if q, ok := args["query"].(string); ok && q != "" {
		return &ToolInput{Query: q}
	}
	return &ToolInput{Query: args}
}

func messageCount(input any) int {
	switch v := input.(type) {
	case []*schema.Message:
		return len(v)
	case *schema.Message:
		if v == nil {
			return 0
		}
		return 1
	default:
		return 0
	}
}

func chainOutput(output any, final bool) any {
	switch v := output.(type) {
	case *schema.Message:
		if v == nil {
			return nil
		}
		msg := chainMessage(v)
		if final {
			msg.FinalAnswer = v.Content
		}
		return msg
	case []*schema.Message:
		if len(v) == 0 {
			return nil
		}
		msgs := make([]ChainMessage, 0, len(v))
		for _, m := range v {
			if m != nil {
				msgs = append(msgs, chainMessage(m))
			}
		}
		return msgs
	default:
		return nil
	}
}

func chainMessage(m *schema.Message) ChainMessage {
	return ChainMessage{Role: string(m.Role), Name: m.ToolName, Content: m.Content}
}
