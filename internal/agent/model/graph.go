package model

import (
	"github.com/cloudwego/eino/schema"
)

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - The runner allocates one AppState per turn and hands it to the graph via
//     compose.WithGenLocalState.
//   - While the graph runs, reads/writes happen only inside Eino state handlers
//     or compose.ProcessState, which serialize access.
//   - The runner reads it again only after Invoke has returned.
type AppState struct {
	ConversationID string
	Variant        Variant
	Messages       []*schema.Message // full history, this turn included
	TurnStart      int               // index of this turn's human message in Messages
	Steps          int               // node executions so far in this turn

	ToolCallLimitReached bool // set when the tool-result ceiling or step limit forces the finish branch
	ToolCallIDSeq        int  // local sequence to synthesize tool_call_id when provider omits

	// Accumulated total LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// TurnMessages returns the messages added during the current turn.
func (s *AppState) TurnMessages() []*schema.Message {
	if s.TurnStart < 0 || s.TurnStart > len(s.Messages) {
		return nil
	}
	return s.Messages[s.TurnStart:]
}

// QueryInput represents the input for processing user queries.
type QueryInput struct {
	ConversationID string `json:"conversationId"`
	Query          string `json:"query"`
}

// Source is a cited web page derived from search tool output.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// TurnResult is what a completed turn hands back to the transport layer.
type TurnResult struct {
	ConversationID string
	Response       string
	Sources        []Source
	Messages       []*schema.Message
	CheckpointStep int
	TotalCostUSD   float64
}
