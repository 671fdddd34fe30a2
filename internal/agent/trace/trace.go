// Package trace defines the execution-trace events emitted while a turn runs.
//
// Events are produced by the graph nodes (model and tool activity) and by the
// graph observers (node start/end). A Recorder stamps each event with the
// current step and forwards it to a Sink in emission order.
package trace

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Kind is the closed set of execution-trace event kinds.
type Kind int

const (
	KindModelStart Kind = iota + 1
	KindModelStream
	KindModelEnd
	KindToolStart
	KindToolEnd
	KindChainStart
	KindChainEnd
)

// Kinds lists every Kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindModelStart,
		KindModelStream,
		KindModelEnd,
		KindToolStart,
		KindToolEnd,
		KindChainStart,
		KindChainEnd,
	}
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindModelStart:
		return "on_chat_model_start"
	case KindModelStream:
		return "on_chat_model_stream"
	case KindModelEnd:
		return "on_chat_model_end"
	case KindToolStart:
		return "on_tool_start"
	case KindToolEnd:
		return "on_tool_end"
	case KindChainStart:
		return "on_chain_start"
	case KindChainEnd:
		return "on_chain_end"
	default:
		return "unknown"
	}
}

// Event is one raw execution-trace event.
type Event struct {
	Kind Kind
	// Name of the emitting runnable: node name, tool name or graph name.
	Name string
	// Node is the graph node the event originates from; empty for graph-level events.
	Node string
	Step int

	// Chunk carries a streamed delta for KindModelStream.
	Chunk *schema.Message
	// Messages is the prompt for KindModelStart.
	Messages []*schema.Message
	// Message is the completed model output for KindModelEnd.
	Message *schema.Message

	// ToolName, ToolCallID and Arguments describe a tool call.
	ToolName   string
	ToolCallID string
	Arguments  string
	// ToolOutput is the raw tool result for KindToolEnd.
	ToolOutput string

	// Input and Output are the raw node input/output for chain events.
	Input  any
	Output any
	// Final marks a chain end whose output is the turn's final answer.
	Final bool
}

// Sink receives events in emission order.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Recorder serializes emission from the nodes of one turn and stamps step indexes.
type Recorder struct {
	mu     sync.Mutex
	sink   Sink
	step   int
	stream bool
}

// NewRecorder returns a Recorder forwarding to sink. A nil sink discards events
// and tells model nodes that token streaming is not needed.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink, stream: sink != nil}
}

// Streaming reports whether a consumer wants incremental model output.
func (r *Recorder) Streaming() bool {
	if r == nil {
		return false
	}
	return r.stream
}

// Step returns the current step index.
func (r *Recorder) Step() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.step
}

// Emit stamps ev and forwards it. A chain start with a node tag opens a new step.
func (r *Recorder) Emit(ev Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.Kind == KindChainStart && ev.Node != "" {
		r.step++
	}
	ev.Step = r.step
	if r.sink != nil {
		r.sink.Emit(ev)
	}
}

type recorderKey struct{}

// WithRecorder attaches r to ctx.
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, r)
}

// FromContext returns the Recorder attached to ctx, or nil. A nil Recorder is safe to use.
func FromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(recorderKey{}).(*Recorder)
	return r
}
