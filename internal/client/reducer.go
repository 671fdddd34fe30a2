package client

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tanpawarit/research-agent/internal/agent/graph/nodes"
	"github.com/tanpawarit/research-agent/internal/agent/model"
	"github.com/tanpawarit/research-agent/internal/agent/sources"
	"github.com/tanpawarit/research-agent/internal/agent/trace"
	"github.com/tanpawarit/research-agent/internal/stream"
)

type StepStatus string

const (
	StepLoading   StepStatus = "loading"
	StepCompleted StepStatus = "completed"
)

// Step is the progress of one graph node within a turn.
type Step struct {
	Node   string
	Label  string
	Status StepStatus
}

// Turn is the renderable state of one assistant reply.
type Turn struct {
	Content string
	Loading bool
	Sources []model.Source
	Steps   []Step

	stepIndex map[string]int
}

func NewTurn() *Turn {
	return &Turn{Loading: true, stepIndex: make(map[string]int)}
}

var (
	kindModelStream = trace.KindModelStream.String()
	kindModelEnd    = trace.KindModelEnd.String()
	kindToolStart   = trace.KindToolStart.String()
	kindToolEnd     = trace.KindToolEnd.String()
	kindChainStart  = trace.KindChainStart.String()
	kindChainEnd    = trace.KindChainEnd.String()
)

// Apply folds one projected event into the turn. Unknown kinds and payloads
// that do not decode are ignored.
func (t *Turn) Apply(ev Event) {
	node := ev.Metadata.Node

	switch ev.Event {
	case kindModelStream:
		var data stream.ChunkData
		if json.Unmarshal(ev.Data, &data) == nil {
			t.Content += data.Chunk.Content
		}

	case kindModelEnd:
		t.Loading = false

	case kindChainStart, kindToolStart:
		if node != "" {
			t.startStep(node)
		}

	case kindToolEnd:
		var data stream.ToolData
		if json.Unmarshal(ev.Data, &data) == nil {
			t.addSources(data.Output)
		}

	case kindChainEnd:
		if node != "" {
			t.completeStep(node)
		}
		if answer, ok := finalAnswer(ev.Data); ok {
			t.Content = answer
			t.Loading = false
		}
	}
}

func (t *Turn) startStep(node string) {
	if i, ok := t.stepIndex[node]; ok {
		t.Steps[i].Status = StepLoading
		return
	}
	t.stepIndex[node] = len(t.Steps)
	t.Steps = append(t.Steps, Step{Node: node, Label: StepLabel(node), Status: StepLoading})
}

func (t *Turn) completeStep(node string) {
	i, ok := t.stepIndex[node]
	if !ok {
		t.stepIndex[node] = len(t.Steps)
		t.Steps = append(t.Steps, Step{Node: node, Label: StepLabel(node), Status: StepCompleted})
		return
	}
	t.Steps[i].Status = StepCompleted
}

// addSources merges sources whose title and url are both present.
func (t *Turn) addSources(output string) {
	parsed := sources.Parse(output)
	if len(parsed) == 0 {
		return
	}
	merged := t.Sources
	for _, s := range parsed {
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.URL) == "" {
			continue
		}
		merged = append(merged, s)
	}
	t.Sources = sources.Dedupe(merged)
}

func finalAnswer(raw json.RawMessage) (string, bool) {
	var data struct {
		Output json.RawMessage `json:"output"`
	}
	if json.Unmarshal(raw, &data) != nil || len(data.Output) == 0 || data.Output[0] != '{' {
		return "", false
	}
	var out stream.ChainMessage
	if json.Unmarshal(data.Output, &out) != nil || out.FinalAnswer == "" {
		return "", false
	}
	return out.FinalAnswer, true
}

// StepLabel is the display name of a graph node.
func StepLabel(node string) string {
	switch node {
	case nodes.NodeModel:
		return "AI Processing"
	case nodes.NodeTools:
		return "Tool Execution"
	case nodes.NodeCompress:
		return "Research Synthesis"
	}
	r, size := utf8.DecodeRuneInString(node)
	if r == utf8.RuneError {
		return node
	}
	return string(unicode.ToUpper(r)) + node[size:]
}
