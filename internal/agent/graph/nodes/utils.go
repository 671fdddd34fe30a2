package nodes

import (
	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/model"
)

const (
	NodeModel    = "model"
	NodeTools    = "tools"
	NodeCompress = "compress"
)

const (
	DefaultMaxToolResults = 10
	DefaultRecursionLimit = 25
)

// Limits bounds one turn of the loop.
type Limits struct {
	// MaxToolResults caps tool results per turn; research variant only.
	MaxToolResults int
	// RecursionLimit caps node executions per turn.
	RecursionLimit int
}

// ===== Small helpers to keep handlers simple/readable =====

func normalizeMaxToolResults(n int) int {
	if n <= 0 {
		return DefaultMaxToolResults
	}
	return n
}

func normalizeRecursionLimit(n int) int {
	if n <= 0 {
		return DefaultRecursionLimit
	}
	return n
}

// finishReserve is the number of node executions another tool round needs
// before the turn can still finish: tools, model and, for research, compress.
func finishReserve(v model.Variant) int {
	if v == model.VariantSimple {
		return 2
	}
	return 3
}

// checkAndMarkToolLimit evaluates whether another tool round would break the
// tool-result ceiling or the step budget and, if so, marks the state.
// Returns true when the finishing branch must be taken.
func checkAndMarkToolLimit(state *model.AppState, limits Limits) bool {
	if state.ToolCallLimitReached {
		return true
	}
	// The ceiling counts tool results of the current turn only; results kept
	// in history from earlier turns do not consume this turn's budget.
	if state.Variant != model.VariantSimple && turnToolResults(state) >= normalizeMaxToolResults(limits.MaxToolResults) {
		state.ToolCallLimitReached = true
		return true
	}
	if state.Steps+finishReserve(state.Variant) > normalizeRecursionLimit(limits.RecursionLimit) {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

func turnToolResults(state *model.AppState) int {
	n := 0
	for _, m := range state.TurnMessages() {
		if m != nil && m.Role == schema.Tool {
			n++
		}
	}
	return n
}

// HasPendingToolCalls reports whether msg is an assistant message requesting tools.
func HasPendingToolCalls(msg *schema.Message) bool {
	return msg != nil && msg.Role == schema.Assistant && len(msg.ToolCalls) > 0
}

// dropTrailingToolRequest removes a final assistant message whose tool calls
// were never answered, never reaching back before from.
func dropTrailingToolRequest(msgs []*schema.Message, from int) []*schema.Message {
	if n := len(msgs); n > from && HasPendingToolCalls(msgs[n-1]) {
		return msgs[:n-1]
	}
	return msgs
}

func cloneMessages(msgs []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, len(msgs))
	copy(out, msgs)
	return out
}
