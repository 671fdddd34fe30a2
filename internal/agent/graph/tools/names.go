package tools

import (
	"errors"
	"fmt"
)

// ToolName identifies one of the capabilities the research model may call.
type ToolName string

const (
	ToolTavilySearch       ToolName = "tavily_search"
	ToolSaveToMemory       ToolName = "save_to_memory"
	ToolRetrieveFromMemory ToolName = "retrieve_from_memory"
	ToolThink              ToolName = "think_tool"
)

// ParseToolName maps a model-supplied name onto the closed set of tools.
func ParseToolName(name string) (ToolName, error) {
	switch n := ToolName(name); n {
	case ToolTavilySearch, ToolSaveToMemory, ToolRetrieveFromMemory, ToolThink:
		return n, nil
	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

func (n ToolName) String() string { return string(n) }

// adapterError marks a failure raised by a tool's own function, as opposed to
// argument decoding done by the tool wrapper.
type adapterError struct{ err error }

func (e *adapterError) Error() string { return e.err.Error() }
func (e *adapterError) Unwrap() error { return e.err }

func adapterFailure(err error) error { return &adapterError{err: err} }

// failureCause strips the tool wrapper's framing from err.
func failureCause(err error) error {
	var ae *adapterError
	if errors.As(err, &ae) {
		return ae.err
	}
	return errors.New("invalid tool arguments")
}

// failureMessage is the tool-result content recorded when the tool fails.
func (n ToolName) failureMessage(err error) string {
	err = failureCause(err)
	switch n {
	case ToolTavilySearch:
		return fmt.Sprintf("Search failed: %v", err)
	case ToolSaveToMemory:
		return "Failed to save information to memory"
	case ToolRetrieveFromMemory:
		return "Failed to retrieve information from memory"
	default:
		return fmt.Sprintf("Error: %s failed: %v", n, err)
	}
}
