package client

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReaderFrames(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		`: keep-alive`,
		``,
		`data: {"event":"on_chat_model_stream","name":"model","data":{"chunk":{"content":"Hi","tool_calls":[]}},"metadata":{"langgraph_node":"model","langgraph_step":1}}`,
		``,
		`event: message`,
		`data: {"event":"on_tool_end",`,
		`data: "name":"tavily_search","data":{"output":"x"},"metadata":{"langgraph_node":"tools","langgraph_step":2}}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")

	r := NewReader(strings.NewReader(body))

	first, err := r.Next()
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if first.Event.Event != "on_chat_model_stream" || first.Event.Metadata.Node != "model" || first.Event.Metadata.Step != 1 {
		t.Fatalf("first frame mismatch: %+v", first.Event)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if second.Event.Event != "on_tool_end" || second.Event.Name != "tavily_search" {
		t.Fatalf("second frame mismatch: %+v", second.Event)
	}

	done, err := r.Next()
	if err != nil || !done.Done {
		t.Fatalf("done frame mismatch: frame=%+v err=%v", done, err)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after done, got %v", err)
	}
}

func TestReaderErrorFrame(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader("data: {\"error\":\"An error occurred\"}\n\n"))
	frame, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if frame.Err != "An error occurred" {
		t.Fatalf("error mismatch: got=%q want=%q", frame.Err, "An error occurred")
	}
}

func TestReaderRejectsMalformedFrame(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader("data: {not json\n\n"))
	if _, err := r.Next(); err == nil {
		t.Fatalf("expected decode error")
	}
}
