package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/tanpawarit/research-agent/internal/agent/trace"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

const (
	// DoneFrame terminates a successful stream.
	DoneFrame = "[DONE]"
	// ErrorMessage is the only error detail sent to stream clients.
	ErrorMessage = "An error occurred"
)

// Writer is a trace.Sink that sends every accepted event as one SSE frame
// and flushes it immediately. After the first write failure it drops everything.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	err     error
}

// NewWriter writes the SSE response headers and returns a Writer on w.
func NewWriter(w http.ResponseWriter) *Writer {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	sw := &Writer{w: w, flusher: flusher}
	sw.flush()
	return sw
}

// Emit implements trace.Sink.
func (s *Writer) Emit(ev trace.Event) {
	projected, ok := Project(ev)
	if !ok {
		return
	}
	b, err := json.Marshal(projected)
	if err != nil {
		logx.Error().Err(err).Str("event", projected.Event).Msg("Failed to encode stream event")
		return
	}
	s.write(b)
}

// Done sends the terminating frame.
func (s *Writer) Done() error {
	s.write([]byte(DoneFrame))
	return s.Err()
}

// Fail sends the single error frame that ends a failed stream.
func (s *Writer) Fail() error {
	b, _ := json.Marshal(map[string]string{"error": ErrorMessage})
	s.write(b)
	return s.Err()
}

// Err returns the first write error.
func (s *Writer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Writer) write(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.err = err
		logx.Debug().Err(err).Msg("Stream client went away")
		return
	}
	s.flushLocked()
}

func (s *Writer) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *Writer) flushLocked() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

var _ trace.Sink = (*Writer)(nil)
