package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tanpawarit/research-agent/internal/stream"
)

const maxFrameBytes = 1024 * 1024

// Event is a projected event as decoded by the client. Data is kept raw and
// decoded per kind by the reducer.
type Event struct {
	Event    string          `json:"event"`
	Name     string          `json:"name"`
	Data     json.RawMessage `json:"data"`
	Metadata stream.Metadata `json:"metadata"`
}

// Frame is one SSE message: an event, the done marker or an error payload.
type Frame struct {
	Event Event
	Done  bool
	Err   string
}

type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(source io.Reader) *Reader {
	scanner := bufio.NewScanner(source)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameBytes)
	return &Reader{scanner: scanner}
}

// Next returns the next frame, or io.EOF once the body is exhausted.
func (r *Reader) Next() (Frame, error) {
	for {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return Frame{}, err
			}
			return Frame{}, io.EOF
		}

		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			// event:, id: and retry: fields carry nothing for this stream.
			continue
		}

		payload, err := r.collectData(line)
		if err != nil {
			return Frame{}, err
		}
		return decodeFrame(payload)
	}
}

func (r *Reader) collectData(firstLine string) (string, error) {
	data := strings.TrimSpace(strings.TrimPrefix(firstLine, "data:"))
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			break
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data += "\n" + strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(data) == "" {
		return "", fmt.Errorf("decode stream frame: empty SSE data payload")
	}
	return data, nil
}

func decodeFrame(payload string) (Frame, error) {
	if payload == stream.DoneFrame {
		return Frame{Done: true}, nil
	}

	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return Frame{}, fmt.Errorf("decode stream frame: %w", err)
	}
	if probe.Error != "" {
		return Frame{Err: probe.Error}, nil
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Frame{}, fmt.Errorf("decode stream frame: %w", err)
	}
	if ev.Event == "" {
		return Frame{}, fmt.Errorf("decode stream frame: event kind is required")
	}
	return Frame{Event: ev}, nil
}
