package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tanpawarit/research-agent/internal/stream"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand(&stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestAskBuffered(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query          string `json:"query"`
			ConversationID string `json:"conversationId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Query != "capital of france" || body.ConversationID != "c1" {
			t.Errorf("request mismatch: %+v", body)
		}
		_, _ = w.Write([]byte(`{"response":"Paris","conversationId":"c1","sources":[{"title":"Wiki","url":"https://wiki.example"}]}`))
	}))
	defer srv.Close()

	out, err := runCommand(t, "ask", "--server", srv.URL, "--conversation", "c1", "capital", "of", "france")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	for _, want := range []string{"Paris", "Wiki", "https://wiki.example"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAskStream(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := stream.NewWriter(w)
		raw, _ := json.Marshal(stream.Event{
			Event:    "on_chain_end",
			Name:     "compress",
			Data:     stream.ChainData{Output: stream.ChainMessage{Role: "assistant", Content: "Paris", FinalAnswer: "Paris"}},
			Metadata: stream.Metadata{Node: "compress", Step: 4},
		})
		_, _ = w.Write([]byte("data: " + string(raw) + "\n\n"))
		_ = sw.Done()
	}))
	defer srv.Close()

	out, err := runCommand(t, "ask", "--server", srv.URL, "--stream", "q")
	if err != nil {
		t.Fatalf("ask --stream: %v", err)
	}
	if !strings.Contains(out, "Research Synthesis") || !strings.Contains(out, "Paris") {
		t.Fatalf("stream output mismatch:\n%s", out)
	}
}

func TestAskRequiresQuery(t *testing.T) {
	t.Parallel()

	if _, err := runCommand(t, "ask"); err == nil {
		t.Fatalf("expected error without query")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, err := runCommand(t, "clear", "--server", srv.URL, "c1")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !strings.Contains(out, "c1") {
		t.Fatalf("clear output mismatch: %q", out)
	}
}
