package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tanpawarit/research-agent/internal/agent/model"
	errx "github.com/tanpawarit/research-agent/internal/core/error"
)

func TestSearchSendsRequestAndDecodesResults(t *testing.T) {
	t.Parallel()

	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tvly-test" {
			t.Errorf("authorization mismatch: got=%q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"capital of france","results":[{"title":"France","url":"https://x/france","content":"Paris is the capital.","raw_content":"long text"}]}`))
	}))
	defer srv.Close()

	c := NewClient(model.SearchConfig{
		APIKey:            "tvly-test",
		BaseURL:           srv.URL + "/",
		MaxResults:        5,
		IncludeRawContent: true,
	})

	resp, err := c.Search(context.Background(), "capital of france")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got.Query != "capital of france" || got.MaxResults != 5 || !got.IncludeRawContent || got.Topic != "general" {
		t.Fatalf("request mismatch: %+v", got)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("result count mismatch: got=%d want=1", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Title != "France" || r.URL != "https://x/france" || r.RawContent != "long text" {
		t.Fatalf("result mismatch: %+v", r)
	}
}

func TestSearchReturnsErrorOnUpstreamFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(model.SearchConfig{BaseURL: srv.URL})
	_, err := c.Search(context.Background(), "anything")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("error mismatch: got=%q", err.Error())
	}
	if got := errx.StatusOf(err); got != http.StatusBadGateway {
		t.Fatalf("status mismatch: got=%d want=%d", got, http.StatusBadGateway)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	c := NewClient(model.SearchConfig{BaseURL: "http://127.0.0.1:1"})
	if _, err := c.Search(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty query")
	}
}
