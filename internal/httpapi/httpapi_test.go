package httpapi_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/graph"
	"github.com/tanpawarit/research-agent/internal/agent/graph/graphtest"
	"github.com/tanpawarit/research-agent/internal/agent/graph/nodes"
	"github.com/tanpawarit/research-agent/internal/agent/graph/tools"
	"github.com/tanpawarit/research-agent/internal/agent/model"
	"github.com/tanpawarit/research-agent/internal/agent/repo"
	"github.com/tanpawarit/research-agent/internal/agent/search"
	"github.com/tanpawarit/research-agent/internal/agent/trace"
	errx "github.com/tanpawarit/research-agent/internal/core/error"
	"github.com/tanpawarit/research-agent/internal/httpapi"
)

type fakeAgent struct {
	result  *model.TurnResult
	err     error
	events  []trace.Event
	cleared string
	got     model.QueryInput
}

func (a *fakeAgent) Invoke(_ context.Context, in model.QueryInput) (*model.TurnResult, error) {
	a.got = in
	return a.result, a.err
}

func (a *fakeAgent) Stream(_ context.Context, in model.QueryInput, sink trace.Sink) (*model.TurnResult, error) {
	a.got = in
	for _, ev := range a.events {
		sink.Emit(ev)
	}
	return a.result, a.err
}

func (a *fakeAgent) Clear(_ context.Context, id string) error {
	a.cleared = id
	return a.err
}

func postQuery(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/agent/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func readFrames(t *testing.T, body string) []string {
	t.Helper()
	var frames []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		if line := sc.Text(); strings.HasPrefix(line, "data: ") {
			frames = append(frames, strings.TrimPrefix(line, "data: "))
		}
	}
	return frames
}

func TestQueryReturnsResponseAndSources(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{result: &model.TurnResult{
		ConversationID: "c1",
		Response:       "Paris",
		Sources:        []model.Source{{Title: "France", URL: "https://x/france"}},
	}}
	rec := postQuery(t, httpapi.NewRouter(agent), `{"query":"capital?","conversationId":"c1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got=%d want=%d", rec.Code, http.StatusOK)
	}
	var got struct {
		Response       string         `json:"response"`
		ConversationID string         `json:"conversationId"`
		Sources        []model.Source `json:"sources"`
	}
	decodeBody(t, rec, &got)
	if got.Response != "Paris" || got.ConversationID != "c1" || len(got.Sources) != 1 {
		t.Fatalf("body mismatch: got=%+v", got)
	}
	if agent.got.Query != "capital?" || agent.got.ConversationID != "c1" {
		t.Fatalf("agent input mismatch: got=%+v", agent.got)
	}
}

func TestQueryEmptySourcesIsArray(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{result: &model.TurnResult{ConversationID: "default", Response: "hi"}}
	rec := postQuery(t, httpapi.NewRouter(agent), `{"query":"hello"}`)
	if !strings.Contains(rec.Body.String(), `"sources":[]`) {
		t.Fatalf("sources must serialize as an empty array: got=%q", rec.Body.String())
	}
}

func TestQueryErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		body       string
		agentErr   error
		wantStatus int
		wantError  string
	}{
		{"missing query", `{"conversationId":"c1"}`, nil, http.StatusBadRequest, "Query is required"},
		{"blank query", `{"query":"   "}`, nil, http.StatusBadRequest, "Query is required"},
		{"empty body", ``, nil, http.StatusBadRequest, "Query is required"},
		{"malformed body", `{"query":`, nil, http.StatusBadRequest, "Invalid request body"},
		{"internal failure", `{"query":"q"}`, errors.New("model exploded"), http.StatusInternalServerError, "Failed to process query"},
		{"store failure", `{"query":"q"}`, errx.WrapSQLite(errors.New("disk")), http.StatusInternalServerError, "Failed to process query"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			agent := &fakeAgent{err: tc.agentErr}
			rec := postQuery(t, httpapi.NewRouter(agent), tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status mismatch: got=%d want=%d", rec.Code, tc.wantStatus)
			}
			var got struct {
				Error string `json:"error"`
			}
			decodeBody(t, rec, &got)
			if got.Error != tc.wantError {
				t.Fatalf("error mismatch: got=%q want=%q", got.Error, tc.wantError)
			}
		})
	}
}

func TestStreamForwardsProjectedEventsAndDone(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{
		result: &model.TurnResult{ConversationID: "s"},
		events: []trace.Event{
			{Kind: trace.KindChainStart, Name: "research_agent"},
			{Kind: trace.KindChainStart, Name: "model", Node: "model", Step: 1, Input: []*schema.Message{schema.UserMessage("q")}},
			{Kind: trace.KindModelStart, Name: "model", Node: "model", Step: 1},
			{Kind: trace.KindModelStream, Name: "model", Node: "model", Step: 1, Chunk: schema.AssistantMessage("Hello", nil)},
			{Kind: trace.KindModelStream, Name: "model", Node: "model", Step: 1, Chunk: schema.AssistantMessage("", nil)},
			{Kind: trace.KindChainEnd, Name: "model", Node: "model", Step: 1, Output: schema.AssistantMessage("Hello", nil), Final: true},
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/agent/stream?query=hi&conversationId=s", nil)
	rec := httptest.NewRecorder()
	httpapi.NewRouter(agent).ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type mismatch: got=%q", ct)
	}
	frames := readFrames(t, rec.Body.String())
	if len(frames) != 4 {
		t.Fatalf("frame count mismatch: got=%d want=4 frames=%q", len(frames), frames)
	}
	wantEvents := []string{"on_chain_start", "on_chat_model_stream", "on_chain_end"}
	for i, want := range wantEvents {
		var ev struct {
			Event    string `json:"event"`
			Metadata struct {
				Node string `json:"langgraph_node"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal([]byte(frames[i]), &ev); err != nil {
			t.Fatalf("frame %d decode: %v", i, err)
		}
		if ev.Event != want || ev.Metadata.Node != "model" {
			t.Fatalf("frame %d mismatch: got=%s/%s want=%s/model", i, ev.Event, ev.Metadata.Node, want)
		}
	}
	if frames[3] != "[DONE]" {
		t.Fatalf("terminator mismatch: got=%q", frames[3])
	}
	if agent.got.ConversationID != "s" || agent.got.Query != "hi" {
		t.Fatalf("agent input mismatch: got=%+v", agent.got)
	}
}

func TestStreamFailureSendsSingleErrorEvent(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{err: errors.New("boom")}
	req := httptest.NewRequest(http.MethodGet, "/api/agent/stream?query=hi", nil)
	rec := httptest.NewRecorder()
	httpapi.NewRouter(agent).ServeHTTP(rec, req)

	frames := readFrames(t, rec.Body.String())
	if len(frames) != 1 || frames[0] != `{"error":"An error occurred"}` {
		t.Fatalf("error frames mismatch: got=%q", frames)
	}
}

func TestStreamRequiresQuery(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/agent/stream", nil)
	rec := httptest.NewRecorder()
	httpapi.NewRouter(&fakeAgent{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status mismatch: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "Query is required") {
		t.Fatalf("body mismatch: got=%q", rec.Body.String())
	}
}

func TestClearConversation(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{}
	req := httptest.NewRequest(http.MethodDelete, "/api/agent/conversations/abc", nil)
	rec := httptest.NewRecorder()
	httpapi.NewRouter(agent).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status mismatch: got=%d want=%d", rec.Code, http.StatusNoContent)
	}
	if agent.cleared != "abc" {
		t.Fatalf("cleared id mismatch: got=%q want=%q", agent.cleared, "abc")
	}
}

func newRunner(t *testing.T, research, summary *graphtest.ScriptedModel) *graph.Runner {
	t.Helper()
	searcher := &graphtest.Searcher{Results: []search.Result{
		{Title: "France", URL: "https://x/france", Content: "Paris is the capital."},
	}}
	registry, err := tools.NewRegistry(tools.Deps{Variant: model.VariantResearch, Searcher: searcher})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	runner, err := graph.BuildRunner(context.Background(), graph.Config{
		Variant:           model.VariantResearch,
		Limits:            nodes.Limits{MaxToolResults: 10, RecursionLimit: 25},
		ResearchModel:     research,
		SummaryModel:      summary,
		CompressMaxTokens: 8000,
		Tools:             registry,
		ConversationRepo:  repo.NewMemoryConversationRepository(),
	})
	if err != nil {
		t.Fatalf("build runner: %v", err)
	}
	return runner
}

func TestCapitalOfFranceEndToEnd(t *testing.T) {
	const answer = "The capital of France is Paris. [France](https://x/france)"
	research := graphtest.NewScriptedModel(
		graphtest.CallTool("call_1", "tavily_search", `{"query":"capital of France"}`),
		graphtest.Reply(answer),
	)
	summary := graphtest.NewScriptedModel(graphtest.Reply(answer))
	h := httpapi.NewRouter(newRunner(t, research, summary))

	body, _ := json.Marshal(map[string]string{"query": "What is the capital of France?"})
	rec := postQuery(t, h, string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got=%d want=%d body=%q", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got struct {
		Response       string         `json:"response"`
		ConversationID string         `json:"conversationId"`
		Sources        []model.Source `json:"sources"`
	}
	decodeBody(t, rec, &got)
	if !strings.Contains(got.Response, "Paris") {
		t.Fatalf("response mismatch: got=%q", got.Response)
	}
	if got.ConversationID != "default" {
		t.Fatalf("conversation id mismatch: got=%q want=%q", got.ConversationID, "default")
	}
	want := []model.Source{{Title: "France", URL: "https://x/france"}}
	if len(got.Sources) != 1 || got.Sources[0] != want[0] {
		t.Fatalf("sources mismatch: got=%+v want=%+v", got.Sources, want)
	}
}

func TestStreamEndToEndNeverSendsUntaggedChainEvents(t *testing.T) {
	research := graphtest.NewScriptedModel(
		graphtest.CallTool("call_1", "tavily_search", `{"query":"capital of France"}`),
		graphtest.Reply("Paris."),
	)
	summary := graphtest.NewScriptedModel(graphtest.Reply("The capital of France is Paris."))
	h := httpapi.NewRouter(newRunner(t, research, summary))

	req := httptest.NewRequest(http.MethodGet, "/api/agent/stream?query=capital", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	frames := readFrames(t, rec.Body.String())
	if len(frames) == 0 || frames[len(frames)-1] != "[DONE]" {
		t.Fatalf("stream not terminated by [DONE]: %q", frames)
	}
	var sawToolEnd bool
	for _, f := range frames[:len(frames)-1] {
		var ev struct {
			Event    string `json:"event"`
			Metadata struct {
				Node string `json:"langgraph_node"`
			} `json:"metadata"`
		}
		if err := json.NewDecoder(bytes.NewReader([]byte(f))).Decode(&ev); err != nil {
			t.Fatalf("decode frame %q: %v", f, err)
		}
		if ev.Event != "on_chat_model_stream" && ev.Metadata.Node == "" {
			t.Fatalf("untagged event forwarded: %s", f)
		}
		if ev.Event == "on_chat_model_start" {
			t.Fatalf("model start forwarded")
		}
		if ev.Event == "on_tool_end" {
			sawToolEnd = true
		}
	}
	if !sawToolEnd {
		t.Fatalf("missing on_tool_end frame")
	}
}
