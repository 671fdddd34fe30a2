// Package httpapi exposes the research agent over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/tanpawarit/research-agent/internal/agent/model"
	"github.com/tanpawarit/research-agent/internal/agent/trace"
)

// MaxRequestBodyBytes bounds the JSON body of a query.
const MaxRequestBodyBytes = 1 << 20

// Agent runs conversation turns.
type Agent interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error)
	Stream(ctx context.Context, in model.QueryInput, sink trace.Sink) (*model.TurnResult, error)
	Clear(ctx context.Context, conversationID string) error
}

type handlers struct {
	agent Agent
}

func NewRouter(agent Agent) http.Handler {
	h := &handlers{agent: agent}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/agent/query", h.handleQuery)
	mux.HandleFunc("GET /api/agent/stream", h.handleStream)
	mux.HandleFunc("DELETE /api/agent/conversations/{conversation_id}", h.handleClear)
	return mux
}
