package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tanpawarit/research-agent/internal/agent/model"
	"github.com/tanpawarit/research-agent/internal/stream"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

func (h *handlers) handleQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)

	var req queryRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err, msgQueryFailed)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, msgQueryRequired)
		return
	}

	res, err := h.agent.Invoke(r.Context(), model.QueryInput{
		ConversationID: req.ConversationID,
		Query:          req.Query,
	})
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("Error processing query")
		writeMappedError(w, err, msgQueryFailed)
		return
	}

	writeJSON(w, http.StatusOK, toQueryResponse(res))
}

func (h *handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := model.QueryInput{
		ConversationID: q.Get("conversationId"),
		Query:          q.Get("query"),
	}
	if strings.TrimSpace(in.Query) == "" {
		writeError(w, http.StatusBadRequest, msgQueryRequired)
		return
	}

	sw := stream.NewWriter(w)
	_, err := h.agent.Stream(r.Context(), in, sw)
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			logx.Info().Str("conversation_id", in.ConversationID).Msg("Stream client disconnected")
			return
		}
		logx.Error().Err(err).Str("conversation_id", in.ConversationID).Msg("Error streaming response")
		_ = sw.Fail()
		return
	}
	if err := sw.Done(); err != nil {
		logx.Debug().Err(err).Msg("Failed to terminate stream")
	}
}

func (h *handlers) handleClear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("conversation_id")
	if err := h.agent.Clear(r.Context(), id); err != nil {
		logx.Error().Err(err).Str("conversation_id", id).Msg("Error clearing conversation")
		writeMappedError(w, err, msgClearFailed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
