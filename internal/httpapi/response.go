package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tanpawarit/research-agent/internal/agent/model"
	errx "github.com/tanpawarit/research-agent/internal/core/error"
)

const (
	msgQueryRequired  = "Query is required"
	msgQueryFailed    = "Failed to process query"
	msgClearFailed    = "Failed to clear conversation"
	msgInvalidRequest = "Invalid request body"
)

type queryRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversationId"`
}

type queryResponse struct {
	Response       string         `json:"response"`
	ConversationID string         `json:"conversationId"`
	Sources        []model.Source `json:"sources"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeMappedError answers caller mistakes with their own message and hides
// everything else behind fallback.
func writeMappedError(w http.ResponseWriter, err error, fallback string) {
	status := errx.StatusOf(err)
	if status >= 400 && status < 500 {
		writeError(w, status, errx.PublicMessage(err))
		return
	}
	writeError(w, http.StatusInternalServerError, fallback)
}

func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errx.BadRequest(msgInvalidRequest)
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return errx.New(err, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", maxBytesErr.Limit))
	}
	if errors.Is(err, io.EOF) {
		return errx.BadRequest(msgQueryRequired)
	}
	return errx.New(err, http.StatusBadRequest, msgInvalidRequest)
}

func toQueryResponse(res *model.TurnResult) queryResponse {
	sources := res.Sources
	if sources == nil {
		sources = []model.Source{}
	}
	return queryResponse{
		Response:       res.Response,
		ConversationID: res.ConversationID,
		Sources:        sources,
	}
}
