// Package client talks to the agent HTTP API and folds streamed events into
// renderable turn state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tanpawarit/research-agent/internal/agent/model"
)

const defaultTimeout = 5 * time.Minute

type QueryResponse struct {
	Response       string         `json:"response"`
	ConversationID string         `json:"conversationId"`
	Sources        []model.Source `json:"sources"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("agent api: status %d", e.Status)
	}
	return fmt.Sprintf("agent api: status %d: %s", e.Status, e.Message)
}

// ErrStreamFailed is returned when the server ends a stream with an error frame.
var ErrStreamFailed = errors.New("agent stream failed")

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Query runs one buffered turn.
func (c *Client) Query(ctx context.Context, query, conversationID string) (*QueryResponse, error) {
	body, err := json.Marshal(model.QueryInput{Query: query, ConversationID: conversationID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/agent/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var out QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return &out, nil
}

// Stream runs one streamed turn and calls fn for every event until the done
// frame. An error frame ends the stream with ErrStreamFailed.
func (c *Client) Stream(ctx context.Context, query, conversationID string, fn func(Event) error) error {
	params := url.Values{}
	params.Set("query", query)
	if conversationID != "" {
		params.Set("conversationId", conversationID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/agent/stream?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("agent stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	reader := NewReader(resp.Body)
	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("agent stream: closed before done frame")
		}
		if err != nil {
			return err
		}
		switch {
		case frame.Done:
			return nil
		case frame.Err != "":
			return fmt.Errorf("%w: %s", ErrStreamFailed, frame.Err)
		}
		if err := fn(frame.Event); err != nil {
			return err
		}
	}
}

func (c *Client) Clear(ctx context.Context, conversationID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/agent/conversations/"+url.PathEscape(conversationID), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("agent clear: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return decodeAPIError(resp)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body)
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}
