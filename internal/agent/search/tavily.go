// Package search provides a client for the Tavily web search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tanpawarit/research-agent/internal/agent/model"
	errx "github.com/tanpawarit/research-agent/internal/core/error"
)

// Result is one ranked search hit.
type Result struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// Response is the body returned by the /search endpoint.
type Response struct {
	Query        string   `json:"query"`
	Answer       string   `json:"answer,omitempty"`
	Results      []Result `json:"results"`
	ResponseTime float64  `json:"response_time,omitempty"`
}

// Searcher runs a web search and returns ranked results.
type Searcher interface {
	Search(ctx context.Context, query string) (*Response, error)
}

// Client talks to the Tavily REST API.
type Client struct {
	baseURL           string
	apiKey            string
	maxResults        int
	topic             string
	includeRawContent bool
	httpClient        *http.Client
}

var _ Searcher = (*Client)(nil)

// NewClient creates a Tavily client from cfg.
func NewClient(cfg model.SearchConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.Topic == "" {
		cfg.Topic = "general"
	}
	return &Client{
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:            cfg.APIKey,
		maxResults:        cfg.MaxResults,
		topic:             cfg.Topic,
		includeRawContent: cfg.IncludeRawContent,
		httpClient:        &http.Client{Timeout: cfg.Timeout},
	}
}

type searchRequest struct {
	Query             string `json:"query"`
	Topic             string `json:"topic,omitempty"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

// Search sends query to the /search endpoint.
func (c *Client) Search(ctx context.Context, query string) (*Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search query is empty")
	}

	body, err := json.Marshal(searchRequest{
		Query:             query,
		Topic:             c.topic,
		MaxResults:        c.maxResults,
		IncludeAnswer:     true,
		IncludeRawContent: c.includeRawContent,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errx.WrapUpstream("tavily", fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errx.WrapUpstream("tavily", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
