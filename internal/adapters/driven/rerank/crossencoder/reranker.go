// Package crossencoder provides a cross-encoder reranker adapter for servers
// exposing a /rerank endpoint in the Cohere/Jina request format. Responses
// in the text-embeddings-inference shape (a bare array with "score") are
// accepted too.
package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// DefaultTimeout bounds a single rerank request.
const DefaultTimeout = 10 * time.Second

// Config holds configuration for the reranker.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Reranker scores candidate texts with a remote cross-encoder.
type Reranker struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

// New creates a reranker. BaseURL is required.
func New(cfg Config) (*Reranker, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rerank: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Reranker{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Rerank returns one relevance score per text, in input order.
func (r *Reranker) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(rerankRequest{Model: r.model, Query: query, Documents: texts, TopN: len(texts)})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("rerank: invalid JSON response")
	}
	results := gjson.ParseBytes(body)
	if !results.IsArray() {
		results = results.Get("results")
	}

	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	var rangeErr error
	results.ForEach(func(_, res gjson.Result) bool {
		idx := int(res.Get("index").Int())
		if idx < 0 || idx >= len(texts) {
			rangeErr = fmt.Errorf("rerank: result index %d out of range", idx)
			return false
		}
		score := res.Get("relevance_score")
		if !score.Exists() {
			score = res.Get("score")
		}
		scores[idx] = score.Float()
		seen[idx] = true
		return true
	})
	if rangeErr != nil {
		return nil, rangeErr
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank: no score for input %d", i)
		}
	}
	return scores, nil
}

// ModelName returns the name of the rerank model being used.
func (r *Reranker) ModelName() string {
	return r.model
}

// Ping sends a one-document rerank request.
func (r *Reranker) Ping(ctx context.Context) error {
	if _, err := r.Rerank(ctx, "ping", []string{"ping"}); err != nil {
		return fmt.Errorf("rerank: ping failed: %w", err)
	}
	return nil
}
