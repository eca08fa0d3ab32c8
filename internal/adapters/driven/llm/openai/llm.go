// Package openai provides a completion client for OpenAI-compatible
// /chat/completions endpoints, in blocking and streaming form.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.CompletionAPI = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultModel          = "gpt-4o-mini"
	DefaultRequestTimeout = 30 * time.Second
	DefaultStreamTimeout  = 60 * time.Second
)

// maxLineSize bounds a single SSE line.
const maxLineSize = 1 << 20

// Config holds configuration for the completion client.
type Config struct {
	// APIKey is sent as a bearer token when set.
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Any OpenAI-compatible server works.
	BaseURL string

	// Model is the chat model (default: gpt-4o-mini).
	Model string

	// RequestTimeout bounds a blocking completion (default: 30s).
	RequestTimeout time.Duration

	// StreamTimeout bounds a whole stream (default: 60s).
	StreamTimeout time.Duration

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to a chat completions endpoint.
type Client struct {
	http           *http.Client
	baseURL        string
	apiKey         string
	model          string
	requestTimeout time.Duration
	streamTimeout  time.Duration
	limiter        *rate.Limiter
}

// chatRequest is the /chat/completions request body.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// New creates a completion client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = DefaultStreamTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		http:           cfg.HTTPClient,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		requestTimeout: cfg.RequestTimeout,
		streamTimeout:  cfg.StreamTimeout,
		limiter:        rate.NewLimiter(limit, 1),
	}
}

// ModelName returns the chat model.
func (c *Client) ModelName() string {
	return c.model
}

// Complete returns the assistant reply for prompt. Anything other than
// HTTP 200 with non-empty content is a failure.
func (c *Client) Complete(ctx context.Context, prompt string) domain.Result[string] {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.post(ctx, prompt, false)
	if err != nil {
		return domain.Failure("", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Failure("", fmt.Errorf("%w: read response: %w", domain.ErrGenerationFailure, err))
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Failure("", statusError(resp.StatusCode, body))
	}
	if !gjson.ValidBytes(body) {
		return domain.Failure("", fmt.Errorf("%w: malformed response body", domain.ErrGenerationFailure))
	}

	content := gjson.GetBytes(body, "choices.0.message.content").String()
	if content == "" {
		return domain.Failure("", fmt.Errorf("%w: empty completion", domain.ErrGenerationFailure))
	}
	return domain.Success(content)
}

// Stream posts prompt with streaming enabled and passes each content
// delta to emit in arrival order. It returns nil only once the server
// has sent [DONE].
func (c *Client) Stream(ctx context.Context, prompt string, emit func(delta string) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.streamTimeout)
	defer cancel()

	resp, err := c.post(ctx, prompt, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "[DONE]" {
			return nil
		}
		if !gjson.Valid(payload) {
			continue
		}
		delta := gjson.Get(payload, "choices.0.delta.content").String()
		if delta == "" {
			continue
		}
		if err := emit(delta); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read stream: %w", domain.ErrGenerationFailure, err)
	}
	return fmt.Errorf("%w: stream ended before [DONE]", domain.ErrGenerationFailure)
}

func (c *Client) post(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %w", domain.ErrGenerationFailure, err)
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", domain.ErrGenerationFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrGenerationFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %w", domain.ErrGenerationFailure, err)
	}
	return resp, nil
}

// Ping checks the endpoint by listing models.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: create ping request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, body)
	}
	return nil
}

func statusError(status int, body []byte) error {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return fmt.Errorf("%w: status %d: %s", domain.ErrGenerationFailure, status, msg)
}
