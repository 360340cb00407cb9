// Package llm provides a provider-agnostic client for AI search backends
// with rate-limit-aware retry and JSON extraction helpers.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Endpoint identifies one concrete provider deployment.
type Endpoint struct {
	// Provider is a registered provider name.
	Provider string

	// BaseURL overrides the provider's default API host when non-empty.
	BaseURL string

	// Model is the provider-specific model identifier.
	Model string

	// APIKey authenticates the request. Required by both supported
	// providers; validated at configuration time, not here.
	APIKey string
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system" or "user"
	Content string `json:"content"` // Message content
}

// Request defines a completion request.
type Request struct {
	// Messages is the prompt sent to the backend.
	Messages []Message

	// Temperature controls randomness. nil uses the provider default.
	Temperature *float64
}

// Response contains the completion result.
type Response struct {
	// Content is the generated text.
	Content string

	// Model is the model that produced the response, when reported.
	Model string

	// TokensUsed is the total tokens consumed, when reported.
	TokensUsed int
}

// Client sends completion requests to a single configured endpoint,
// retrying only on rate limiting.
type Client struct {
	endpoint   Endpoint
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		client.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a client for the given endpoint.
func NewClient(ep Endpoint, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: ep,
		retry:    DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // search-grounded generation is slow
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Endpoint returns the configured endpoint.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Complete sends a completion request. On HTTP 429 it sleeps for the
// server-suggested wait (or the configured default) plus a safety margin
// and retries, up to RetryConfig.MaxRetries additional attempts. Every
// other failure is returned immediately.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	provider := GetProvider(c.endpoint.Provider)
	if provider == nil {
		return nil, NewFatalError(fmt.Errorf("unknown provider: %s", c.endpoint.Provider))
	}

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		resp, err := c.doRequest(ctx, provider, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		rle, ok := AsRateLimit(err)
		if !ok {
			return nil, err
		}

		if attempt == c.retry.MaxRetries {
			break
		}

		wait := c.retry.backoffFor(rle.Hint)
		c.logger.Warn("Rate limited, backing off",
			"provider", c.endpoint.Provider,
			"attempt", attempt+1,
			"max_attempts", c.retry.MaxRetries+1,
			"wait", wait)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, c.retry.MaxRetries+1, lastErr)
}

// doRequest executes a single HTTP request against the endpoint.
func (c *Client) doRequest(ctx context.Context, provider Provider, req Request) (*Response, error) {
	url := provider.BuildURL(c.endpoint.BaseURL, c.endpoint.Model, c.endpoint.APIKey)

	body, err := provider.BuildRequestBody(c.endpoint.Model, req.Messages, req.Temperature)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	c.logger.Debug("Sending generation request",
		"provider", c.endpoint.Provider,
		"model", c.endpoint.Model,
		"messages", len(req.Messages))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq, c.endpoint.APIKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	resp, err := provider.ParseResponse(respBody)
	if err != nil {
		return nil, NewFatalError(err)
	}
	if resp.Content == "" {
		return nil, NewFatalError(fmt.Errorf("empty content in %s response", c.endpoint.Provider))
	}
	return resp, nil
}

// classifyHTTPError maps an HTTP error to the retry taxonomy: 429 is the
// single retryable case, everything else fails the region outright.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 500 {
		bodyStr = bodyStr[:500] + "..."
	}

	err := fmt.Errorf("provider API error (status %d): %s", statusCode, bodyStr)

	if statusCode == http.StatusTooManyRequests {
		hint, _ := ParseRetryHint(string(body))
		return NewRateLimitError(err, hint)
	}
	return NewFatalError(err)
}
