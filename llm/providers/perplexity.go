// Package providers implements AI search backend adapters.
package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/geowatch/geowatch/llm"
)

// PerplexityProvider implements the Perplexity chat completions API,
// which follows the OpenAI request/response format.
type PerplexityProvider struct{}

func init() {
	llm.RegisterProvider(&PerplexityProvider{})
}

// Name returns the provider identifier.
func (p *PerplexityProvider) Name() string {
	return "perplexity"
}

// SourceLabel attributes events to Perplexity's search grounding.
func (p *PerplexityProvider) SourceLabel() string {
	return "Perplexity Search"
}

// BuildURL constructs the chat completions endpoint.
func (p *PerplexityProvider) BuildURL(baseURL, _, _ string) string {
	if baseURL == "" {
		baseURL = "https://api.perplexity.ai"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// SetHeaders adds bearer authentication.
func (p *PerplexityProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// perplexityRequest is the OpenAI-compatible request format.
type perplexityRequest struct {
	Model       string              `json:"model"`
	Messages    []perplexityMessage `json:"messages"`
	Temperature *float64            `json:"temperature,omitempty"`
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildRequestBody creates the chat completions request body.
func (p *PerplexityProvider) BuildRequestBody(model string, messages []llm.Message, temperature *float64) ([]byte, error) {
	apiMessages := make([]perplexityMessage, len(messages))
	for i, msg := range messages {
		apiMessages[i] = perplexityMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return json.Marshal(perplexityRequest{
		Model:       model,
		Messages:    apiMessages,
		Temperature: temperature,
	})
}

// perplexityResponse is the OpenAI-compatible response format.
type perplexityResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// ParseResponse extracts the generated text.
func (p *PerplexityProvider) ParseResponse(body []byte) (*llm.Response, error) {
	var resp perplexityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse perplexity response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in perplexity response")
	}

	return &llm.Response{
		Content:    resp.Choices[0].Message.Content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
