package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/geowatch/geowatch/llm"
)

// GeminiProvider implements the Google Generative Language API.
type GeminiProvider struct{}

func init() {
	llm.RegisterProvider(&GeminiProvider{})
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() string {
	return "gemini"
}

// SourceLabel attributes events to the generated verification search URL,
// since Gemini is instructed not to emit source links itself.
func (g *GeminiProvider) SourceLabel() string {
	return "Google News Search"
}

// BuildURL constructs the generateContent endpoint. Gemini authenticates
// via the key query parameter rather than a header.
func (g *GeminiProvider) BuildURL(baseURL, model, apiKey string) string {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", baseURL, model, url.QueryEscape(apiKey))
}

// SetHeaders is a no-op; authentication happens in BuildURL.
func (g *GeminiProvider) SetHeaders(_ *http.Request, _ string) {}

// geminiRequest is the generateContent request format.
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	ResponseMIMEType string   `json:"response_mime_type"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

// BuildRequestBody creates the generateContent request body. Gemini has
// no system role here, so system messages are folded into the user text.
func (g *GeminiProvider) BuildRequestBody(_ string, messages []llm.Message, temperature *float64) ([]byte, error) {
	var parts []string
	for _, msg := range messages {
		parts = append(parts, msg.Content)
	}

	return json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: strings.Join(parts, "\n\n")}}},
		},
		GenerationConfig: geminiGenConfig{
			ResponseMIMEType: "application/json",
			Temperature:      temperature,
		},
	})
}

// geminiResponse is the generateContent response format.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// ParseResponse extracts the generated text.
func (g *GeminiProvider) ParseResponse(body []byte) (*llm.Response, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no candidates in gemini response")
	}

	return &llm.Response{
		Content:    resp.Candidates[0].Content.Parts[0].Text,
		Model:      resp.ModelVersion,
		TokensUsed: resp.UsageMetadata.TotalTokenCount,
	}, nil
}
