package providers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowatch/geowatch/llm"
)

func TestPerplexityProvider_BuildURL(t *testing.T) {
	p := &PerplexityProvider{}

	assert.Equal(t, "https://api.perplexity.ai/chat/completions", p.BuildURL("", "sonar-pro", "k"))
	assert.Equal(t, "http://localhost:1234/chat/completions", p.BuildURL("http://localhost:1234/", "m", "k"))
	assert.Equal(t, "http://x/chat/completions", p.BuildURL("http://x/chat/completions", "m", "k"))
}

func TestPerplexityProvider_SetHeaders(t *testing.T) {
	p := &PerplexityProvider{}

	req, err := http.NewRequest(http.MethodPost, "http://example.com", nil)
	require.NoError(t, err)

	p.SetHeaders(req, "secret")
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
}

func TestPerplexityProvider_BuildRequestBody(t *testing.T) {
	p := &PerplexityProvider{}
	temp := 0.1

	body, err := p.BuildRequestBody("sonar-pro", []llm.Message{
		{Role: "system", Content: "JSON only."},
		{Role: "user", Content: "List events."},
	}, &temp)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "sonar-pro", req["model"])
	assert.Equal(t, 0.1, req["temperature"])

	messages := req["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "List events.", messages[1].(map[string]any)["content"])
}

func TestPerplexityProvider_ParseResponse_NoChoices(t *testing.T) {
	p := &PerplexityProvider{}

	_, err := p.ParseResponse([]byte(`{"choices": []}`))
	require.Error(t, err)
}

func TestProviderRegistry(t *testing.T) {
	// Both providers self-register via init().
	require.NotNil(t, llm.GetProvider("gemini"))
	require.NotNil(t, llm.GetProvider("perplexity"))
	assert.Nil(t, llm.GetProvider("newsapi"))

	assert.Equal(t, "Google News Search", llm.GetProvider("gemini").SourceLabel())
	assert.Equal(t, "Perplexity Search", llm.GetProvider("perplexity").SourceLabel())
}
