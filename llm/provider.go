package llm

import (
	"net/http"
	"sync"
)

// Provider defines the interface for AI search backend implementations.
// The two supported backends share the fetch/retry/extraction logic in
// Client and differ only in request shaping and response parsing.
type Provider interface {
	// Name returns the provider identifier (e.g., "gemini", "perplexity").
	Name() string

	// BuildURL constructs the full API endpoint URL. Providers that
	// authenticate via query parameter consume apiKey here.
	BuildURL(baseURL, model, apiKey string) string

	// SetHeaders adds provider-specific headers to the request.
	SetHeaders(req *http.Request, apiKey string)

	// BuildRequestBody creates the JSON request body for the provider.
	// temperature is nil to use the provider default.
	BuildRequestBody(model string, messages []Message, temperature *float64) ([]byte, error)

	// ParseResponse extracts the generated text from provider-specific JSON.
	ParseResponse(body []byte) (*Response, error)

	// SourceLabel is the attribution recorded on events produced from
	// this provider's responses.
	SourceLabel() string
}

// providerRegistry holds registered providers.
var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}
