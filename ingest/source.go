package ingest

import (
	"context"
	"time"

	"github.com/geowatch/geowatch/llm"
	"github.com/geowatch/geowatch/region"
)

// Completer is the slice of llm.Client the source needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Source fetches one region's worth of raw event text from the
// configured AI search backend.
type Source struct {
	client      Completer
	targetCount int
	temperature float64
}

// NewSource creates a Source over a completion client.
func NewSource(client Completer, targetCount int, temperature float64) *Source {
	return &Source{
		client:      client,
		targetCount: targetCount,
		temperature: temperature,
	}
}

// FetchRegion requests the region's events and returns the raw response
// text. Retry on rate limiting happens inside the client; any error here
// means the region is done for this cycle.
func (s *Source) FetchRegion(ctx context.Context, r region.Region) (string, error) {
	temp := s.temperature
	resp, err := s.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(r, nowFunc(), s.targetCount)},
		},
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// nowFunc is swapped in tests for deterministic prompts.
var nowFunc = time.Now
