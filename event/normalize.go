package event

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/geowatch/geowatch/llm"
)

// NormalizeOptions carries the per-provider context the normalizer needs.
type NormalizeOptions struct {
	// SourceLabel is the attribution recorded when the raw record names
	// no sources of its own.
	SourceLabel string

	// FetchedAt is the cycle timestamp, used as the occurrence fallback
	// and for the generated verification search URL.
	FetchedAt time.Time
}

// BatchStats counts what happened to one region's raw records.
type BatchStats struct {
	Parsed           int // elements decoded from the JSON array
	DroppedMalformed int // elements that were not valid objects
	DroppedUntitled  int // records with an empty title
	DroppedUnlocated int // records with a zero coordinate
}

// whitespacePattern collapses runs of whitespace during type normalization.
var whitespacePattern = regexp.MustCompile(`\s+`)

// NormalizeType maps a free-text type string onto the closed Type enum.
// The mapping is total: every input yields exactly one enum value.
func NormalizeType(s string) Type {
	if strings.TrimSpace(s) == "" {
		s = string(TypeConflict)
	}
	normalized := whitespacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")

	switch Type(normalized) {
	case TypeConflict, TypeProtest, TypeCivilUnrest, TypeArmedClash, TypeDemonstration, TypeOther:
		return Type(normalized)
	}

	// Common mismatches the backends produce despite the schema prompt.
	switch {
	case strings.Contains(normalized, "war"):
		return TypeConflict
	case strings.Contains(normalized, "fight"):
		return TypeArmedClash
	case strings.Contains(normalized, "riot"):
		return TypeCivilUnrest
	}
	return TypeOther
}

// NormalizeSeverity maps a free-text severity onto the closed Severity
// enum. Absent or unrecognized values degrade to yellow rather than
// silently fabricating a red alert.
func NormalizeSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityRed:
		return SeverityRed
	case SeverityGreen:
		return SeverityGreen
	default:
		return SeverityYellow
	}
}

// occurredAtLayouts are accepted for the exact-date field, most specific
// first. Anything else falls back to fetch time.
var occurredAtLayouts = []string{
	time.RFC3339,
	"2006-01-02",
}

func parseOccurredAt(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range occurredAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

// searchURL builds a Google News search link used to verify events when
// the backend was instructed not to emit URLs itself.
func searchURL(title, country string, fetchedAt time.Time) string {
	query := url.QueryEscape(fmt.Sprintf("%s %s news %d", title, country, fetchedAt.Year()))
	return fmt.Sprintf("https://www.google.com/search?q=%s&tbm=nws", query)
}

// Normalize converts one raw record into a canonical Event. The second
// return value is false when the record must be dropped: empty title, or
// either coordinate exactly zero after defaulting (the sentinel for "no
// valid location resolved").
func Normalize(raw RawEvent, opts NormalizeOptions) (Event, bool) {
	if strings.TrimSpace(raw.Title) == "" {
		return Event{}, false
	}
	if raw.Latitude == 0 || raw.Longitude == 0 {
		return Event{}, false
	}

	sources := raw.Sources
	if len(sources) == 0 {
		sources = []string{searchURL(raw.Title, raw.Country, opts.FetchedAt)}
	}

	return Event{
		Title:       raw.Title,
		Description: raw.Description,
		Type:        NormalizeType(raw.Type),
		Severity:    NormalizeSeverity(raw.Severity),
		Country:     raw.Country,
		Admin1:      raw.Region,
		City:        raw.City,
		Latitude:    float64(raw.Latitude),
		Longitude:   float64(raw.Longitude),
		SourceURL:   sources,
		SourceName:  []string{opts.SourceLabel},
		OccurredAt:  parseOccurredAt(raw.LatestDate, opts.FetchedAt),
		DedupHash:   DedupHash(raw.Title, raw.Country),
	}, true
}

// ParseBatch converts one region's raw response text into canonical
// events. The JSON array is located between the first '[' and last ']'
// (models wrap arrays in prose despite instructions); a missing bracket
// pair or an unparsable array fails the whole batch, while individual
// malformed elements are dropped quietly.
func ParseBatch(content string, opts NormalizeOptions) ([]Event, BatchStats, error) {
	var stats BatchStats

	arr := llm.ExtractJSONArray(content)
	if arr == "" {
		return nil, stats, fmt.Errorf("no JSON array found in response")
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(arr), &elements); err != nil {
		return nil, stats, fmt.Errorf("parse JSON array: %w", err)
	}

	events := make([]Event, 0, len(elements))
	for _, el := range elements {
		var raw RawEvent
		if err := json.Unmarshal(el, &raw); err != nil {
			stats.DroppedMalformed++
			continue
		}
		stats.Parsed++

		ev, ok := Normalize(raw, opts)
		if !ok {
			if strings.TrimSpace(raw.Title) == "" {
				stats.DroppedUntitled++
			} else {
				stats.DroppedUnlocated++
			}
			continue
		}
		events = append(events, ev)
	}

	return events, stats, nil
}
