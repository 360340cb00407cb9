package event_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowatch/geowatch/event"
)

var testOpts = event.NormalizeOptions{
	SourceLabel: "Test Search",
	FetchedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
}

func validRaw() event.RawEvent {
	return event.RawEvent{
		Title:      "Border Clash Erupts",
		Type:       "armed_clash",
		Severity:   "red",
		Country:    "Chadistan",
		Latitude:   12.5,
		Longitude:  -3.25,
		Sources:    []string{"http://example.com/report"},
		LatestDate: "2026-02-27",
	}
}

func TestNormalizeType_Total(t *testing.T) {
	tests := []struct {
		input string
		want  event.Type
	}{
		{"conflict", event.TypeConflict},
		{"protest", event.TypeProtest},
		{"civil_unrest", event.TypeCivilUnrest},
		{"armed_clash", event.TypeArmedClash},
		{"demonstration", event.TypeDemonstration},
		{"other", event.TypeOther},
		// Case and whitespace repaired before matching.
		{"Civil Unrest", event.TypeCivilUnrest},
		{"ARMED  CLASH", event.TypeArmedClash},
		// Substring fallbacks for common backend phrasing.
		{"proxy war", event.TypeConflict},
		{"street fighting", event.TypeArmedClash},
		{"food riots", event.TypeCivilUnrest},
		// Absent defaults to conflict; anything else is other.
		{"", event.TypeConflict},
		{"   ", event.TypeConflict},
		{"diplomatic spat", event.TypeOther},
		{"?!@#$%", event.TypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, event.NormalizeType(tt.input))
		})
	}
}

func TestNormalizeSeverity(t *testing.T) {
	assert.Equal(t, event.SeverityRed, event.NormalizeSeverity("red"))
	assert.Equal(t, event.SeverityRed, event.NormalizeSeverity(" RED "))
	assert.Equal(t, event.SeverityGreen, event.NormalizeSeverity("green"))
	assert.Equal(t, event.SeverityYellow, event.NormalizeSeverity("yellow"))

	// Absent or unrecognized degrades to yellow, never red.
	assert.Equal(t, event.SeverityYellow, event.NormalizeSeverity(""))
	assert.Equal(t, event.SeverityYellow, event.NormalizeSeverity("critical"))
	assert.Equal(t, event.SeverityYellow, event.NormalizeSeverity("orange"))
}

func TestDedupHash(t *testing.T) {
	// Deterministic and case-insensitive on both inputs.
	h1 := event.DedupHash("Border Clash Erupts", "Chadistan")
	h2 := event.DedupHash("border clash erupts", "CHADISTAN")
	assert.Equal(t, h1, h2)

	// Only the first 20 characters of the title matter.
	h3 := event.DedupHash("Border Clash Erupts Near The Northern Frontier", "Chadistan")
	h4 := event.DedupHash("Border Clash Erupts At The Disputed Dam", "Chadistan")
	assert.Equal(t, h3, h4)

	// Encoding is stable base64 of prefix-country.
	want := base64.StdEncoding.EncodeToString([]byte("border clash erupts-chadistan"))
	assert.Equal(t, want, h1)

	// Country distinguishes, and empty country maps to "unknown".
	assert.NotEqual(t, h1, event.DedupHash("Border Clash Erupts", "Freedonia"))
	assert.Equal(t,
		base64.StdEncoding.EncodeToString([]byte("border clash erupts-unknown")),
		event.DedupHash("Border Clash Erupts", ""))
}

func TestNormalize_Valid(t *testing.T) {
	raw := validRaw()
	raw.Region = "North Province"
	raw.City = "Port Chad"

	ev, ok := event.Normalize(raw, testOpts)
	require.True(t, ok)

	assert.Equal(t, "Border Clash Erupts", ev.Title)
	assert.Equal(t, event.TypeArmedClash, ev.Type)
	assert.Equal(t, event.SeverityRed, ev.Severity)
	assert.Equal(t, "North Province", ev.Admin1)
	assert.Equal(t, "Port Chad", ev.City)
	assert.Equal(t, []string{"http://example.com/report"}, ev.SourceURL)
	assert.Equal(t, []string{"Test Search"}, ev.SourceName)
	assert.Equal(t, time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC), ev.OccurredAt)
	assert.Equal(t, event.DedupHash("Border Clash Erupts", "Chadistan"), ev.DedupHash)
}

func TestNormalize_DropsZeroCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon event.Coordinate
		wantKeep bool
	}{
		{"both zero", 0, 0, false},
		{"zero latitude", 0, 10, false},
		{"zero longitude", 10, 0, false},
		{"both set", 10, 10, true},
		{"negative coordinates kept", -33.9, 18.4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			raw.Latitude = tt.lat
			raw.Longitude = tt.lon

			ev, ok := event.Normalize(raw, testOpts)
			assert.Equal(t, tt.wantKeep, ok)
			if ok {
				assert.False(t, ev.Latitude == 0 && ev.Longitude == 0)
			}
		})
	}
}

func TestNormalize_DropsEmptyTitle(t *testing.T) {
	raw := validRaw()
	raw.Title = "  "

	_, ok := event.Normalize(raw, testOpts)
	assert.False(t, ok)
}

func TestNormalize_OccurredAtFallback(t *testing.T) {
	raw := validRaw()
	raw.LatestDate = ""
	ev, ok := event.Normalize(raw, testOpts)
	require.True(t, ok)
	assert.Equal(t, testOpts.FetchedAt, ev.OccurredAt)

	raw.LatestDate = "late January" // vague dates degrade to fetch time
	ev, ok = event.Normalize(raw, testOpts)
	require.True(t, ok)
	assert.Equal(t, testOpts.FetchedAt, ev.OccurredAt)
}

func TestNormalize_GeneratedSearchURL(t *testing.T) {
	raw := validRaw()
	raw.Sources = nil

	ev, ok := event.Normalize(raw, testOpts)
	require.True(t, ok)
	require.Len(t, ev.SourceURL, 1)
	assert.Contains(t, ev.SourceURL[0], "https://www.google.com/search?q=")
	assert.Contains(t, ev.SourceURL[0], "tbm=nws")
	assert.Contains(t, ev.SourceURL[0], "2026")
}

func TestParseBatch(t *testing.T) {
	content := `Sure, here are the events:
	[
		{"title": "Event A", "type": "conflict", "severity": "red", "country": "X", "latitude": 1, "longitude": 2},
		{"title": "Event B", "type": "protest", "severity": "yellow", "country": "Y", "latitude": 0, "longitude": 0},
		{"title": "", "type": "other", "country": "Z", "latitude": 3, "longitude": 4},
		"not an object",
		{"title": "Event C", "type": "border war", "country": "X", "latitude": 5, "longitude": 6},
		{"title": "Event D", "type": "protest", "country": "Y", "latitude": "48.85", "longitude": "2.35"}
	]`

	events, stats, err := event.ParseBatch(content, testOpts)
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, "Event A", events[0].Title)
	assert.Equal(t, "Event C", events[1].Title)
	assert.Equal(t, event.TypeConflict, events[1].Type) // "border war" fallback

	// Quoted coordinates are accepted, not treated as malformed.
	assert.Equal(t, "Event D", events[2].Title)
	assert.Equal(t, 48.85, events[2].Latitude)

	assert.Equal(t, 5, stats.Parsed)
	assert.Equal(t, 1, stats.DroppedMalformed)
	assert.Equal(t, 1, stats.DroppedUntitled)
	assert.Equal(t, 1, stats.DroppedUnlocated)
}

func TestCoordinate_TolerantDecode(t *testing.T) {
	var raw event.RawEvent
	require.NoError(t, json.Unmarshal(
		[]byte(`{"latitude": "not a number", "longitude": "5.5", "title": "x"}`), &raw))
	assert.Zero(t, raw.Latitude)
	assert.Equal(t, event.Coordinate(5.5), raw.Longitude)

	require.NoError(t, json.Unmarshal([]byte(`{"latitude": null}`), &raw))
	assert.Zero(t, raw.Latitude)
}

func TestParseBatch_NoArray(t *testing.T) {
	_, _, err := event.ParseBatch("I found no events today.", testOpts)
	require.Error(t, err)

	_, _, err = event.ParseBatch("", testOpts)
	require.Error(t, err)
}

func TestParseBatch_InvalidArray(t *testing.T) {
	_, _, err := event.ParseBatch(`[{"title": }]`, testOpts)
	require.Error(t, err)
}
