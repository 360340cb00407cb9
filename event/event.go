// Package event defines the canonical geopolitical event record and the
// normalization pipeline that produces it from raw model output.
package event

import (
	"encoding/base64"
	"strings"
	"time"
)

// Type classifies an event into the closed set rendered by the map UI.
type Type string

const (
	TypeConflict      Type = "conflict"
	TypeProtest       Type = "protest"
	TypeCivilUnrest   Type = "civil_unrest"
	TypeArmedClash    Type = "armed_clash"
	TypeDemonstration Type = "demonstration"
	TypeOther         Type = "other"
)

// Severity grades an event for map coloring.
type Severity string

const (
	SeverityRed    Severity = "red"    // active war, high casualties
	SeverityYellow Severity = "yellow" // unrest, tension, diplomatic crisis
	SeverityGreen  Severity = "green"  // diplomacy, ceasefires, aid deals
)

// Event is the validated, normalized event record. It is immutable after
// creation: each ingestion cycle fully replaces the stored set, there is
// no incremental update of existing rows.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        Type      `json:"event_type"`
	Severity    Severity  `json:"severity"`
	Country     string    `json:"country,omitempty"`
	Admin1      string    `json:"admin1,omitempty"`
	City        string    `json:"city,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	SourceURL   []string  `json:"source_url"`
	SourceName  []string  `json:"source_name"`
	OccurredAt  time.Time `json:"occurred_at"`
	DedupHash   string    `json:"dedup_hash"`
}

// hashPrefixLen is how many characters of the lowercased title feed the
// dedup fingerprint. Short on purpose: near-identical headlines from
// different regions should collide.
const hashPrefixLen = 20

// DedupHash computes the deterministic content fingerprint of an event:
// base64 of the lowercased title prefix joined with the lowercased
// country ("unknown" when absent). Not cryptographic; prefix collisions
// between distinct events are an accepted approximation.
func DedupHash(title, country string) string {
	loc := country
	if loc == "" {
		loc = "unknown"
	}

	t := []rune(strings.ToLower(title))
	if len(t) > hashPrefixLen {
		t = t[:hashPrefixLen]
	}

	key := string(t) + "-" + strings.ToLower(loc)
	return base64.StdEncoding.EncodeToString([]byte(key))
}
