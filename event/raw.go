package event

import (
	"strconv"
	"strings"
)

// Coordinate decodes from a JSON number or a quoted numeric string; the
// backends emit both. Anything unparsable decodes to 0, the sentinel
// for "no valid location resolved", so one bad field never drops the
// whole batch as malformed.
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*c = 0
		return nil
	}
	*c = Coordinate(f)
	return nil
}

// RawEvent is the untyped record shape the AI backends are prompted to
// emit. Nothing about it can be trusted: every field is defaulted or
// validated during normalization, and malformed elements are dropped
// without failing the batch.
type RawEvent struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	Country     string     `json:"country"`
	Region      string     `json:"region"`
	City        string     `json:"city"`
	Latitude    Coordinate `json:"latitude"`
	Longitude   Coordinate `json:"longitude"`
	Sources     []string   `json:"sources"`
	LatestDate  string     `json:"latest_date"`
}
