package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowatch/geowatch/event"
)

func mkEvent(title, country, desc string) event.Event {
	return event.Event{
		Title:       title,
		Country:     country,
		Description: desc,
		DedupHash:   event.DedupHash(title, country),
	}
}

func TestDedupe_KeepsFirstSeen(t *testing.T) {
	events := []event.Event{
		mkEvent("Border Clash Erupts", "Chadistan", "first report"),
		mkEvent("Capital Protest", "Freedonia", "unrelated"),
		mkEvent("border clash erupts", "Chadistan", "second report"),
	}

	unique := event.Dedupe(events)

	require.Len(t, unique, 2)
	assert.Equal(t, "first report", unique[0].Description)
	assert.Equal(t, "Capital Protest", unique[1].Title)
}

func TestDedupe_PreservesOrder(t *testing.T) {
	events := []event.Event{
		mkEvent("C", "x", ""),
		mkEvent("A", "x", ""),
		mkEvent("B", "x", ""),
	}

	unique := event.Dedupe(events)

	require.Len(t, unique, 3)
	assert.Equal(t, "C", unique[0].Title)
	assert.Equal(t, "A", unique[1].Title)
	assert.Equal(t, "B", unique[2].Title)
}

func TestDedupe_Idempotent(t *testing.T) {
	events := []event.Event{
		mkEvent("Border Clash Erupts", "Chadistan", ""),
		mkEvent("Border Clash Erupts", "Chadistan", ""),
	}

	once := event.Dedupe(events)
	twice := event.Dedupe(once)
	assert.Equal(t, once, twice)
	assert.Len(t, twice, 1)
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, event.Dedupe(nil))
	assert.Empty(t, event.Dedupe([]event.Event{}))
}
