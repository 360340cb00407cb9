package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics, exposed on the server's /metrics endpoint.
var (
	eventsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geowatch_region_events_total",
		Help: "Canonical events produced per region after normalization.",
	}, []string{"region"})

	regionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geowatch_region_failures_total",
		Help: "Region fetches that degraded to an empty result.",
	}, []string{"region", "reason"})

	recordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geowatch_records_dropped_total",
		Help: "Raw records dropped during normalization, by reason.",
	}, []string{"reason"})

	duplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geowatch_duplicates_dropped_total",
		Help: "Events collapsed by the deduplicator.",
	})

	publishedEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "geowatch_published_events",
		Help: "Events published by the most recent successful cycle.",
	})

	purgeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geowatch_purge_failures_total",
		Help: "Delete-all failures tolerated before insert.",
	})

	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geowatch_cycles_total",
		Help: "Completed ingestion cycles by outcome.",
	}, []string{"status"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geowatch_cycle_duration_seconds",
		Help:    "Wall time of a full ingestion cycle.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)
