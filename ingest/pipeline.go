// Package ingest orchestrates one ingestion cycle: fan-out of region
// fetches, normalization, deduplication, and purge-and-insert
// publication to the event store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/geowatch/geowatch/config"
	"github.com/geowatch/geowatch/event"
	"github.com/geowatch/geowatch/region"
)

// ErrCycleInFlight is returned when a cycle is triggered while another
// is still running. Concurrent cycles would race on the purge/insert
// pair, so at most one runs at a time.
var ErrCycleInFlight = errors.New("an ingestion cycle is already running")

// Fetcher obtains one region's raw response text.
type Fetcher interface {
	FetchRegion(ctx context.Context, r region.Region) (string, error)
}

// Store is the slice of the event store the pipeline writes.
type Store interface {
	DeleteAll(ctx context.Context) error
	InsertBatch(ctx context.Context, events []event.Event) error
}

// Announcer publishes cycle summaries for downstream consumers.
// Optional; announcement failures never fail a cycle.
type Announcer interface {
	AnnounceCycle(ctx context.Context, summary CycleSummary) error
}

// CycleSummary describes one completed cycle.
type CycleSummary struct {
	CycleID    string         `json:"cycle_id"`
	Processed  int            `json:"processed"`
	Regions    map[string]int `json:"regions"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
}

// Result is returned to the triggering caller.
type Result struct {
	CycleID   string
	Processed int
	Regions   map[string]int
	Duration  time.Duration
}

// Options tune the pipeline's dispatch behaviour.
type Options struct {
	// Dispatch is config.DispatchSequential or config.DispatchParallel.
	// Sequential (the default) spaces batches by BatchDelay to respect a
	// shared rate-limit budget; parallel runs exactly one goroutine per
	// region and leans on the per-request 429 backoff alone.
	Dispatch string

	// BatchDelay spaces sequential region fetches.
	BatchDelay time.Duration

	// SourceLabel is the attribution recorded on normalized events.
	SourceLabel string
}

// Pipeline runs ingestion cycles.
type Pipeline struct {
	fetcher   Fetcher
	store     Store
	planner   *region.Planner
	announcer Announcer
	opts      Options
	logger    *slog.Logger

	// mu serializes cycles; TryLock keeps the HTTP trigger non-blocking.
	mu sync.Mutex

	now func() time.Time
}

// New creates a Pipeline. announcer may be nil.
func New(fetcher Fetcher, store Store, planner *region.Planner, announcer Announcer, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Dispatch == "" {
		opts.Dispatch = config.DispatchSequential
	}
	return &Pipeline{
		fetcher:   fetcher,
		store:     store,
		planner:   planner,
		announcer: announcer,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one full ingestion cycle and returns the processed count.
// Region failures degrade to empty results; only a store insert failure
// (or a concurrent cycle) surfaces as an error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if !p.mu.TryLock() {
		return nil, ErrCycleInFlight
	}
	defer p.mu.Unlock()

	started := p.now()
	cycleID := uuid.New().String()
	regions := p.planner.Regions()

	p.logger.Info("Starting ingestion cycle",
		"cycle_id", cycleID,
		"regions", len(regions),
		"dispatch", p.opts.Dispatch)

	batches, err := p.fetchAll(ctx, regions, started)
	if err != nil {
		cyclesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	// Flatten in region order; the deduplicator's first-seen rule makes
	// this ordering part of the contract.
	var all []event.Event
	perRegion := make(map[string]int, len(regions))
	for i, batch := range batches {
		perRegion[regions[i].Name] = len(batch)
		all = append(all, batch...)
	}

	unique := event.Dedupe(all)
	duplicatesDropped.Add(float64(len(all) - len(unique)))

	if len(unique) == 0 {
		p.logger.Warn("No events found this cycle, store left untouched", "cycle_id", cycleID)
		cyclesTotal.WithLabelValues("empty").Inc()
		return &Result{
			CycleID:  cycleID,
			Regions:  perRegion,
			Duration: p.now().Sub(started),
		}, nil
	}

	// Purge-and-insert. A purge failure is tolerated: risking duplicate
	// or stale rows beats losing the whole cycle's data.
	if err := p.store.DeleteAll(ctx); err != nil {
		purgeFailures.Inc()
		p.logger.Error("Failed to purge old events, inserting anyway",
			"cycle_id", cycleID, "error", err)
	}

	if err := p.store.InsertBatch(ctx, unique); err != nil {
		cyclesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("publish events: %w", err)
	}

	duration := p.now().Sub(started)
	publishedEvents.Set(float64(len(unique)))
	cyclesTotal.WithLabelValues("success").Inc()
	cycleDuration.Observe(duration.Seconds())

	p.logger.Info("Ingestion cycle complete",
		"cycle_id", cycleID,
		"fetched", len(all),
		"published", len(unique),
		"duration", duration)

	p.announce(ctx, CycleSummary{
		CycleID:    cycleID,
		Processed:  len(unique),
		Regions:    perRegion,
		StartedAt:  started,
		DurationMS: duration.Milliseconds(),
	})

	return &Result{
		CycleID:   cycleID,
		Processed: len(unique),
		Regions:   perRegion,
		Duration:  duration,
	}, nil
}

// fetchAll collects every region's normalized events, sequentially with
// spacing or in parallel, preserving region order in the result.
func (p *Pipeline) fetchAll(ctx context.Context, regions []region.Region, fetchedAt time.Time) ([][]event.Event, error) {
	batches := make([][]event.Event, len(regions))

	if p.opts.Dispatch == config.DispatchParallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, r := range regions {
			i, r := i, r
			g.Go(func() error {
				batches[i] = p.fetchRegion(gctx, r, fetchedAt)
				return nil
			})
		}
		// Workers only report ctx cancellation; region errors are
		// already degraded to empty batches.
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return batches, nil
	}

	for i, r := range regions {
		if i > 0 && p.opts.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.opts.BatchDelay):
			}
		}
		batches[i] = p.fetchRegion(ctx, r, fetchedAt)
	}
	return batches, nil
}

// fetchRegion runs one region fetch and normalization. Every failure
// mode is contained here: the region degrades to zero events and the
// cycle carries on.
func (p *Pipeline) fetchRegion(ctx context.Context, r region.Region, fetchedAt time.Time) []event.Event {
	content, err := p.fetcher.FetchRegion(ctx, r)
	if err != nil {
		regionFailures.WithLabelValues(r.Name, "fetch").Inc()
		p.logger.Error("Region fetch failed", "region", r.Name, "error", err)
		return nil
	}

	events, stats, err := event.ParseBatch(content, event.NormalizeOptions{
		SourceLabel: p.opts.SourceLabel,
		FetchedAt:   fetchedAt,
	})
	if err != nil {
		regionFailures.WithLabelValues(r.Name, "parse").Inc()
		p.logger.Error("Region response unparsable", "region", r.Name, "error", err)
		return nil
	}

	eventsFetched.WithLabelValues(r.Name).Add(float64(len(events)))
	recordsDropped.WithLabelValues("malformed").Add(float64(stats.DroppedMalformed))
	recordsDropped.WithLabelValues("untitled").Add(float64(stats.DroppedUntitled))
	recordsDropped.WithLabelValues("unlocated").Add(float64(stats.DroppedUnlocated))

	p.logger.Info("Region fetched",
		"region", r.Name,
		"parsed", stats.Parsed,
		"kept", len(events),
		"unlocated", stats.DroppedUnlocated)

	return events
}

func (p *Pipeline) announce(ctx context.Context, summary CycleSummary) {
	if p.announcer == nil {
		return
	}
	if err := p.announcer.AnnounceCycle(ctx, summary); err != nil {
		p.logger.Warn("Failed to announce cycle", "cycle_id", summary.CycleID, "error", err)
	}
}
