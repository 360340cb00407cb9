// Package storage implements the Postgres event store used by the
// ingestion pipeline (purge and batch insert) and the read API.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geowatch/geowatch/event"
)

// schema creates the events table. Mirrors the original map UI's table so
// the rendering side needs no migration.
const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          UUID PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT,
	event_type  TEXT NOT NULL DEFAULT 'other',
	severity    TEXT NOT NULL DEFAULT 'yellow',
	country     TEXT,
	admin1      TEXT,
	city        TEXT,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	source_url  TEXT[],
	source_name TEXT[],
	occurred_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	dedup_hash  TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events (occurred_at DESC);
`

// Store is a Postgres-backed event store.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects a pgx pool and verifies the connection.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// New creates a Store over an open pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Migrate ensures the events table exists.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping reports store reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// DeleteAll unconditionally purges the stored event set. Each cycle is a
// full replace: the map must show only the latest aggregation.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("purge events: %w", err)
	}
	return nil
}

// InsertBatch writes the new event set in one batch. IDs are assigned
// here; events carry no storage identity before publication.
func (s *Store) InsertBatch(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO events (
				id, title, description, event_type, severity,
				country, admin1, city, latitude, longitude,
				source_url, source_name, occurred_at, dedup_hash
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			uuid.New().String(),
			ev.Title,
			ev.Description,
			string(ev.Type),
			string(ev.Severity),
			nullIfEmpty(ev.Country),
			nullIfEmpty(ev.Admin1),
			nullIfEmpty(ev.City),
			ev.Latitude,
			ev.Longitude,
			ev.SourceURL,
			ev.SourceName,
			ev.OccurredAt,
			ev.DedupHash,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
	}
	return nil
}

// ListRecent returns stored events ordered by occurrence time descending.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]event.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, COALESCE(description, ''), event_type, severity,
		       COALESCE(country, ''), COALESCE(admin1, ''), COALESCE(city, ''),
		       latitude, longitude,
		       COALESCE(source_url, '{}'), COALESCE(source_name, '{}'),
		       occurred_at, COALESCE(dedup_hash, '')
		FROM events
		ORDER BY occurred_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var ev event.Event
		var typ, sev string
		if err := rows.Scan(
			&ev.ID, &ev.Title, &ev.Description, &typ, &sev,
			&ev.Country, &ev.Admin1, &ev.City,
			&ev.Latitude, &ev.Longitude,
			&ev.SourceURL, &ev.SourceName,
			&ev.OccurredAt, &ev.DedupHash,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = event.Type(typ)
		ev.Severity = event.Severity(sev)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
