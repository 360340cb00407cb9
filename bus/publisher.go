// Package bus publishes ingestion cycle announcements over NATS so
// downstream consumers (map cache invalidation, alerting) can react
// without polling the store.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/geowatch/geowatch/ingest"
)

// Publisher announces cycle summaries on a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials NATS and returns a Publisher.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(url,
		nats.Name("geowatch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS", "url", url, "subject", subject)
	return &Publisher{nc: nc, subject: subject, logger: logger}, nil
}

// AnnounceCycle publishes one cycle summary as JSON.
func (p *Publisher) AnnounceCycle(_ context.Context, summary ingest.CycleSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal cycle summary: %w", err)
	}
	if err := p.nc.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish cycle summary: %w", err)
	}
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("NATS drain failed", "error", err)
	}
}
