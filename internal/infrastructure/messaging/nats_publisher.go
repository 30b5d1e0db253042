// Package messaging relays committed outbox events to NATS.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/coinvault/coinvault/internal/infrastructure/persistence/postgres"
)

// SubjectPrefix namespaces all subjects published by this service.
// "transaction.completed" becomes "coinvault.transaction.completed".
const SubjectPrefix = "coinvault."

// RelayConfig tunes the outbox relay loop.
type RelayConfig struct {
	PollInterval time.Duration // how often to check for undispatched rows
	BatchSize    int           // rows claimed per poll
}

// DefaultRelayConfig returns production defaults.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		PollInterval: time.Second,
		BatchSize:    100,
	}
}

// OutboxRelay drains committed outbox rows into NATS. Delivery is
// at-least-once: a crash between publish and MarkDispatched re-publishes,
// so consumers must be idempotent on event_id.
type OutboxRelay struct {
	conn   *nats.Conn
	outbox *postgres.OutboxRepository
	cfg    RelayConfig
	logger *slog.Logger
	done   chan struct{}
}

// Connect dials NATS with sane reconnect behaviour.
func Connect(url, appName string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return conn, nil
}

// NewOutboxRelay creates a relay over an established connection.
func NewOutboxRelay(conn *nats.Conn, outbox *postgres.OutboxRepository, cfg RelayConfig, logger *slog.Logger) *OutboxRelay {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultRelayConfig().PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultRelayConfig().BatchSize
	}
	return &OutboxRelay{
		conn:   conn,
		outbox: outbox,
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start runs the poll loop until the context is cancelled or Stop is called.
func (r *OutboxRelay) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.done:
				return
			case <-ticker.C:
				if err := r.drainOnce(ctx); err != nil {
					r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
				}
			}
		}
	}()
}

// Stop terminates the poll loop.
func (r *OutboxRelay) Stop() {
	close(r.done)
}

// drainOnce fetches one batch, publishes each row, and marks the published
// ones dispatched. A publish failure stops the batch; unmarked rows are
// retried next pass.
func (r *OutboxRelay) drainOnce(ctx context.Context) error {
	batch, err := r.outbox.FetchUndispatched(ctx, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	published := make([]int64, 0, len(batch))
	for _, m := range batch {
		subject := SubjectPrefix + strings.ReplaceAll(m.EventType, "/", ".")
		if err := r.conn.Publish(subject, m.Payload); err != nil {
			r.logger.WarnContext(ctx, "failed to publish outbox event",
				"event_id", m.EventID, "subject", subject, "error", err)
			break
		}
		published = append(published, m.ID)
	}
	if err := r.conn.Flush(); err != nil {
		return err
	}

	return r.outbox.MarkDispatched(ctx, published)
}
