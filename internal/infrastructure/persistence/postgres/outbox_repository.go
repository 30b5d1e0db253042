// Package postgres - transactional outbox. Domain events are appended in
// the same transaction as the ledger writes and relayed to the broker after
// commit, so consumers never see an event for a movement that rolled back.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinvault/coinvault/internal/application/ports"
	"github.com/coinvault/coinvault/internal/domain/events"
)

// Compile-time check
var _ ports.EventPublisher = (*OutboxRepository)(nil)

// OutboxRepository implements ports.EventPublisher by appending events to
// the outbox_events table. The relay side (FetchUndispatched/MarkDispatched)
// is consumed by the NATS relay loop.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// eventEnvelope is the serialized outbox payload.
type eventEnvelope struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	OccurredAt string `json:"occurred_at"`
	Data       any    `json:"data"`
}

// Publish appends one event.
func (r *OutboxRepository) Publish(ctx context.Context, event events.DomainEvent) error {
	q := querierFrom(ctx, r.pool)

	payload, err := json.Marshal(eventEnvelope{
		EventID:    event.EventID().String(),
		EventType:  event.EventType(),
		OccurredAt: event.OccurredAt().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Data:       event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", event.EventType(), err)
	}

	query := `
		INSERT INTO outbox_events (event_id, event_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := q.Exec(ctx, query, event.EventID(), event.EventType(), payload, event.OccurredAt()); err != nil {
		return fmt.Errorf("failed to append outbox event: %w", err)
	}
	return nil
}

// PublishBatch appends several events; all ride the caller's transaction,
// so the batch is atomic by construction.
func (r *OutboxRepository) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := r.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// FetchUndispatched reads up to limit committed, undispatched events for
// relay. The row locks last only as long as the surrounding transaction;
// without one they end with the statement, so two callers may read the same
// rows.
func (r *OutboxRepository) FetchUndispatched(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	q := querierFrom(ctx, r.pool)

	query := `
		SELECT id, event_id, event_type, payload
		FROM outbox_events
		WHERE dispatched_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox events: %w", err)
	}
	defer rows.Close()

	var out []ports.OutboxMessage
	for rows.Next() {
		var m ports.OutboxMessage
		if err := rows.Scan(&m.ID, &m.EventID, &m.EventType, &m.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkDispatched stamps relayed rows.
func (r *OutboxRepository) MarkDispatched(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	q := querierFrom(ctx, r.pool)

	if _, err := q.Exec(ctx, `UPDATE outbox_events SET dispatched_at = now() WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to mark outbox events dispatched: %w", err)
	}
	return nil
}
