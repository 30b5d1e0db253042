// Package ports - EventPublisher decouples the core from the message broker.
package ports

import (
	"context"

	"github.com/coinvault/coinvault/internal/domain/events"
)

// EventPublisher records domain events for delivery. The production
// implementation appends to the transactional outbox, so events commit or
// roll back together with the ledger writes; a background relay pushes
// committed rows to the broker.
type EventPublisher interface {
	// Publish records one event.
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch records several events; all or none.
	PublishBatch(ctx context.Context, batch []events.DomainEvent) error
}
