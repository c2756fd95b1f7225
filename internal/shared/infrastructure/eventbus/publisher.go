package eventbus

import (
	"context"
	"encoding/json"

	"github.com/greenbasket/greenbasket/internal/shared/domain"
)

// Publisher defines the interface for publishing events to a message broker.
type Publisher interface {
	// Publish sends a message to the event bus.
	Publish(ctx context.Context, routingKey string, payload []byte) error

	// Close closes the publisher connection.
	Close() error
}

// PublishDomainEvent serializes a domain event and publishes it under its
// routing key.
func PublishDomainEvent(ctx context.Context, pub Publisher, event domain.DomainEvent) error {
	payload, err := json.Marshal(NewConsumedEvent(event))
	if err != nil {
		return err
	}
	return pub.Publish(ctx, event.RoutingKey(), payload)
}

// PublishDomainEvents publishes a batch of events in order, stopping at the
// first broker failure.
func PublishDomainEvents(ctx context.Context, pub Publisher, events []domain.DomainEvent) error {
	for _, event := range events {
		if err := PublishDomainEvent(ctx, pub, event); err != nil {
			return err
		}
	}
	return nil
}
