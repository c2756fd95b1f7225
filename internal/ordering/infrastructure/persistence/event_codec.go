package persistence

import (
	"encoding/json"

	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/eventstore"
)

// NewOrderEventCodec registers decoders for every order event type. An
// unregistered type in a stored stream is a fatal read error.
func NewOrderEventCodec() *eventstore.Codec {
	codec := eventstore.NewCodec()

	codec.Register(domain.EventTypeOrderPlaced, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.OrderPlaced
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeOrderConfirmed, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.OrderConfirmed
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeOrderCancelled, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.OrderCancelled
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeOrderAssigned, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.OrderAssigned
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeOrderOutForDelivery, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.OrderOutForDelivery
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeOrderDelivered, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.OrderDelivered
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	return codec
}
