package persistence

import (
	"encoding/json"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/eventstore"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

// NewSubscriptionEventCodec registers decoders for every subscription event
// type. An unregistered type in a stored stream is a fatal read error.
func NewSubscriptionEventCodec() *eventstore.Codec {
	codec := eventstore.NewCodec()

	codec.Register(domain.EventTypeSubscriptionCreated, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.SubscriptionCreated
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeSubscriptionPaused, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.SubscriptionPaused
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeSubscriptionResumed, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.SubscriptionResumed
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeSubscriptionCancelled, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.SubscriptionCancelled
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeSubscriptionModified, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.SubscriptionModified
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeSubscriptionRenewed, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.SubscriptionRenewed
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeSubscriptionExpired, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.SubscriptionExpired
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	codec.Register(domain.EventTypeOrderGenerated, func(env eventstore.Envelope) (sharedDomain.DomainEvent, error) {
		var event domain.OrderGeneratedFromSubscription
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		event.BaseEvent = eventstore.RehydrateBase(env)
		return &event, nil
	})

	return codec
}
