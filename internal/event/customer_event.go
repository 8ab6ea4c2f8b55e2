package event

import (
	"context"
	"time"
)

type EventPublisher interface {
	PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error
	PublishCustomerUpdated(ctx context.Context, event CustomerUpdatedEvent) error
	PublishCustomerDeleted(ctx context.Context, event CustomerDeletedEvent) error
}

type CustomerEventPayload struct {
	ID   string  `json:"id"`
	Name *string `json:"name"`
}

type CustomerCreatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type CustomerUpdatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type CustomerDeletedEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	CustomerID string    `json:"id"`
}

// NoopEventPublisher drops every event. It is used when no broker is configured.
type NoopEventPublisher struct{}

var _ EventPublisher = NoopEventPublisher{}

func (NoopEventPublisher) PublishCustomerCreated(context.Context, CustomerCreatedEvent) error {
	return nil
}

func (NoopEventPublisher) PublishCustomerUpdated(context.Context, CustomerUpdatedEvent) error {
	return nil
}

func (NoopEventPublisher) PublishCustomerDeleted(context.Context, CustomerDeletedEvent) error {
	return nil
}
