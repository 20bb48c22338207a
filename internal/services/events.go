package services

import "context"

// Event types published by the services.
const (
	EventNeighborCreated  = "neighbor.created"
	EventPaymentRecorded  = "payment.recorded"
	EventChargesGenerated = "charges.generated"
)

// EventPublisher delivers domain events. Implementations must not block on
// or report delivery failures; events are informational.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, subject string, data any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, any) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
