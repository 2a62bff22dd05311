package events

import "context"

// EventPublisher receives the outcome of every outbound relay chain call.
// Implementations must not block the send path for long; errors are logged by the
// caller and never fail the call itself.
type EventPublisher interface {
	PublishOutcome(ctx context.Context, event *DispatchOutcomeEvent) error
}

// NoOpPublisher drops outcomes. It is the messenger default.
type NoOpPublisher struct{}

func (NoOpPublisher) PublishOutcome(context.Context, *DispatchOutcomeEvent) error {
	return nil
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, event *DispatchOutcomeEvent) error

func (f PublisherFunc) PublishOutcome(ctx context.Context, event *DispatchOutcomeEvent) error {
	return f(ctx, event)
}
