package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/coretime-allocator/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// OutcomeSubject overrides the base outcome subject (e.g. from ALLOCATOR_OUTCOME_SUBJECT).
	OutcomeSubject string
}

// CommsPublisher publishes outbound call outcomes to COMMS.
//
// Every outcome goes to <base>.<call>.<index> and to <base>. Failed handoffs are also
// published to <base>.failed so operators can watch transport loss with one subscription.
// Each message carries the envelope's correlation id and call name as headers.
type CommsPublisher struct {
	nc             *comms.Conn
	outcomeSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	subject := commsutil.SubjectOutcome
	if opts != nil && opts.OutcomeSubject != "" {
		subject = opts.OutcomeSubject
	}
	return &CommsPublisher{nc: nc, outcomeSubject: subject}
}

// subjects lists where event is published, most specific first.
func (p *CommsPublisher) subjects(event *DispatchOutcomeEvent) []string {
	out := []string{
		commsutil.BuildOutcomeSubject(p.outcomeSubject, event.Call, event.CallIndex),
		p.outcomeSubject,
	}
	if event.Status == StatusFailed {
		out = append(out, commsutil.BuildFailedOutcomeSubject(p.outcomeSubject))
	}
	return out
}

// PublishOutcome publishes event to each of its subjects and stops at the first error.
func (p *CommsPublisher) PublishOutcome(_ context.Context, event *DispatchOutcomeEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}
	headers := map[string]string{
		commsutil.HeaderCall:          event.Call,
		commsutil.HeaderCorrelationID: event.CorrelationID,
	}

	for _, subject := range p.subjects(event) {
		if err := p.nc.PublishMsg(commsutil.NewMsg(subject, data, headers)); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to publish %s outcome to %s: %v", commsPublisherLogPrefix, event.Call, subject, err))
			return fmt.Errorf("%s - publish to %s: %w", commsPublisherLogPrefix, subject, err)
		}
	}

	slog.Debug(fmt.Sprintf("%s - Published %s outcome for %s#%d (%s)", commsPublisherLogPrefix, event.Status, event.Call, event.CallIndex, event.CorrelationID))
	return nil
}
