// Package messenger turns broker calls into XCM envelopes and hands them to the relay
// chain transport. Sends are fire-and-forget: the result only says whether the transport
// accepted the bytes.
package messenger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/coretime-allocator/internal/metrics"
	"github.com/morezero/coretime-allocator/pkg/codec"
	"github.com/morezero/coretime-allocator/pkg/events"
	"github.com/morezero/coretime-allocator/pkg/xcm"
)

const logPrefix = "messenger:messenger"

// Outcome describes one transport handoff.
type Outcome struct {
	ID     string
	Call   string
	Bytes  int
	Status string
	Err    error
}

// Messenger is the message dispatcher for the four broker calls.
type Messenger struct {
	sender    Sender
	dest      xcm.Location
	publisher events.EventPublisher
	metrics   *metrics.Metrics
}

// NewMessengerParams holds parameters for creating a Messenger.
type NewMessengerParams struct {
	Sender Sender
	// Dest defaults to xcm.Parent.
	Dest      *xcm.Location
	Publisher events.EventPublisher
	Metrics   *metrics.Metrics
}

// NewMessenger creates a new Messenger.
func NewMessenger(params NewMessengerParams) *Messenger {
	dest := xcm.Parent
	if params.Dest != nil {
		dest = *params.Dest
	}
	pub := params.Publisher
	if pub == nil {
		pub = events.NoOpPublisher{}
	}
	return &Messenger{
		sender:    params.Sender,
		dest:      dest,
		publisher: pub,
		metrics:   params.Metrics,
	}
}

// RequestCoreCount asks the relay chain to make count cores available.
func (m *Messenger) RequestCoreCount(ctx context.Context, count codec.CoreIndex) (*Outcome, error) {
	return m.dispatch(ctx, codec.RequestCoreCount{Count: count})
}

// RequestRevenueInfoAt asks for revenue accounting at block when.
func (m *Messenger) RequestRevenueInfoAt(ctx context.Context, when codec.BlockNumber) (*Outcome, error) {
	return m.dispatch(ctx, codec.RequestRevenueInfoAt{When: when})
}

// CreditAccount credits amount to who on the relay chain.
func (m *Messenger) CreditAccount(ctx context.Context, who codec.AccountID, amount codec.Balance) (*Outcome, error) {
	return m.dispatch(ctx, codec.CreditAccount{Who: who, Amount: amount})
}

// AssignCore binds core to assignment from begin. The parts in assignment are passed
// through as given.
func (m *Messenger) AssignCore(ctx context.Context, core codec.CoreIndex, begin codec.BlockNumber, assignment []codec.AssignmentPart, endHint *codec.BlockNumber) (*Outcome, error) {
	return m.dispatch(ctx, codec.AssignCore{
		Core:       core,
		Begin:      begin,
		Assignment: assignment,
		EndHint:    endHint,
	})
}

func (m *Messenger) dispatch(ctx context.Context, call codec.Call) (*Outcome, error) {
	msg := xcm.NewTransactMessage(codec.Encode(call))
	out := &Outcome{ID: uuid.NewString(), Call: call.Name(), Status: events.StatusFailed}

	payload, err := msg.Encode()
	if err != nil {
		out.Err = fmt.Errorf("%s - failed to encode %s: %w", logPrefix, call.Name(), err)
		m.record(ctx, call, out)
		return out, out.Err
	}
	out.Bytes = len(payload)

	env := &Envelope{
		ID:        out.ID,
		Call:      call.Name(),
		CallIndex: call.CallIndex(),
		Dest:      m.dest,
		Message:   msg,
		Payload:   payload,
	}
	if err := m.sender.Send(ctx, env); err != nil {
		out.Err = fmt.Errorf("%s - failed to send %s: %w", logPrefix, call.Name(), err)
		slog.Error(fmt.Sprintf("%s - Failed to send %s (%s) to %s: %v", logPrefix, call.Name(), out.ID, m.dest, err))
		m.record(ctx, call, out)
		return out, out.Err
	}

	out.Status = events.StatusSent
	slog.Info(fmt.Sprintf("%s - Sent %s (%s, %d bytes) to %s", logPrefix, call.Name(), out.ID, out.Bytes, m.dest))
	m.record(ctx, call, out)
	return out, nil
}

func (m *Messenger) record(ctx context.Context, call codec.Call, out *Outcome) {
	m.metrics.ObserveDispatch(out.Call, out.Status, out.Bytes)

	event := &events.DispatchOutcomeEvent{
		CorrelationID: out.ID,
		Call:          out.Call,
		CallIndex:     call.CallIndex(),
		Destination:   m.dest.String(),
		Bytes:         out.Bytes,
		Status:        out.Status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if out.Err != nil {
		event.Error = out.Err.Error()
	}
	if err := m.publisher.PublishOutcome(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish outcome for %s: %v", logPrefix, out.ID, err))
	}
}
