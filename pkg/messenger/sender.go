package messenger

import (
	"context"
	"fmt"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/coretime-allocator/pkg/commsutil"
	"github.com/morezero/coretime-allocator/pkg/xcm"
)

// Envelope is one outbound message ready for the transport.
type Envelope struct {
	ID        string
	Call      string
	CallIndex uint8
	Dest      xcm.Location
	Message   xcm.Message
	// Payload is the SCALE encoding of Message.
	Payload []byte
}

// Sender hands an envelope to the transport. Delivery is at most once: a nil error only
// means the transport accepted the bytes, and no acknowledgement ever comes back.
type Sender interface {
	Send(ctx context.Context, env *Envelope) error
}

// NatsSender publishes envelopes on a single COMMS connection. Publishes from one
// goroutine reach the server in call order.
type NatsSender struct {
	nc      *comms.Conn
	subject string
}

// NewNatsSender creates a NatsSender. An empty subject uses commsutil.SubjectRelayOutbound.
func NewNatsSender(nc *comms.Conn, subject string) *NatsSender {
	if subject == "" {
		subject = commsutil.SubjectRelayOutbound
	}
	return &NatsSender{nc: nc, subject: subject}
}

// Send publishes the envelope payload with correlation headers. It never waits for a reply.
func (s *NatsSender) Send(ctx context.Context, env *Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := commsutil.NewMsg(s.subject, env.Payload, map[string]string{
		commsutil.HeaderCorrelationID: env.ID,
		commsutil.HeaderCall:          env.Call,
		commsutil.HeaderDestination:   env.Dest.String(),
	})
	if err := s.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", s.subject, err)
	}
	return nil
}

// CallbackSender is a Sender that calls a callback function (for testing).
type CallbackSender struct {
	callback func(ctx context.Context, env *Envelope) error
}

// NewCallbackSender creates a new CallbackSender.
func NewCallbackSender(cb func(ctx context.Context, env *Envelope) error) *CallbackSender {
	return &CallbackSender{callback: cb}
}

// Send calls the callback.
func (s *CallbackSender) Send(ctx context.Context, env *Envelope) error {
	return s.callback(ctx, env)
}
