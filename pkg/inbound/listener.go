// Package inbound subscribes to relay chain notifications and chain head updates.
package inbound

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/coretime-allocator/pkg/codec"
	"github.com/morezero/coretime-allocator/pkg/commsutil"
)

const logPrefix = "inbound:listener"

// Notifier stores decoded relay chain pushes.
type Notifier interface {
	Notify(ctx context.Context, n codec.Notification) error
}

// HeadAdvancer moves the local clock forward.
type HeadAdvancer interface {
	Advance(n codec.BlockNumber) bool
}

// Listener owns the inbound subscriptions.
type Listener struct {
	nc            *comms.Conn
	notifier      Notifier
	clock         HeadAdvancer
	notifySubject string
	headSubject   string
	subs          []*comms.Subscription
}

// NewListenerParams holds parameters for creating a Listener. Empty subjects use the
// commsutil defaults; a nil Clock disables the head subscription.
type NewListenerParams struct {
	Conn          *comms.Conn
	Notifier      Notifier
	Clock         HeadAdvancer
	NotifySubject string
	HeadSubject   string
}

// NewListener creates a new Listener. Call Start to subscribe.
func NewListener(params NewListenerParams) *Listener {
	notifySubject := params.NotifySubject
	if notifySubject == "" {
		notifySubject = commsutil.SubjectProviderNotify
	}
	headSubject := params.HeadSubject
	if headSubject == "" {
		headSubject = commsutil.SubjectChainHead
	}
	return &Listener{
		nc:            params.Conn,
		notifier:      params.Notifier,
		clock:         params.Clock,
		notifySubject: notifySubject,
		headSubject:   headSubject,
	}
}

// Start subscribes. ctx bounds the inbox writes made by the handlers.
func (l *Listener) Start(ctx context.Context) error {
	sub, err := l.nc.Subscribe(l.notifySubject, func(msg *comms.Msg) {
		l.handleNotification(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, l.notifySubject, err)
	}
	l.subs = append(l.subs, sub)
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, l.notifySubject))

	if l.clock != nil {
		sub, err := l.nc.Subscribe(l.headSubject, func(msg *comms.Msg) {
			l.handleHead(msg.Data)
		})
		if err != nil {
			l.Stop()
			return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, l.headSubject, err)
		}
		l.subs = append(l.subs, sub)
		slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, l.headSubject))
	}
	return nil
}

// Stop removes all subscriptions.
func (l *Listener) Stop() {
	for _, sub := range l.subs {
		sub.Unsubscribe()
	}
	l.subs = nil
}

func (l *Listener) handleNotification(ctx context.Context, data []byte) {
	n, err := codec.DecodeNotification(data)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - dropping malformed notification (%d bytes): %v", logPrefix, len(data), err))
		return
	}
	if err := l.notifier.Notify(ctx, n); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to store notification: %v", logPrefix, err))
	}
}

func (l *Listener) handleHead(data []byte) {
	n, err := codec.DecodeBlockNumber(data)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - dropping malformed chain head: %v", logPrefix, err))
		return
	}
	if !l.clock.Advance(n) {
		slog.Debug(fmt.Sprintf("%s - ignoring stale head %d", logPrefix, n))
	}
}
