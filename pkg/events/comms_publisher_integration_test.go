package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/coretime-allocator/pkg/commsutil"
)

const commsPublisherTestPrefix = "events:comms_publisher_integration_test"

// startTestServer starts an in-process NATS server for testing.
func startTestServer(t *testing.T, port int) (*comms.Conn, func()) {
	t.Helper()

	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", commsPublisherTestPrefix, err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - server failed to start", commsPublisherTestPrefix)
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("%s - failed to connect: %v", commsPublisherTestPrefix, err)
	}

	cleanup := func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	}

	return nc, cleanup
}

func subscribeOutcomes(t *testing.T, nc *comms.Conn, subject string) (<-chan *DispatchOutcomeEvent, func()) {
	t.Helper()
	received := make(chan *DispatchOutcomeEvent, 4)
	sub, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		var event DispatchOutcomeEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			t.Errorf("%s - failed to unmarshal: %v", commsPublisherTestPrefix, err)
			return
		}
		received <- &event
	})
	if err != nil {
		t.Fatalf("%s - failed to subscribe: %v", commsPublisherTestPrefix, err)
	}
	return received, func() { sub.Unsubscribe() }
}

func TestCommsPublisher_PublishOutcome_BothSubjects(t *testing.T) {
	nc, cleanup := startTestServer(t, 14230)
	defer cleanup()

	publisher := NewCommsPublisher(nc, nil)

	perCall, unsub1 := subscribeOutcomes(t, nc, "coretime.allocator.outcome.assign_core.4")
	defer unsub1()
	base, unsub2 := subscribeOutcomes(t, nc, "coretime.allocator.outcome")
	defer unsub2()
	failed, unsub3 := subscribeOutcomes(t, nc, "coretime.allocator.outcome.failed")
	defer unsub3()

	event := &DispatchOutcomeEvent{
		CorrelationID: "c-42",
		Call:          "assign_core",
		CallIndex:     4,
		Destination:   "parent",
		Bytes:         24,
		Status:        StatusSent,
		Timestamp:     "2025-01-01T00:00:00Z",
	}

	if err := publisher.PublishOutcome(context.Background(), event); err != nil {
		t.Fatalf("%s - PublishOutcome failed: %v", commsPublisherTestPrefix, err)
	}
	nc.Flush()

	for _, ch := range []struct {
		name string
		ch   <-chan *DispatchOutcomeEvent
	}{
		{"per-call", perCall},
		{"base", base},
	} {
		select {
		case got := <-ch.ch:
			if got.CorrelationID != "c-42" || got.CallIndex != 4 || got.Bytes != 24 {
				t.Errorf("%s - %s event = %+v", commsPublisherTestPrefix, ch.name, got)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("%s - timeout waiting for %s event", commsPublisherTestPrefix, ch.name)
		}
	}
	select {
	case got := <-failed:
		t.Errorf("%s - sent outcome published to failed subject: %+v", commsPublisherTestPrefix, got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCommsPublisher_CustomOutcomeSubject(t *testing.T) {
	nc, cleanup := startTestServer(t, 14231)
	defer cleanup()

	publisher := NewCommsPublisher(nc, &CommsPublisherOpts{OutcomeSubject: "ops.outcomes"})

	received, unsub := subscribeOutcomes(t, nc, "ops.outcomes.credit_account.*")
	defer unsub()

	event := &DispatchOutcomeEvent{
		Call:      "credit_account",
		CallIndex: 5,
		Status:    StatusFailed,
		Error:     "nats: connection closed",
	}
	if err := publisher.PublishOutcome(context.Background(), event); err != nil {
		t.Fatalf("%s - PublishOutcome failed: %v", commsPublisherTestPrefix, err)
	}
	nc.Flush()

	select {
	case got := <-received:
		if got.Status != StatusFailed || got.Error != "nats: connection closed" {
			t.Errorf("%s - event = %+v", commsPublisherTestPrefix, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - timeout waiting for custom subject event", commsPublisherTestPrefix)
	}
}

func TestNewCommsPublisher_Defaults(t *testing.T) {
	nc, cleanup := startTestServer(t, 14232)
	defer cleanup()

	for _, opts := range []*CommsPublisherOpts{nil, {OutcomeSubject: ""}} {
		publisher := NewCommsPublisher(nc, opts)
		if publisher.outcomeSubject != "coretime.allocator.outcome" {
			t.Errorf("%s - outcomeSubject = %q, want default", commsPublisherTestPrefix, publisher.outcomeSubject)
		}
	}
}

func TestCommsPublisher_ClosedConnection(t *testing.T) {
	nc, cleanup := startTestServer(t, 14233)
	defer cleanup()

	publisher := NewCommsPublisher(nc, nil)
	nc.Close()

	err := publisher.PublishOutcome(context.Background(), &DispatchOutcomeEvent{Call: "request_core_count"})
	if err == nil {
		t.Errorf("%s - expected error on closed connection", commsPublisherTestPrefix)
	}
}

func TestCommsPublisher_FailedSubjectAndHeaders(t *testing.T) {
	nc, cleanup := startTestServer(t, 14234)
	defer cleanup()

	publisher := NewCommsPublisher(nc, nil)

	msgs := make(chan *comms.Msg, 4)
	sub, err := nc.ChanSubscribe("coretime.allocator.outcome.failed", msgs)
	if err != nil {
		t.Fatalf("%s - failed to subscribe: %v", commsPublisherTestPrefix, err)
	}
	defer sub.Unsubscribe()

	event := &DispatchOutcomeEvent{
		CorrelationID: "c-7",
		Call:          "request_revenue_info_at",
		CallIndex:     3,
		Status:        StatusFailed,
		Error:         "nats: connection closed",
	}
	if err := publisher.PublishOutcome(context.Background(), event); err != nil {
		t.Fatalf("%s - PublishOutcome failed: %v", commsPublisherTestPrefix, err)
	}
	nc.Flush()

	select {
	case msg := <-msgs:
		if got := msg.Header.Get(commsutil.HeaderCorrelationID); got != "c-7" {
			t.Errorf("%s - correlation header = %q, want c-7", commsPublisherTestPrefix, got)
		}
		if got := msg.Header.Get(commsutil.HeaderCall); got != "request_revenue_info_at" {
			t.Errorf("%s - call header = %q", commsPublisherTestPrefix, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - timeout waiting for failed outcome", commsPublisherTestPrefix)
	}
}
