// Package server orchestrates all components: COMMS client, storage, allocator, dispatcher, HTTP health.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/coretime-allocator/internal/config"
	"github.com/morezero/coretime-allocator/internal/metrics"
	"github.com/morezero/coretime-allocator/pkg/allocator"
	"github.com/morezero/coretime-allocator/pkg/codec"
	"github.com/morezero/coretime-allocator/pkg/commsutil"
	"github.com/morezero/coretime-allocator/pkg/credit"
	"github.com/morezero/coretime-allocator/pkg/dispatcher"
	"github.com/morezero/coretime-allocator/pkg/events"
	"github.com/morezero/coretime-allocator/pkg/inbound"
	"github.com/morezero/coretime-allocator/pkg/inbox"
	"github.com/morezero/coretime-allocator/pkg/messenger"
	"github.com/morezero/coretime-allocator/pkg/schema"
)

const logPrefix = "server:server"

// Server is the coretime-allocator orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	storage    *storage
	metrics    *metrics.Metrics
	inbox      *inbox.Inbox
	clock      *allocator.HeadClock
	alloc      *allocator.Allocator
	httpServer *http.Server
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel)
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting coretime-allocator", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg, metrics: metrics.NewMetrics()}

	// Step 1: Refuse to start on a call table that disagrees with the shared schema
	brokerSchema, err := schema.LoadSchema(cfg.SchemaFile)
	if err != nil {
		return fmt.Errorf("%s - failed to load broker schema: %w", logPrefix, err)
	}
	if err := schema.Check(brokerSchema); err != nil {
		return fmt.Errorf("%s - broker schema check failed: %w", logPrefix, err)
	}

	// Step 2: Connect to COMMS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	s.nc = nc

	// Step 3: Storage backends
	st, err := openStorage(ctx, cfg)
	if err != nil {
		nc.Close()
		return err
	}
	s.storage = st

	// Step 4: Allocator
	s.buildAllocator()

	// Step 5: Inbound notifications and chain head
	listener := inbound.NewListener(inbound.NewListenerParams{
		Conn:          nc,
		Notifier:      s.inbox,
		Clock:         s.clock,
		NotifySubject: cfg.NotifySubject,
		HeadSubject:   cfg.HeadSubject,
	})
	if err := listener.Start(ctx); err != nil {
		st.Close()
		nc.Close()
		return fmt.Errorf("%s - failed to start inbound listener: %w", logPrefix, err)
	}

	// Step 6: Create dispatcher and subscribe
	disp := dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{Allocator: s.alloc, Metrics: s.metrics})
	sub, err := nc.Subscribe(cfg.AllocatorSubject, newRequestHandler(ctx, disp, cfg.RequestTimeout))
	if err != nil {
		listener.Stop()
		st.Close()
		nc.Close()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, cfg.AllocatorSubject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, cfg.AllocatorSubject))

	// Step 7: Start HTTP health and metrics server
	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = fmt.Sprintf(":%d", cfg.HTTPPort)
	}
	s.httpServer = &http.Server{Addr: httpAddr, Handler: s.routes()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Coretime allocator is ready (slots=%s ledger=%s test_hooks=%v)",
		logPrefix, cfg.SlotStore, cfg.Ledger, cfg.EnableTestHooks))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	sub.Unsubscribe()
	listener.Stop()
	s.httpServer.Shutdown(ctx)
	nc.Drain()
	st.Close()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// SetupLogging installs the default text logger at the given level.
func SetupLogging(level string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)})))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s *Server) buildAllocator() {
	cfg := s.cfg

	msgr := messenger.NewMessenger(messenger.NewMessengerParams{
		Sender:    messenger.NewNatsSender(s.nc, cfg.OutboundSubject),
		Publisher: events.NewCommsPublisher(s.nc, &events.CommsPublisherOpts{OutcomeSubject: cfg.OutcomeSubject}),
		Metrics:   s.metrics,
	})
	s.inbox = inbox.NewInbox(inbox.NewInboxParams{
		Store:           s.storage.slots,
		EnableTestHooks: cfg.EnableTestHooks,
		Metrics:         s.metrics,
	})
	redirector := credit.NewRedirector(credit.NewRedirectorParams{
		Depositor: s.storage.ledger,
		Metrics:   s.metrics,
	})

	checks := s.storage.checks()
	checks["comms"] = commsutil.HealthCheck(s.nc)

	s.clock = allocator.NewHeadClock(codec.BlockNumber(cfg.StartBlock))
	broker := brokerConfig(cfg)
	s.alloc = allocator.NewAllocator(allocator.NewAllocatorParams{
		Messenger:  msgr,
		Inbox:      s.inbox,
		Redirector: redirector,
		Clock:      s.clock,
		Config:     &broker,
		Checks:     checks,
	})
}

func brokerConfig(cfg *config.Config) allocator.BrokerConfig {
	broker := allocator.DefaultBrokerConfig()
	broker.TimeslicePeriod = cfg.TimeslicePeriod
	broker.MaxLeasedCores = cfg.MaxLeasedCores
	broker.MaxReservedCores = cfg.MaxReservedCores
	broker.PriceAdapter = cfg.PriceAdapter
	broker.AdminOrigin = cfg.AdminOrigin
	return broker
}
