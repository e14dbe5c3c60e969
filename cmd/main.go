package main

import (
	"chat-gateway/bus"
	"chat-gateway/contract"
	"chat-gateway/errors"
	"chat-gateway/infrastructure/broker/badgerlog"
	"chat-gateway/infrastructure/broker/jetstream"
	"chat-gateway/infrastructure/gateway"
	"chat-gateway/infrastructure/health"
	"chat-gateway/infrastructure/storage"
	"chat-gateway/internal"
	"chat-gateway/runtime"
	"chat-gateway/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component, serves until a signal arrives and reports the
// first fatal error. Deferred cleanups run before main exits.
func run() error {
	// 1. Config and logger
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Backends: presence store and message log, local or clustered
	broker, presence, closeBackends, err := newBackends(config, log)
	if err != nil {
		return err
	}
	defer closeBackends()

	// 4. Message bus
	messageBus, err := bus.NewShardedBus(ctx, log, broker, config.BusOptions())
	if err != nil {
		return fmt.Errorf("message bus failed to start: %w", err)
	}
	defer func() {
		if err := messageBus.Close(); err != nil {
			log.Warn("Message bus closed with errors", "error", err)
		}
	}()

	// 5. Supervision & Orchestration
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(log, sup, registry, presence, messageBus, config.OrchestratorConfig())

	// 6. Edges
	gw := gateway.NewServer(log, orchestrator, gateway.Config{
		Host:                 config.Host,
		Port:                 config.Port,
		ConnectionBufferSize: config.ConnectionBufferSize,
		WriteTimeout:         config.WriteTimeout,
		AccessTokenTTL:       config.AccessTokenTTL,
	})
	healthServer := health.NewServer(log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orchestrator.Start(gctx) })
	g.Go(func() error { return gw.Run(gctx) })
	g.Go(func() error {
		return healthServer.Run(gctx, fmt.Sprintf("%s:%d", config.Host, config.HealthPort))
	})
	healthServer.SetServing(true)
	log.Info("Gateway started", "server_id", config.ServerID, "broker", config.Broker, "shards", config.ShardCount)

	// 7. Block until a signal or the first failure
	err = g.Wait()
	healthServer.SetServing(false)

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	orchestrator.Stop(shutdownCtx)
	if err != nil {
		return err
	}
	log.Info("Program stopped cleanly")
	return nil
}

// newBackends opens the presence store and the broker selected by BROKER.
// Badger keeps both on this host; JetStream shares them across instances
// through one NATS connection.
func newBackends(config internal.Config, log *slog.Logger) (bus.Broker, contract.PresenceStore, func(), error) {
	switch config.Broker {
	case internal.BrokerBadger:
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		presence := storage.NewPresenceRepository(db, log).WithServerLease(config.ServerLease)
		broker := badgerlog.NewBroker(db, log, config.BrokerRetention)
		return broker, presence, func() {
			_ = broker.Close()
			_ = presence.Close()
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}, nil
	case internal.BrokerJetStream:
		nc, err := nats.Connect(config.NatsURL, nats.Name(fmt.Sprintf("chat-gateway-%d", config.ServerID)))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("nats connection failed: %w", err)
		}
		presence, err := storage.NewKVPresenceRepository(nc, log, storage.KVOptions{
			Prefix:      config.KVPrefix,
			ServerLease: config.ServerLease,
			TokenMaxAge: config.AccessTokenTTL,
		})
		if err != nil {
			nc.Close()
			return nil, nil, nil, err
		}
		broker, err := jetstream.NewBroker(nc, log, jetstream.Options{
			Stream: config.Stream,
			MaxAge: config.BrokerRetention,
		})
		if err != nil {
			nc.Close()
			return nil, nil, nil, err
		}
		return broker, presence, func() {
			log.Info("Draining NATS connection...")
			_ = nc.Drain()
		}, nil
	default:
		return nil, nil, nil, fmt.Errorf("%w: %q", errors.ErrUnknownBroker, config.Broker)
	}
}
