package workers

import (
	"chat-gateway/codec"
	"chat-gateway/contract"
	"chat-gateway/observability"
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// RelayWorker bridges the bus back into local fan-out. Every tick it drains
// the shards of each local bus worker in parallel and broadcasts the records
// that originated on another gateway instance.
type RelayWorker struct {
	log      *slog.Logger
	bus      contract.MessageBus
	registry contract.IRegistry
	serverID int64
	workers  []contract.WorkerID
	interval time.Duration
}

func NewRelayWorker(
	log *slog.Logger,
	bus contract.MessageBus,
	registry contract.IRegistry,
	serverID int64,
	workerCount int,
	interval time.Duration,
) *RelayWorker {
	workers := make([]contract.WorkerID, workerCount)
	for i := range workers {
		workers[i] = contract.WorkerID(i + 1)
	}
	return &RelayWorker{
		log:      log,
		bus:      bus,
		registry: registry,
		serverID: serverID,
		workers:  workers,
		interval: interval,
	}
}

// Run ticks until ctx is done, then releases the bus workers so their shards
// are committed.
func (w *RelayWorker) Run(ctx context.Context) error {
	w.log.Info("Starting relay worker", "workers", len(w.workers), "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.release()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick performs one round. Errors never stop the loop: a failing worker is
// logged and polled again on the next tick.
func (w *RelayWorker) Tick(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range w.workers {
		g.Go(func() error {
			records, err := w.bus.LiveConsume(gctx, id)
			if err != nil {
				observability.RelayTickErrors.Inc()
				w.log.Warn("Live consume failed", "worker_id", id, "error", err)
			}
			w.dispatch(records)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *RelayWorker) dispatch(records []contract.Record) {
	for _, r := range records {
		m, err := codec.DecodeMessage(r.Value)
		if err != nil {
			observability.RelayedRecords.WithLabelValues("undecodable").Inc()
			w.log.Warn("Skipping undecodable record", "topic", r.Topic, "offset", r.Offset, "error", err)
			continue
		}
		// Already delivered locally when it was published.
		if m.ServerID == w.serverID {
			observability.RelayedRecords.WithLabelValues("self").Inc()
			continue
		}
		frame, err := codec.EncodeFrame(m)
		if err != nil {
			w.log.Warn("Failed to encode frame", "group_id", m.GroupID, "error", err)
			continue
		}
		w.registry.Broadcast(m.GroupID, frame, nil)
		observability.RelayedRecords.WithLabelValues("broadcast").Inc()
	}
}

func (w *RelayWorker) release() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, id := range w.workers {
		if err := w.bus.Release(ctx, id); err != nil {
			w.log.Warn("Failed to release bus worker", "worker_id", id, "error", err)
		}
	}
}
