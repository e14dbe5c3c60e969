package workers

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/observability"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LeaseWorker keeps the registration of this instance alive in the presence
// store. An instance killed without unregistering frees its id once the
// lease runs out.
type LeaseWorker struct {
	log      *slog.Logger
	presence contract.PresenceStore
	server   domain.Server
	interval time.Duration
}

// NewLeaseWorker renews three times per lease so one missed tick is harmless.
func NewLeaseWorker(log *slog.Logger, presence contract.PresenceStore, server domain.Server, lease time.Duration) *LeaseWorker {
	return &LeaseWorker{log: log, presence: presence, server: server, interval: lease / 3}
}

func (w *LeaseWorker) Run(ctx context.Context) error {
	w.log.Info("Starting lease worker", "server_id", w.server.ID, "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Renew(ctx); err != nil {
				return err
			}
		}
	}
}

// Renew extends the lease once. A store error is retried on the next tick.
// A lease that expired is taken again; ErrServerExists means another
// instance took the id meanwhile.
func (w *LeaseWorker) Renew(ctx context.Context) error {
	renewed, err := w.presence.RenewServer(ctx, w.server)
	if err != nil {
		observability.LeaseRenewals.WithLabelValues("error").Inc()
		w.log.Warn("Server lease renewal failed", "server_id", w.server.ID, "error", err)
		return nil
	}
	if renewed {
		observability.LeaseRenewals.WithLabelValues("ok").Inc()
		return nil
	}
	// Stopping: the orchestrator unregisters right after cancelling us.
	if err := ctx.Err(); err != nil {
		return err
	}

	registered, err := w.presence.RegisterServer(ctx, w.server)
	if err != nil {
		observability.LeaseRenewals.WithLabelValues("error").Inc()
		w.log.Warn("Server lease renewal failed", "server_id", w.server.ID, "error", err)
		return nil
	}
	if !registered {
		observability.LeaseRenewals.WithLabelValues("lost").Inc()
		return fmt.Errorf("%w: %d", errors.ErrServerExists, w.server.ID)
	}
	observability.LeaseRenewals.WithLabelValues("reacquired").Inc()
	w.log.Warn("Server lease had expired, registered again", "server_id", w.server.ID)
	return nil
}
