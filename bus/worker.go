package bus

import (
	"chat-gateway/contract"
	"chat-gateway/observability"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// worker holds the subscriptions of one relay worker over its shard slice.
// poll and the rebalance hooks never overlap thanks to mu; the bus-wide lock
// is not held while polling.
type worker struct {
	id     contract.WorkerID
	log    *slog.Logger
	broker Broker
	opts   Options

	mu        sync.Mutex
	shards    []int
	subs      map[int]Subscription
	committed *commitTracker
}

func newWorker(id contract.WorkerID, log *slog.Logger, broker Broker, opts Options, now time.Time) *worker {
	return &worker{
		id:        id,
		log:       log,
		broker:    broker,
		opts:      opts,
		subs:      make(map[int]Subscription),
		committed: newCommitTracker(opts.ConsumerCommit, now),
	}
}

func (w *worker) slice() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.shards)
}

func (w *worker) owns(shards []int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Equal(w.shards, shards) && len(w.subs) == len(shards)
}

// assign opens the subscriptions of a new slice. Shards that fail to open are
// retried on the next poll.
func (w *worker) assign(ctx context.Context, shards []int, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shards = slices.Clone(shards)
	w.committed.Reset(now)
	if err := w.ensureSubscriptions(ctx); err != nil {
		w.log.Warn("Subscription failed, retrying on next poll", "worker_id", w.id, "error", err)
	}
}

// ensureSubscriptions must be called with mu held.
func (w *worker) ensureSubscriptions(ctx context.Context) error {
	var errs []error
	for _, shard := range w.shards {
		if _, ok := w.subs[shard]; ok {
			continue
		}
		topic := TopicName(w.opts.TopicPattern, shard)
		sub, err := w.broker.Subscribe(ctx, topic, w.opts.Subscriber)
		if err != nil {
			errs = append(errs, fmt.Errorf("subscribe %s: %w", topic, err))
			continue
		}
		w.subs[shard] = sub
	}
	return stderrors.Join(errs...)
}

// poll fetches from every owned shard in ascending order. A failing shard is
// closed and reopened on the next poll, resuming from its committed position.
func (w *worker) poll(ctx context.Context, max int, now time.Time) ([]contract.Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	if err := w.ensureSubscriptions(ctx); err != nil {
		errs = append(errs, err)
	}

	var records []contract.Record
	for _, shard := range w.shards {
		sub, ok := w.subs[shard]
		if !ok {
			continue
		}
		batch, err := sub.Fetch(ctx, max)
		records = append(records, batch...)
		w.committed.Add(len(batch))
		if err != nil {
			errs = append(errs, fmt.Errorf("fetch shard %d: %w", shard, err))
			_ = sub.Close()
			delete(w.subs, shard)
		}
	}

	if w.committed.Due(now) {
		if err := w.commitAll(ctx); err != nil {
			errs = append(errs, err)
		} else {
			w.committed.Reset(now)
		}
	}
	return records, stderrors.Join(errs...)
}

// commitAll must be called with mu held.
func (w *worker) commitAll(ctx context.Context) error {
	var errs []error
	for shard, sub := range w.subs {
		if err := sub.Commit(ctx); err != nil {
			errs = append(errs, fmt.Errorf("commit shard %d: %w", shard, err))
		}
	}
	observability.Commits.WithLabelValues("consumer").Inc()
	return stderrors.Join(errs...)
}

// teardown performs the final commit of the current slice and closes its
// subscriptions.
func (w *worker) teardown(ctx context.Context, now time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	if w.committed.pending > 0 {
		errs = append(errs, w.commitAll(ctx))
	}
	for shard, sub := range w.subs {
		errs = append(errs, sub.Close())
		delete(w.subs, shard)
	}
	w.shards = nil
	w.committed.Reset(now)
	return stderrors.Join(errs...)
}
