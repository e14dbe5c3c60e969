// Package bus implements the MessageBus on top of a topic-level Broker.
// Groups are sharded over a fixed number of topics; local workers share the
// shards between them and commit their read positions in batches.
package bus

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/observability"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

type Options struct {
	TopicPattern string `validate:"required"`
	ShardCount   int    `validate:"gt=0"`
	// Subscriber names the durable position of this gateway instance on every
	// topic. Each instance needs every record, so each uses its own name.
	Subscriber     string `validate:"required"`
	PollMaxRecords int    `validate:"gt=0"`
	ConsumerCommit CommitPolicy
	ProducerCommit CommitPolicy
}

// ShardedBus is the MessageBus of a gateway instance.
//
// Workers register lazily on their first LiveConsume. Each registration or
// release redistributes the shards, under the bus-wide lock, so that every
// shard is owned by exactly one worker. Publishing does not depend on the
// assignment: a record always goes to the topic of its group's shard.
type ShardedBus struct {
	log    *slog.Logger
	broker Broker
	opts   Options
	now    func() time.Time
	closed atomic.Bool

	mu      sync.Mutex
	workers []*worker

	producerMu sync.Mutex
	producer   Producer
	produced   *commitTracker

	replayMu sync.Mutex
	replays  map[*replayCursor]struct{}
}

func NewShardedBus(ctx context.Context, log *slog.Logger, broker Broker, opts Options) (*ShardedBus, error) {
	if opts.ShardCount <= 0 {
		return nil, fmt.Errorf("shard count must be positive, got %d", opts.ShardCount)
	}
	if opts.PollMaxRecords <= 0 {
		opts.PollMaxRecords = 100
	}
	if err := broker.EnsureTopics(ctx, TopicNames(opts.TopicPattern, opts.ShardCount)); err != nil {
		return nil, fmt.Errorf("ensure topics: %w", err)
	}
	b := &ShardedBus{
		log:      log,
		broker:   broker,
		opts:     opts,
		now:      time.Now,
		producer: broker.NewProducer(),
		replays:  make(map[*replayCursor]struct{}),
	}
	b.produced = newCommitTracker(opts.ProducerCommit, b.now())
	return b, nil
}

// WithClock replaces the clock driving the commit intervals.
func (b *ShardedBus) WithClock(now func() time.Time) *ShardedBus {
	b.now = now
	b.produced.Reset(now())
	return b
}

// Publish sends payload to the shard of groupID. The producer commit follows
// the same count-or-interval policy as the consumers.
func (b *ShardedBus) Publish(ctx context.Context, groupID domain.GroupID, payload []byte) error {
	if b.closed.Load() {
		return errors.ErrBusClosed
	}
	shard, err := ShardOf(groupID, b.opts.ShardCount)
	if err != nil {
		return err
	}
	topic := TopicName(b.opts.TopicPattern, shard)

	b.producerMu.Lock()
	defer b.producerMu.Unlock()

	if err := b.producer.Send(ctx, topic, string(groupID), payload); err != nil {
		observability.PublishedRecords.WithLabelValues("error").Inc()
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	observability.PublishedRecords.WithLabelValues("ok").Inc()
	b.produced.Add(1)
	return b.commitProducerIfDue(ctx)
}

// commitProducerIfDue must be called with producerMu held.
func (b *ShardedBus) commitProducerIfDue(ctx context.Context) error {
	now := b.now()
	if !b.produced.Due(now) {
		return nil
	}
	if err := b.producer.Commit(ctx); err != nil {
		return fmt.Errorf("producer commit: %w", err)
	}
	b.produced.Reset(now)
	observability.Commits.WithLabelValues("producer").Inc()
	return nil
}

// FlushProducer commits buffered records whose interval has elapsed even when
// no further Publish arrives. The relay calls it on every tick.
func (b *ShardedBus) FlushProducer(ctx context.Context) error {
	b.producerMu.Lock()
	defer b.producerMu.Unlock()
	return b.commitProducerIfDue(ctx)
}

// LiveConsume polls the shards owned by the worker, registering it first if
// needed. Records read before a shard failed are returned with the error.
func (b *ShardedBus) LiveConsume(ctx context.Context, id contract.WorkerID) ([]contract.Record, error) {
	w, err := b.register(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := w.poll(ctx, b.opts.PollMaxRecords, b.now())
	observability.ConsumedRecords.Add(float64(len(records)))

	if flushErr := b.FlushProducer(ctx); flushErr != nil {
		b.log.Warn("Producer flush failed", "worker_id", id, "error", flushErr)
	}
	return records, err
}

func (b *ShardedBus) register(ctx context.Context, id contract.WorkerID) (*worker, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Load() {
		return nil, errors.ErrBusClosed
	}
	if w, ok := lo.Find(b.workers, func(w *worker) bool { return w.id == id }); ok {
		return w, nil
	}

	w := newWorker(id, b.log, b.broker, b.opts, b.now())
	b.workers = append(b.workers, w)
	b.log.Info("Bus worker registered", "worker_id", id, "workers", len(b.workers))
	b.rebalance(ctx)
	return w, nil
}

// Release removes a worker and hands its shards to the remaining ones.
func (b *ShardedBus) Release(ctx context.Context, id contract.WorkerID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := slices.IndexFunc(b.workers, func(w *worker) bool { return w.id == id })
	if idx < 0 {
		return nil
	}
	w := b.workers[idx]
	b.workers = slices.Delete(b.workers, idx, idx+1)
	err := w.teardown(ctx, b.now())
	b.log.Info("Bus worker released", "worker_id", id, "workers", len(b.workers))
	if !b.closed.Load() {
		b.rebalance(ctx)
	}
	return err
}

// rebalance must be called with mu held. Workers losing shards commit and
// close their subscriptions before any worker subscribes to its new slice,
// so a shard is resumed from the position its previous owner committed.
func (b *ShardedBus) rebalance(ctx context.Context) {
	slicesByWorker := Assign(b.opts.ShardCount, len(b.workers))
	now := b.now()

	changed := make([]bool, len(b.workers))
	for i, w := range b.workers {
		if !w.owns(slicesByWorker[i]) {
			changed[i] = true
			if err := w.teardown(ctx, now); err != nil {
				b.log.Warn("Final commit before rebalance failed", "worker_id", w.id, "error", err)
			}
		}
	}
	for i, w := range b.workers {
		if changed[i] {
			w.assign(ctx, slicesByWorker[i], now)
		}
	}
	observability.Rebalances.Inc()
}

// Assignment returns a copy of the current shard slice of every registered worker.
func (b *ShardedBus) Assignment() map[contract.WorkerID][]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo.SliceToMap(b.workers, func(w *worker) (contract.WorkerID, []int) {
		return w.id, w.slice()
	})
}

// ReplayConsume opens a cursor on the shard of groupID. Cursors are never part
// of the worker assignment and are released at exhaustion or on error.
func (b *ShardedBus) ReplayConsume(ctx context.Context, groupID domain.GroupID, user string, since time.Time) (contract.ReplayCursor, error) {
	if b.closed.Load() {
		return nil, errors.ErrBusClosed
	}
	shard, err := ShardOf(groupID, b.opts.ShardCount)
	if err != nil {
		return nil, err
	}
	topic := TopicName(b.opts.TopicPattern, shard)
	sub, err := b.broker.Seek(ctx, topic, since)
	if err != nil {
		return nil, fmt.Errorf("seek %s at %s: %w", topic, since.Format(time.RFC3339), err)
	}

	c := &replayCursor{
		bus:     b,
		sub:     sub,
		max:     b.opts.PollMaxRecords,
		groupID: groupID,
		user:    user,
	}
	b.replayMu.Lock()
	b.replays[c] = struct{}{}
	b.replayMu.Unlock()
	return c, nil
}

func (b *ShardedBus) forget(c *replayCursor) {
	b.replayMu.Lock()
	delete(b.replays, c)
	b.replayMu.Unlock()
}

// Close commits every worker and the producer, then releases all cursors.
// The broker itself belongs to the caller.
func (b *ShardedBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	ctx := context.Background()
	var errs []error

	b.mu.Lock()
	for _, w := range b.workers {
		errs = append(errs, w.teardown(ctx, b.now()))
	}
	b.workers = nil
	b.mu.Unlock()

	b.producerMu.Lock()
	if b.produced.pending > 0 {
		errs = append(errs, b.producer.Commit(ctx))
	}
	errs = append(errs, b.producer.Close())
	b.producerMu.Unlock()

	b.replayMu.Lock()
	cursors := lo.Keys(b.replays)
	b.replayMu.Unlock()
	for _, c := range cursors {
		errs = append(errs, c.Close())
	}
	return stderrors.Join(errs...)
}
