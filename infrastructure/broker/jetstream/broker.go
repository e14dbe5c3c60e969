// Package jetstream is the clustered Broker: one JetStream stream holds every
// topic as a subject, and each gateway instance keeps a durable pull consumer
// per topic.
package jetstream

import (
	"chat-gateway/bus"
	"chat-gateway/contract"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const keyHeader = "Chat-Key"

type Options struct {
	Stream string
	// MaxAge bounds how far back a login replay can reach.
	MaxAge time.Duration
	// FetchWait is how long an empty fetch waits for the server.
	FetchWait time.Duration
	Replicas  int
}

type Broker struct {
	js   nats.JetStreamContext
	log  *slog.Logger
	opts Options
}

func NewBroker(nc *nats.Conn, log *slog.Logger, opts Options) (*Broker, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if opts.FetchWait <= 0 {
		opts.FetchWait = 10 * time.Millisecond
	}
	if opts.Replicas <= 0 {
		opts.Replicas = 1
	}
	return &Broker{js: js, log: log, opts: opts}, nil
}

// EnsureTopics creates the stream, or widens its subjects when the shard count grew.
func (b *Broker) EnsureTopics(_ context.Context, topics []string) error {
	info, err := b.js.StreamInfo(b.opts.Stream)
	switch {
	case stderrors.Is(err, nats.ErrStreamNotFound):
		_, err = b.js.AddStream(&nats.StreamConfig{
			Name:      b.opts.Stream,
			Subjects:  topics,
			Storage:   nats.FileStorage,
			Retention: nats.LimitsPolicy,
			MaxAge:    b.opts.MaxAge,
			Replicas:  b.opts.Replicas,
		})
		if err != nil {
			return fmt.Errorf("add stream %s: %w", b.opts.Stream, err)
		}
		b.log.Info("Stream created", "stream", b.opts.Stream, "subjects", len(topics))
		return nil
	case err != nil:
		return fmt.Errorf("stream info %s: %w", b.opts.Stream, err)
	}

	missing := false
	for _, t := range topics {
		if !slices.Contains(info.Config.Subjects, t) {
			info.Config.Subjects = append(info.Config.Subjects, t)
			missing = true
		}
	}
	if !missing {
		return nil
	}
	if _, err := b.js.UpdateStream(&info.Config); err != nil {
		return fmt.Errorf("update stream %s: %w", b.opts.Stream, err)
	}
	b.log.Info("Stream subjects extended", "stream", b.opts.Stream, "subjects", len(info.Config.Subjects))
	return nil
}

func (b *Broker) NewProducer() bus.Producer {
	return &producer{js: b.js}
}

func durableName(topic, subscriber string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_").Replace(subscriber + "_" + topic)
}

// Subscribe binds to the durable consumer of subscriber on topic, creating it
// positioned after the last stored message when it does not exist yet.
func (b *Broker) Subscribe(_ context.Context, topic, subscriber string) (bus.Subscription, error) {
	name := durableName(topic, subscriber)
	_, err := b.js.ConsumerInfo(b.opts.Stream, name)
	if stderrors.Is(err, nats.ErrConsumerNotFound) {
		_, err = b.js.AddConsumer(b.opts.Stream, &nats.ConsumerConfig{
			Durable:       name,
			AckPolicy:     nats.AckAllPolicy,
			DeliverPolicy: nats.DeliverNewPolicy,
			FilterSubject: topic,
			MaxAckPending: -1,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("consumer %s: %w", name, err)
	}
	sub, err := b.js.PullSubscribe(topic, name, nats.Bind(b.opts.Stream, name))
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", name, err)
	}
	return &subscription{sub: sub, topic: topic, wait: b.opts.FetchWait, durable: true}, nil
}

// Seek opens an ephemeral consumer starting at since. Unsubscribing deletes it.
func (b *Broker) Seek(_ context.Context, topic string, since time.Time) (bus.Subscription, error) {
	sub, err := b.js.PullSubscribe(topic, "",
		nats.BindStream(b.opts.Stream),
		nats.StartTime(since),
		nats.AckNone(),
	)
	if err != nil {
		return nil, fmt.Errorf("seek %s: %w", topic, err)
	}
	return &subscription{sub: sub, topic: topic, wait: b.opts.FetchWait}, nil
}

type producer struct {
	js      nats.JetStreamContext
	futures []nats.PubAckFuture
}

func (p *producer) Send(_ context.Context, topic, key string, value []byte) error {
	msg := nats.NewMsg(topic)
	msg.Header.Set(keyHeader, key)
	msg.Data = value
	future, err := p.js.PublishMsgAsync(msg)
	if err != nil {
		return err
	}
	p.futures = append(p.futures, future)
	return nil
}

// Commit waits until the server acknowledged every record sent so far.
func (p *producer) Commit(ctx context.Context) error {
	if len(p.futures) == 0 {
		return nil
	}
	select {
	case <-p.js.PublishAsyncComplete():
	case <-ctx.Done():
		return ctx.Err()
	}
	var errs []error
	for _, f := range p.futures {
		select {
		case err := <-f.Err():
			errs = append(errs, err)
		default:
		}
	}
	p.futures = nil
	return stderrors.Join(errs...)
}

func (p *producer) Close() error {
	return p.Commit(context.Background())
}

type subscription struct {
	sub     *nats.Subscription
	topic   string
	wait    time.Duration
	durable bool
	// pending holds the messages fetched since the last commit.
	pending []*nats.Msg
}

// Fetch treats a server timeout as an empty batch.
func (s *subscription) Fetch(_ context.Context, max int) ([]contract.Record, error) {
	msgs, err := s.sub.Fetch(max, nats.MaxWait(s.wait))
	if stderrors.Is(err, nats.ErrTimeout) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	records := make([]contract.Record, 0, len(msgs))
	for _, m := range msgs {
		meta, err := m.Metadata()
		if err != nil {
			return records, fmt.Errorf("metadata on %s: %w", s.topic, err)
		}
		records = append(records, contract.Record{
			Topic:     s.topic,
			Offset:    meta.Sequence.Stream,
			Key:       m.Header.Get(keyHeader),
			Value:     m.Data,
			Timestamp: meta.Timestamp,
		})
		if s.durable {
			s.pending = append(s.pending, m)
		}
	}
	return records, nil
}

// Commit acknowledges every message up to the last fetched one.
func (s *subscription) Commit(_ context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.pending[len(s.pending)-1].AckSync(); err != nil {
		return err
	}
	s.pending = nil
	return nil
}

// Close hands uncommitted messages back to the durable consumer so the next
// subscriber gets them without waiting for the ack timeout.
func (s *subscription) Close() error {
	for _, m := range s.pending {
		_ = m.Nak()
	}
	s.pending = nil
	return s.sub.Unsubscribe()
}
