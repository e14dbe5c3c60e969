package bus

import (
	"chat-gateway/contract"
	"context"
	"time"
)

// Broker is the topic-level technology behind the ShardedBus. One shard maps
// to one topic; the sharding, rebalance and commit rules live in the bus so
// every backend behaves the same way.
type Broker interface {
	// EnsureTopics provisions the topics when the backend needs it.
	EnsureTopics(ctx context.Context, topics []string) error
	NewProducer() Producer
	// Subscribe opens a durable subscription resuming at the committed
	// position of subscriber, or at the end of the topic when there is none.
	Subscribe(ctx context.Context, topic, subscriber string) (Subscription, error)
	// Seek opens a throw-away subscription at the first record whose
	// timestamp is at or after since.
	Seek(ctx context.Context, topic string, since time.Time) (Subscription, error)
}

// Producer buffers records until Commit makes them visible to consumers.
type Producer interface {
	Send(ctx context.Context, topic, key string, value []byte) error
	Commit(ctx context.Context) error
	Close() error
}

// Subscription reads one topic in order.
type Subscription interface {
	// Fetch returns at most max records without waiting for new ones.
	Fetch(ctx context.Context, max int) ([]contract.Record, error)
	// Commit persists the position following the last fetched record.
	Commit(ctx context.Context) error
	Close() error
}
