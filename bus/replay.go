package bus

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"context"
	"sync"
)

// replayCursor walks the shard of one group from a point in time. It reads
// every record of the shard; filtering on the group is left to the caller.
type replayCursor struct {
	bus     *ShardedBus
	sub     Subscription
	max     int
	groupID domain.GroupID
	user    string

	mu     sync.Mutex
	closed bool
}

// Poll returns the next batch. An empty batch means the backlog is exhausted
// and releases the cursor; so does an error.
func (c *replayCursor) Poll(ctx context.Context) ([]contract.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.ErrCursorClosed
	}

	records, err := c.sub.Fetch(ctx, c.max)
	if err != nil {
		c.release()
		return nil, err
	}
	if len(records) == 0 {
		c.release()
		return nil, nil
	}
	return records, nil
}

func (c *replayCursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.release()
}

// release must be called with mu held.
func (c *replayCursor) release() error {
	c.closed = true
	c.bus.forget(c)
	return c.sub.Close()
}
