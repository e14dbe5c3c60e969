package bus

import "time"

// CommitPolicy bounds the redelivery window: a position is committed once
// more than MaxRecords records are pending, or once MaxInterval has elapsed
// since the previous commit, whichever comes first.
type CommitPolicy struct {
	MaxRecords  int
	MaxInterval time.Duration
}

type commitTracker struct {
	policy  CommitPolicy
	pending int
	last    time.Time
}

func newCommitTracker(policy CommitPolicy, now time.Time) *commitTracker {
	return &commitTracker{policy: policy, last: now}
}

func (c *commitTracker) Add(n int) {
	c.pending += n
}

// Due reports whether pending records must be committed now.
// Nothing pending never triggers a commit.
func (c *commitTracker) Due(now time.Time) bool {
	if c.pending == 0 {
		return false
	}
	if c.pending > c.policy.MaxRecords {
		return true
	}
	return c.policy.MaxInterval > 0 && now.Sub(c.last) >= c.policy.MaxInterval
}

func (c *commitTracker) Reset(now time.Time) {
	c.pending = 0
	c.last = now
}
