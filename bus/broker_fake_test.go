package bus

import (
	"chat-gateway/contract"
	"context"
	"fmt"
	"sync"
	"time"
)

// memBroker is an in-memory Broker keeping every topic as a slice.
type memBroker struct {
	mu        sync.Mutex
	now       func() time.Time
	topics    map[string][]contract.Record
	offsets   map[string]uint64
	commits   int
	fetchErr  error
	openSubs  int
	subscribe int
}

func newMemBroker() *memBroker {
	return &memBroker{
		now:     time.Now,
		topics:  make(map[string][]contract.Record),
		offsets: make(map[string]uint64),
	}
}

func (m *memBroker) EnsureTopics(_ context.Context, topics []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range topics {
		if _, ok := m.topics[t]; !ok {
			m.topics[t] = nil
		}
	}
	return nil
}

func (m *memBroker) NewProducer() Producer {
	return &memProducer{broker: m}
}

func (m *memBroker) Subscribe(_ context.Context, topic, subscriber string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := topic + "/" + subscriber
	next, ok := m.offsets[key]
	if !ok {
		next = uint64(len(m.topics[topic]))
	}
	m.openSubs++
	m.subscribe++
	return &memSubscription{broker: m, topic: topic, key: key, next: next}, nil
}

func (m *memBroker) Seek(_ context.Context, topic string, since time.Time) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := uint64(len(m.topics[topic]))
	for i, r := range m.topics[topic] {
		if !r.Timestamp.Before(since) {
			next = uint64(i)
			break
		}
	}
	m.openSubs++
	return &memSubscription{broker: m, topic: topic, next: next}, nil
}

func (m *memBroker) committedOffset(topic, subscriber string) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	off, ok := m.offsets[topic+"/"+subscriber]
	return off, ok
}

func (m *memBroker) producerCommits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

func (m *memBroker) open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openSubs
}

type memProducer struct {
	broker  *memBroker
	pending []contract.Record
}

func (p *memProducer) Send(_ context.Context, topic, key string, value []byte) error {
	p.pending = append(p.pending, contract.Record{Topic: topic, Key: key, Value: value})
	return nil
}

func (p *memProducer) Commit(_ context.Context) error {
	p.broker.mu.Lock()
	defer p.broker.mu.Unlock()
	for _, r := range p.pending {
		if _, ok := p.broker.topics[r.Topic]; !ok {
			return fmt.Errorf("unknown topic %s", r.Topic)
		}
		r.Offset = uint64(len(p.broker.topics[r.Topic]))
		r.Timestamp = p.broker.now()
		p.broker.topics[r.Topic] = append(p.broker.topics[r.Topic], r)
	}
	p.pending = nil
	p.broker.commits++
	return nil
}

func (p *memProducer) Close() error { return nil }

type memSubscription struct {
	broker *memBroker
	topic  string
	key    string
	next   uint64
	closed bool
}

func (s *memSubscription) Fetch(_ context.Context, max int) ([]contract.Record, error) {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if s.broker.fetchErr != nil {
		return nil, s.broker.fetchErr
	}
	log := s.broker.topics[s.topic]
	var out []contract.Record
	for s.next < uint64(len(log)) && len(out) < max {
		out = append(out, log[s.next])
		s.next++
	}
	return out, nil
}

func (s *memSubscription) Commit(_ context.Context) error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if s.key != "" {
		s.broker.offsets[s.key] = s.next
	}
	return nil
}

func (s *memSubscription) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.broker.openSubs--
	}
	return nil
}
