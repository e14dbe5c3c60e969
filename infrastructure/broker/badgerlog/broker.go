// Package badgerlog is a single-node Broker keeping every topic as an
// append-only log inside BadgerDB. It is meant for one gateway instance or for
// tests; instances sharing a cluster use the jetstream backend.
//
// Layout:
//
//	topic:<topic>                      topic registration
//	log:<topic>:<seq>                  record, CBOR encoded, seq zero-padded to 20 digits
//	ts:<topic>:<millis>:<seq>          time index used by Seek
//	off:<topic>:<subscriber>           next offset to read for a durable subscriber
package badgerlog

import (
	"chat-gateway/bus"
	"chat-gateway/codec"
	"chat-gateway/contract"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const sequenceBandwidth = 1000

type entry struct {
	Key   string    `cbor:"1,keyasint"`
	Value []byte    `cbor:"2,keyasint"`
	At    time.Time `cbor:"3,keyasint"`
}

type Broker struct {
	db        *badger.DB
	log       *slog.Logger
	retention time.Duration
	now       func() time.Time

	mu   sync.Mutex
	seqs map[string]*badger.Sequence
}

// NewBroker uses db without owning it. Records older than retention expire;
// zero keeps them forever.
func NewBroker(db *badger.DB, log *slog.Logger, retention time.Duration) *Broker {
	return &Broker{
		db:        db,
		log:       log,
		retention: retention,
		now:       time.Now,
		seqs:      make(map[string]*badger.Sequence),
	}
}

func topicKey(topic string) []byte { return []byte("topic:" + topic) }

func logPrefix(topic string) []byte { return []byte("log:" + topic + ":") }

func logKey(topic string, seq uint64) []byte {
	return []byte(fmt.Sprintf("log:%s:%020d", topic, seq))
}

func tsPrefix(topic string) []byte { return []byte("ts:" + topic + ":") }

func tsKey(topic string, at time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("ts:%s:%016d:%020d", topic, at.UnixMilli(), seq))
}

func offsetKey(topic, subscriber string) []byte {
	return []byte(fmt.Sprintf("off:%s:%s", topic, subscriber))
}

func parseSeq(key []byte) (uint64, error) {
	s := string(key)
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return 0, fmt.Errorf("malformed key %q", s)
	}
	return strconv.ParseUint(s[idx+1:], 10, 64)
}

func (b *Broker) EnsureTopics(_ context.Context, topics []string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, t := range topics {
			if err := txn.Set(topicKey(t), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Broker) NewProducer() bus.Producer {
	return &producer{broker: b}
}

// sequence returns the leased sequence of a topic. Offsets start at 1 and a
// restart may leave a gap, never a reordering.
func (b *Broker) sequence(topic string) (*badger.Sequence, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq, ok := b.seqs[topic]; ok {
		return seq, nil
	}
	seq, err := b.db.GetSequence([]byte("seq:"+topic), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("sequence for %s: %w", topic, err)
	}
	b.seqs[topic] = seq
	return seq, nil
}

// Subscribe resumes at the committed offset of subscriber. A new subscriber
// starts after the last record of the topic and that position is stored
// immediately, so records appended before its first commit are not skipped
// when the topic is handed over.
func (b *Broker) Subscribe(_ context.Context, topic, subscriber string) (bus.Subscription, error) {
	var next uint64
	err := b.db.Update(func(txn *badger.Txn) error {
		key := offsetKey(topic, subscriber)
		item, err := txn.Get(key)
		switch {
		case err == nil:
			return item.Value(func(v []byte) error {
				next, err = strconv.ParseUint(string(v), 10, 64)
				return err
			})
		case err == badger.ErrKeyNotFound:
			last, _, err := lastSeq(txn, topic)
			if err != nil {
				return err
			}
			next = last + 1
			return txn.Set(key, []byte(strconv.FormatUint(next, 10)))
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s as %s: %w", topic, subscriber, err)
	}
	return &subscription{broker: b, topic: topic, subscriber: subscriber, next: next}, nil
}

// Seek positions a subscription on the first record stamped at or after since.
func (b *Broker) Seek(_ context.Context, topic string, since time.Time) (bus.Subscription, error) {
	var next uint64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := tsPrefix(topic)
		seek := []byte(fmt.Sprintf("ts:%s:%016d:", topic, max(since.UnixMilli(), 0)))
		it.Seek(seek)
		if it.ValidForPrefix(prefix) {
			seq, err := parseSeq(it.Item().Key())
			if err != nil {
				return err
			}
			next = seq
			return nil
		}
		last, found, err := lastSeq(txn, topic)
		if err != nil {
			return err
		}
		if found {
			next = last + 1
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seek %s: %w", topic, err)
	}
	return &subscription{broker: b, topic: topic, next: next}, nil
}

func lastSeq(txn *badger.Txn, topic string) (uint64, bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Reverse = true
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := logPrefix(topic)
	it.Seek(append(prefix, []byte("99999999999999999999")...))
	if !it.ValidForPrefix(prefix) {
		return 0, false, nil
	}
	seq, err := parseSeq(it.Item().Key())
	return seq, err == nil, err
}

// Close releases the leased sequences. The database belongs to the caller.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for topic, seq := range b.seqs {
		if err := seq.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(b.seqs, topic)
	}
	return firstErr
}

type producer struct {
	broker  *Broker
	pending []pendingRecord
}

type pendingRecord struct {
	topic string
	entry entry
}

// Send stamps the record with the send time; replays select on it.
func (p *producer) Send(_ context.Context, topic, key string, value []byte) error {
	p.pending = append(p.pending, pendingRecord{
		topic: topic,
		entry: entry{Key: key, Value: value, At: p.broker.now().UTC()},
	})
	return nil
}

// Commit appends the pending records in send order. Transactions are split
// when they grow too big, so a failure may leave a prefix of the batch written.
func (p *producer) Commit(_ context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}
	txn := p.broker.db.NewTransaction(true)
	defer func() { txn.Discard() }()

	for i, r := range p.pending {
		seq, err := p.broker.sequence(r.topic)
		if err != nil {
			return err
		}
		n, err := seq.Next()
		if err != nil {
			return fmt.Errorf("next offset of %s: %w", r.topic, err)
		}
		n++
		value, err := codec.Marshal(r.entry)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		entries := []*badger.Entry{
			p.broker.newEntry(logKey(r.topic, n), value),
			p.broker.newEntry(tsKey(r.topic, r.entry.At, n), nil),
		}
		if err := setAll(txn, entries); err == badger.ErrTxnTooBig {
			if err := txn.Commit(); err != nil {
				p.pending = p.pending[i:]
				return err
			}
			txn = p.broker.db.NewTransaction(true)
			if err := setAll(txn, entries); err != nil {
				p.pending = p.pending[i:]
				return err
			}
		} else if err != nil {
			p.pending = p.pending[i:]
			return err
		}
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	p.pending = nil
	return nil
}

func setAll(txn *badger.Txn, entries []*badger.Entry) error {
	for _, e := range entries {
		if err := txn.SetEntry(e); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broker) newEntry(key, value []byte) *badger.Entry {
	e := badger.NewEntry(key, value)
	if b.retention > 0 {
		e = e.WithTTL(b.retention)
	}
	return e
}

// Close drops records that were never committed.
func (p *producer) Close() error {
	p.pending = nil
	return nil
}

type subscription struct {
	broker     *Broker
	topic      string
	subscriber string
	next       uint64
}

func (s *subscription) Fetch(_ context.Context, max int) ([]contract.Record, error) {
	var records []contract.Record
	err := s.broker.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = max
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := logPrefix(s.topic)
		for it.Seek(logKey(s.topic, s.next)); it.ValidForPrefix(prefix) && len(records) < max; it.Next() {
			item := it.Item()
			seq, err := parseSeq(item.Key())
			if err != nil {
				return err
			}
			var e entry
			if err := item.Value(func(v []byte) error {
				return codec.Unmarshal(v, &e)
			}); err != nil {
				return fmt.Errorf("decode %s@%d: %w", s.topic, seq, err)
			}
			records = append(records, contract.Record{
				Topic:     s.topic,
				Offset:    seq,
				Key:       e.Key,
				Value:     e.Value,
				Timestamp: e.At,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		s.next = records[len(records)-1].Offset + 1
	}
	return records, nil
}

// Commit is a no-op for subscriptions opened by Seek.
func (s *subscription) Commit(_ context.Context) error {
	if s.subscriber == "" {
		return nil
	}
	return s.broker.db.Update(func(txn *badger.Txn) error {
		return txn.Set(offsetKey(s.topic, s.subscriber), []byte(strconv.FormatUint(s.next, 10)))
	})
}

func (s *subscription) Close() error { return nil }
