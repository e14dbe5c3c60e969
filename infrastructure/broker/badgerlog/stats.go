package badgerlog

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

type TopicStats struct {
	Topic       string
	Records     int
	FirstOffset uint64
	LastOffset  uint64
	// Subscribers maps every durable subscriber to its next offset.
	Subscribers map[string]uint64
}

// Stats walks every registered topic. It reads keys only.
func (b *Broker) Stats() ([]TopicStats, error) {
	var stats []TopicStats
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var topics []string
		topicPrefix := []byte("topic:")
		for it.Seek(topicPrefix); it.ValidForPrefix(topicPrefix); it.Next() {
			topics = append(topics, string(bytes.TrimPrefix(it.Item().Key(), topicPrefix)))
		}

		for _, topic := range topics {
			s := TopicStats{Topic: topic, Subscribers: make(map[string]uint64)}
			prefix := logPrefix(topic)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				seq, err := parseSeq(it.Item().Key())
				if err != nil {
					return err
				}
				if s.Records == 0 {
					s.FirstOffset = seq
				}
				s.LastOffset = seq
				s.Records++
			}

			offPrefix := []byte("off:" + topic + ":")
			for it.Seek(offPrefix); it.ValidForPrefix(offPrefix); it.Next() {
				item := it.Item()
				subscriber := strings.TrimPrefix(string(item.Key()), string(offPrefix))
				err := item.Value(func(v []byte) error {
					next, err := strconv.ParseUint(string(v), 10, 64)
					s.Subscribers[subscriber] = next
					return err
				})
				if err != nil {
					return err
				}
			}
			stats = append(stats, s)
		}
		return nil
	})
	return stats, err
}
