package bus

import (
	"chat-gateway/domain"
	"fmt"
)

// ShardOf maps a group to its shard: numeric group id modulo the shard count.
func ShardOf(groupID domain.GroupID, shardCount int) (int, error) {
	n, err := groupID.Numeric()
	if err != nil {
		return 0, err
	}
	return int(n % uint64(shardCount)), nil
}

func TopicName(pattern string, shard int) string {
	return fmt.Sprintf("%s-%d", pattern, shard)
}

func TopicNames(pattern string, shardCount int) []string {
	topics := make([]string, shardCount)
	for i := range topics {
		topics[i] = TopicName(pattern, i)
	}
	return topics
}
