package bus

// Assign splits shards [0, shardCount) into contiguous slices, one per worker
// in registration order. Every worker gets floor(shardCount/workers) shards and
// the trailing workers absorb the remainder one shard each, so every slice is
// the floor or the ceiling of the even share and each shard has one owner.
// With more workers than shards the leading workers own nothing.
func Assign(shardCount, workers int) [][]int {
	if workers <= 0 {
		return nil
	}
	base := shardCount / workers
	remainder := shardCount % workers

	slices := make([][]int, workers)
	next := 0
	for i := range slices {
		size := base
		if i >= workers-remainder {
			size++
		}
		slice := make([]int, 0, size)
		for j := 0; j < size; j++ {
			slice = append(slice, next)
			next++
		}
		slices[i] = slice
	}
	return slices
}
