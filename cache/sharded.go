package cache

import "github.com/hupe1980/mmseq/resource"

// DefaultShards is the shard count used when NewSharded is given n <= 0.
const DefaultShards = 16

// Sharded distributes buckets across independently locked LRU shards.
// Bucket ids are dense, so a modulo spreads neighbours evenly.
type Sharded struct {
	shards []*LRU
}

// NewSharded creates a sharded cache. The capacity is divided evenly across
// all shards.
func NewSharded(capacity int64, n int, rc *resource.Controller) *Sharded {
	if n <= 0 {
		n = DefaultShards
	}
	shardCapacity := max(capacity/int64(n), 1)

	s := &Sharded{shards: make([]*LRU, n)}
	for i := range s.shards {
		s.shards[i] = NewLRU(shardCapacity, rc)
	}
	return s
}

func (s *Sharded) shard(bucket int) *LRU {
	return s.shards[bucket%len(s.shards)]
}

// Get implements BucketCache.
func (s *Sharded) Get(bucket int, decode DecodeFunc) ([]string, error) {
	return s.shard(bucket).Get(bucket, decode)
}

// Stats implements BucketCache.
func (s *Sharded) Stats() (hits, misses int64) {
	for _, sh := range s.shards {
		h, m := sh.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Size returns the total size of all shards in bytes.
func (s *Sharded) Size() int64 {
	var total int64
	for _, sh := range s.shards {
		total += sh.Size()
	}
	return total
}
