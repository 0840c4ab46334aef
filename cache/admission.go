package cache

import (
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
)

// Admission is a concurrent cache backed by ristretto. A TinyLFU filter
// decides which buckets are worth keeping, so one-off scans do not flush the
// buckets that random lookups keep hitting.
//
// Inserts are buffered: a bucket may miss once more right after it was
// decoded.
type Admission struct {
	c *ristretto.Cache[int, []string]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewAdmission creates a cache holding up to capacity bytes of decoded
// lines. expectedBuckets sizes the frequency sketch and should be about the
// number of buckets that are expected to be hot.
func NewAdmission(capacity, expectedBuckets int64) (*Admission, error) {
	c, err := ristretto.NewCache(&ristretto.Config[int, []string]{
		NumCounters: max(expectedBuckets*10, 1000),
		MaxCost:     capacity,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Admission{c: c}, nil
}

// Get implements BucketCache.
func (a *Admission) Get(bucket int, decode DecodeFunc) ([]string, error) {
	if lines, ok := a.c.Get(bucket); ok {
		a.hits.Add(1)
		return lines, nil
	}
	a.misses.Add(1)

	lines, err := decode(bucket)
	if err != nil {
		return nil, err
	}
	a.c.Set(bucket, lines, sizeOf(lines))
	return lines, nil
}

// Wait blocks until buffered inserts are applied.
func (a *Admission) Wait() { a.c.Wait() }

// Close stops the cache's background goroutines.
func (a *Admission) Close() { a.c.Close() }

// Stats implements BucketCache.
func (a *Admission) Stats() (hits, misses int64) {
	return a.hits.Load(), a.misses.Load()
}
