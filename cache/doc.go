// Package cache provides bucket caches for line vectors.
//
// A line vector decodes its file one bucket (a fixed number of consecutive
// lines) at a time. A BucketCache decides which decoded buckets are kept:
//
//   - [SingleSlot]: remembers the most recently decoded bucket (default)
//   - [Nop]: keeps nothing; every access decodes
//   - [LRU]: keeps recently used buckets up to a byte capacity
//   - [Sharded]: LRU split across independently locked shards for highly
//     concurrent readers
//   - [Admission]: frequency-admitted cache (ristretto) that resists scan
//     pollution
//
// Caches are owned by one vector and shared by all of its sub-views, so
// implementations must be safe for concurrent use. Returned slices are
// shared and must be treated as read-only.
package cache
