package cache

// DecodeFunc decodes the lines of one bucket.
type DecodeFunc func(bucket int) ([]string, error)

// BucketCache returns the decoded lines of a bucket, calling decode on a miss.
type BucketCache interface {
	// Get returns the lines of bucket, decoding them if not cached.
	// A decode error is returned as-is and nothing is cached.
	Get(bucket int, decode DecodeFunc) ([]string, error)
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}

// Factory creates a fresh cache for one vector.
type Factory func() BucketCache

// sizeOf estimates the heap footprint of a decoded bucket.
func sizeOf(lines []string) int64 {
	n := int64(24) // slice header
	for _, l := range lines {
		n += int64(len(l)) + 16
	}
	return n
}
