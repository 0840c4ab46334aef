// Package mmseq provides read-only, parallelizable access to very large
// delimiter-separated text files through memory mapping.
//
// Files are mapped in windows of up to 1 GiB, so they may be far larger than a
// single mapping and are never loaded into the heap as a whole. Two views are
// offered over the same mapping.
//
// # Record Streams
//
// Open returns a RecordRange: a lazily splittable range of records suitable
// for divide-and-conquer processing.
//
//	r, _ := mmseq.Open("events.log")
//	defer r.Close()
//
//	left, right, _ := r.Split()     // nil, nil when too small to split
//	for rec, err := range left.Records() {
//	    // ...
//	}
//
// Splits always land just after a complete separator, so the two halves
// partition the parent's records exactly. ChunkBatcher walks a range in
// batches of about BufferSize bytes:
//
//	for batch, err := range r.Chunks().Batches() {
//	    // batch is a []string
//	}
//
// The fold package runs fork-join reductions over a RecordRange and parallel
// bucket scans over a LineVector.
//
// # Line Vectors
//
// OpenIndexed builds a sparse index holding the offset of every BucketSize-th
// line and returns a LineVector with near O(1) positional lookup:
//
//	v, _ := mmseq.OpenIndexed("events.log",
//	    mmseq.WithBucketSize(32),
//	    mmseq.WithIndexSidecar("events.log.idx"),
//	)
//	defer v.Close()
//
//	line, ok, _ := v.Nth(1_000_000)  // ok is false for an empty line
//	tail, _ := v.SubRange(v.Len()-10, v.Len())
//
// With WithIndexSidecar the index is persisted next to the data and reused
// while the file is unchanged.
//
// # Separators
//
// Separators may span several bytes ("\r\n", "\x00\x00"). Matching carries
// state across buffer refills, so a separator straddling two reads is still
// found exactly once.
//
// # Concurrency
//
// Ranges, vectors and batchers are safe for concurrent use. Reads take
// absolute offsets and share no cursor; bucket caches guard their own state.
// Closing any view unmaps the file for every view derived from the same open.
package mmseq
