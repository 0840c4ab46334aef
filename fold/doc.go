// Package fold runs fork-join computations over mmseq record streams and
// line vectors.
//
// Reduce splits a RecordRange recursively until the pieces can no longer be
// split (they fall below the buffer size, or no record boundary is left),
// runs a leaf function on every piece concurrently and combines the results
// pairwise in file order:
//
//	n, err := fold.Reduce(ctx, r,
//	    func(ctx context.Context, leaf *mmseq.RecordRange) (int, error) { return leaf.Count() },
//	    func(a, b int) int { return a + b },
//	)
//
// Concurrency and read throughput are bounded by a resource.Controller.
// SelectLines scans the buckets of a LineVector in parallel and returns the
// matching line numbers as a roaring bitmap.
package fold
