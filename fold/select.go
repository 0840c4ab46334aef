package fold

import (
	"context"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/mmseq"
	"golang.org/x/sync/errgroup"
)

// bucketsPerTask is the number of index buckets scanned by one task.
const bucketsPerTask = 64

// SelectLines returns the numbers (relative to v) of the lines for which
// pred returns true. Missing lines are passed to pred as "".
//
// Buckets are decoded in parallel without touching the vector's cache, so a
// scan does not evict the entries of concurrent random readers.
func SelectLines(ctx context.Context, v *mmseq.LineVector, pred func(line string) bool, optFns ...func(*Options)) (*roaring.Bitmap, error) {
	if uint64(v.Len()) > math.MaxUint32 {
		return nil, fmt.Errorf("fold: %d lines exceed the bitmap range", v.Len())
	}
	o := newOptions(optFns)

	buckets := v.Buckets()
	tasks := (buckets + bucketsPerTask - 1) / bucketsPerTask
	parts := make([]*roaring.Bitmap, tasks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(int(max(o.Controller.Config().MaxWorkers, 1)))

	for t := range tasks {
		g.Go(func() error {
			bm := roaring.New()
			err := o.Controller.Run(gctx, 0, func() error {
				for b := t * bucketsPerTask; b < min((t+1)*bucketsPerTask, buckets); b++ {
					if err := gctx.Err(); err != nil {
						return err
					}
					first, lines, err := v.BucketLines(b)
					if err != nil {
						return err
					}
					for i, line := range lines {
						if pred(line) {
							bm.Add(uint32(first + i))
						}
					}
				}
				return nil
			})
			parts[t] = bm
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return roaring.FastOr(parts...), nil
}
