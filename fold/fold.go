package fold

import (
	"context"
	"runtime"

	"github.com/hupe1980/mmseq"
	"github.com/hupe1980/mmseq/resource"
	"golang.org/x/sync/errgroup"
)

// Options configures a fold.
type Options struct {
	// Controller bounds the number of leaves processed at once and the bytes
	// they may read per second. If nil, a controller with GOMAXPROCS workers
	// and no IO limit is used.
	Controller *resource.Controller
}

func newOptions(optFns []func(*Options)) Options {
	var o Options
	for _, fn := range optFns {
		fn(&o)
	}
	if o.Controller == nil {
		o.Controller = resource.NewController(resource.Config{
			MaxWorkers: int64(runtime.GOMAXPROCS(0)),
		})
	}
	return o
}

// LeafFunc processes one unsplittable piece of a range.
type LeafFunc[T any] func(ctx context.Context, leaf *mmseq.RecordRange) (T, error)

// Reduce splits r recursively, applies leaf to every piece and merges the
// results with combine. combine always receives the left piece first, so an
// order-sensitive combine sees records in file order.
//
// The first error cancels the remaining work and is returned.
func Reduce[T any](ctx context.Context, r *mmseq.RecordRange, leaf LeafFunc[T], combine func(left, right T) T, optFns ...func(*Options)) (T, error) {
	o := newOptions(optFns)
	return reduce(ctx, r, leaf, combine, &o)
}

func reduce[T any](ctx context.Context, r *mmseq.RecordRange, leaf LeafFunc[T], combine func(left, right T) T, o *Options) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	left, right, err := r.Split()
	if err != nil {
		return zero, err
	}
	if left == nil {
		return runLeaf(ctx, r, leaf, o)
	}

	var lv, rv T
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lv, err = reduce(gctx, left, leaf, combine, o)
		return err
	})
	g.Go(func() (err error) {
		rv, err = reduce(gctx, right, leaf, combine, o)
		return err
	})
	if err := g.Wait(); err != nil {
		return zero, err
	}
	return combine(lv, rv), nil
}

func runLeaf[T any](ctx context.Context, r *mmseq.RecordRange, leaf LeafFunc[T], o *Options) (T, error) {
	var v T
	err := o.Controller.Run(ctx, r.Len(), func() (err error) {
		v, err = leaf(ctx, r)
		return err
	})
	return v, err
}

// ForEach calls fn once for every leaf of r. Leaves run concurrently.
func ForEach(ctx context.Context, r *mmseq.RecordRange, fn func(ctx context.Context, leaf *mmseq.RecordRange) error, optFns ...func(*Options)) error {
	_, err := Reduce(ctx, r,
		func(ctx context.Context, leaf *mmseq.RecordRange) (struct{}, error) {
			return struct{}{}, fn(ctx, leaf)
		},
		func(struct{}, struct{}) struct{} { return struct{}{} },
		optFns...,
	)
	return err
}

// Records folds the records of r: every leaf starts from init(), applies step
// to each of its records in order, and leaf results are merged with combine.
// Cancellation is checked between records.
func Records[T any](ctx context.Context, r *mmseq.RecordRange, init func() T, step func(acc T, rec string) T, combine func(left, right T) T, optFns ...func(*Options)) (T, error) {
	return Reduce(ctx, r,
		func(ctx context.Context, leaf *mmseq.RecordRange) (T, error) {
			acc := init()
			for rec, err := range leaf.Records() {
				if err != nil {
					return acc, err
				}
				if err := ctx.Err(); err != nil {
					return acc, err
				}
				acc = step(acc, rec)
			}
			return acc, nil
		},
		combine,
		optFns...,
	)
}

// Count returns the number of records in r.
func Count(ctx context.Context, r *mmseq.RecordRange, optFns ...func(*Options)) (int, error) {
	return Reduce(ctx, r,
		func(_ context.Context, leaf *mmseq.RecordRange) (int, error) { return leaf.Count() },
		func(a, b int) int { return a + b },
		optFns...,
	)
}
