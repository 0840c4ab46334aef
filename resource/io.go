package resource

import (
	"context"
	"io"
)

// RateLimitedReaderAt wraps an io.ReaderAt with IO rate limiting.
type RateLimitedReaderAt struct {
	r   io.ReaderAt
	rc  *Controller
	ctx context.Context
}

// NewRateLimitedReaderAt creates a new RateLimitedReaderAt. With a nil
// controller the wrapper only adds context cancellation.
func NewRateLimitedReaderAt(ctx context.Context, r io.ReaderAt, rc *Controller) *RateLimitedReaderAt {
	return &RateLimitedReaderAt{
		r:   r,
		rc:  rc,
		ctx: ctx,
	}
}

// ReadAt implements io.ReaderAt.
func (r *RateLimitedReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if err := r.rc.AcquireIO(r.ctx, int64(len(p))); err != nil {
		return 0, err
	}
	return r.r.ReadAt(p, off)
}
