// Package resource bounds what bulk consumers of a mapping may spend: bytes
// held by bucket caches, leaves processed at once by the fold package, and
// bytes read per second.
//
// One Controller is typically shared by every vector and fold of a process.
// A nil *Controller imposes no limits.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values mean unlimited, except for
// MaxWorkers which defaults to 1.
type Config struct {
	// CacheLimitBytes caps the decoded lines held by all caches attached to
	// the controller. Usage is tracked even without a limit.
	CacheLimitBytes int64

	// MaxWorkers is the maximum number of leaf ranges or bucket batches
	// processed at once.
	MaxWorkers int64

	// ReadBytesPerSec caps the bytes read from mappings by index scans and
	// fold leaves.
	ReadBytesPerSec int64
}

// Controller enforces a Config.
type Controller struct {
	cfg Config

	cacheSem  *semaphore.Weighted // nil if unlimited
	cacheUsed atomic.Int64

	workers *semaphore.Weighted
	reads   *rate.Limiter // nil if unlimited
}

// NewController returns a controller enforcing cfg.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}

	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}
	if cfg.CacheLimitBytes > 0 {
		c.cacheSem = semaphore.NewWeighted(cfg.CacheLimitBytes)
	}
	if cfg.ReadBytesPerSec > 0 {
		c.reads = rate.NewLimiter(rate.Limit(cfg.ReadBytesPerSec), int(min(cfg.ReadBytesPerSec, 1<<30)))
	}
	return c
}

// Config returns the limits the controller was built with.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// ReserveCache claims n bytes of cache budget. It never blocks: false means
// the budget is exhausted and the caller should evict or skip caching.
func (c *Controller) ReserveCache(n int64) bool {
	if c == nil || n <= 0 {
		return true
	}
	if c.cacheSem != nil && !c.cacheSem.TryAcquire(n) {
		return false
	}
	c.cacheUsed.Add(n)
	return true
}

// ReleaseCache returns n bytes claimed by ReserveCache.
func (c *Controller) ReleaseCache(n int64) {
	if c == nil || n <= 0 {
		return
	}
	if c.cacheSem != nil {
		c.cacheSem.Release(n)
	}
	c.cacheUsed.Add(-n)
}

// CacheUsage returns the cache bytes currently reserved.
func (c *Controller) CacheUsage() int64 {
	if c == nil {
		return 0
	}
	return c.cacheUsed.Load()
}

// AcquireWorker blocks until a worker slot is free or ctx is done.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.workers.Acquire(ctx, 1)
}

// ReleaseWorker frees a slot taken by AcquireWorker.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireIO blocks until n bytes may be read. Requests larger than the
// limiter burst are paid in installments.
func (c *Controller) AcquireIO(ctx context.Context, n int64) error {
	if c == nil || c.reads == nil {
		return ctx.Err()
	}
	burst := int64(c.reads.Burst())
	for n > 0 {
		step := min(n, burst)
		if err := c.reads.WaitN(ctx, int(step)); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

// Run calls fn while holding a worker slot, after paying for readBytes of IO.
func (c *Controller) Run(ctx context.Context, readBytes int64, fn func() error) error {
	if err := c.AcquireWorker(ctx); err != nil {
		return err
	}
	defer c.ReleaseWorker()

	if err := c.AcquireIO(ctx, readBytes); err != nil {
		return err
	}
	return fn()
}
