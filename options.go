package mmseq

import (
	"log/slog"

	"github.com/hupe1980/mmseq/cache"
	"github.com/hupe1980/mmseq/codec"
	"github.com/hupe1980/mmseq/internal/fs"
	"github.com/hupe1980/mmseq/internal/lineindex"
	"github.com/hupe1980/mmseq/internal/mmap"
	"github.com/hupe1980/mmseq/resource"
)

const (
	// DefaultBufferSize is the scan buffer and minimum split size of a
	// record stream.
	DefaultBufferSize = 262144

	// DefaultIndexBufferSize is the read size of the line index scan.
	DefaultIndexBufferSize = lineindex.DefaultBufferSize

	// DefaultBucketSize is the number of lines per index bucket.
	DefaultBucketSize = 10

	// DefaultSeparator terminates records unless WithSeparator is given.
	DefaultSeparator = "\n"
)

// FileSystem abstracts the file operations used to open data files and to
// read and write sidecar indexes.
type FileSystem = fs.FileSystem

// File is an open file returned by a FileSystem. It must expose a descriptor
// that can be memory-mapped.
type File = fs.File

// Compression selects how a sidecar index body is compressed.
type Compression = lineindex.Compression

const (
	CompressionNone = lineindex.CompressionNone
	CompressionLZ4  = lineindex.CompressionLZ4
	CompressionZSTD = lineindex.CompressionZSTD
)

// AccessPattern is a kernel hint applied to every mapping window.
type AccessPattern = mmap.AccessPattern

const (
	AccessDefault    = mmap.AccessDefault
	AccessSequential = mmap.AccessSequential
	AccessRandom     = mmap.AccessRandom
	AccessWillNeed   = mmap.AccessWillNeed
	AccessDontNeed   = mmap.AccessDontNeed
)

type options struct {
	bufferSize       int
	separator        []byte
	bucketSize       int
	windowSize       int64
	maxSplitScan     int64
	cacheFactory     cache.Factory
	logger           *Logger
	metricsCollector MetricsCollector
	fsys             FileSystem
	sidecarPath      string
	compression      Compression
	codec            codec.Codec
	accessPattern    AccessPattern
	controller       *resource.Controller
}

// Option configures Open and OpenIndexed.
type Option func(*options)

func newOptions(bufferSize int, optFns []Option) (*options, error) {
	o := &options{
		bufferSize:       bufferSize,
		separator:        []byte(DefaultSeparator),
		bucketSize:       DefaultBucketSize,
		cacheFactory:     func() cache.BucketCache { return cache.NewSingleSlot() },
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		fsys:             fs.Default,
		compression:      CompressionZSTD,
		codec:            codec.Default,
	}
	for _, fn := range optFns {
		fn(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *options) validate() error {
	if o.bufferSize <= 0 {
		return &OptionError{Option: "buffer size", Value: o.bufferSize}
	}
	if len(o.separator) == 0 {
		return &OptionError{Option: "separator", Value: string(o.separator)}
	}
	if o.bucketSize <= 0 {
		return &OptionError{Option: "bucket size", Value: o.bucketSize}
	}
	if o.windowSize < 0 || o.windowSize%mmap.Granularity() != 0 {
		return &OptionError{Option: "window size", Value: o.windowSize, cause: mmap.ErrInvalidWindow}
	}
	if o.maxSplitScan < 0 {
		return &OptionError{Option: "max split scan", Value: o.maxSplitScan}
	}
	if o.compression > CompressionZSTD {
		return &OptionError{Option: "index compression", Value: o.compression}
	}
	return nil
}

// WithBufferSize sets the scan buffer size in bytes.
//
// For record streams it is also the smallest range that may still be split
// and the target size of a ChunkBatcher batch. For OpenIndexed it only sets
// the read size of the index scan.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// WithSeparator sets the record separator. Multi-byte separators such as
// "\r\n" are matched across buffer refills.
func WithSeparator(sep string) Option {
	return func(o *options) {
		o.separator = []byte(sep)
	}
}

// WithBucketSize sets how many lines share one index entry. Larger buckets
// shrink the index; lookups decode up to bucketSize lines.
func WithBucketSize(n int) Option {
	return func(o *options) {
		o.bucketSize = n
	}
}

// WithWindowSize bounds each mapping window. It must be a positive multiple
// of the platform mapping granularity; zero selects the 1 GiB default.
func WithWindowSize(n int64) Option {
	return func(o *options) {
		o.windowSize = n
	}
}

// WithMaxSplitScan bounds how far past the split point Split looks for a
// separator. A range with no separator inside the bound is unsplittable.
// Zero means unbounded.
func WithMaxSplitScan(n int64) Option {
	return func(o *options) {
		o.maxSplitScan = n
	}
}

// WithBucketCache sets the factory for the decoded-bucket cache of a line
// vector. The cache is shared by all sub-views of the vector.
//
// If nil is passed, a single-slot cache is used.
func WithBucketCache(f cache.Factory) Option {
	return func(o *options) {
		if f == nil {
			f = func() cache.BucketCache { return cache.NewSingleSlot() }
		}
		o.cacheFactory = f
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := mmseq.NewJSONLogger(slog.LevelInfo)
//	v, _ := mmseq.OpenIndexed("data.txt", mmseq.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &mmseq.BasicMetricsCollector{}
//	r, _ := mmseq.Open("data.txt", mmseq.WithMetricsCollector(metrics))
//	// ... use r ...
//	stats := metrics.GetStats()
//	fmt.Printf("Splits: %d, bytes scanned: %d\n", stats.SplitCount, stats.BytesScanned)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithFileSystem sets the file system used to open data files and sidecar
// indexes. If nil is passed, the local file system is used.
func WithFileSystem(fsys FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fsys = fsys
	}
}

// WithIndexSidecar persists the line index of OpenIndexed at path and reuses
// it on later opens while the data file's size and modification time (and
// the index parameters) are unchanged. A stale or corrupt sidecar is
// rebuilt; a failed write is logged and otherwise ignored.
func WithIndexSidecar(path string) Option {
	return func(o *options) {
		o.sidecarPath = path
	}
}

// WithIndexCompression selects the sidecar body compression. The default is
// CompressionZSTD.
func WithIndexCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCodec configures the codec used for the sidecar header.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithAccessPattern advises the kernel how the mapping will be read.
func WithAccessPattern(p AccessPattern) Option {
	return func(o *options) {
		o.accessPattern = p
	}
}

// WithResourceController throttles the index scan of OpenIndexed to the IO
// limit of rc. It has no effect on record streams, whose readers pace
// themselves (see package fold).
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}
