package mmseq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"
	"unicode/utf8"

	"github.com/hupe1980/mmseq/cache"
	"github.com/hupe1980/mmseq/internal/lineindex"
	"github.com/hupe1980/mmseq/internal/mmap"
	"github.com/hupe1980/mmseq/internal/scan"
	"github.com/hupe1980/mmseq/resource"
)

// lineBase is shared by a LineVector and all of its sub-views.
type lineBase struct {
	m       *mmap.Mapping
	path    string
	idx     *lineindex.Index
	matcher *scan.Matcher
	cache   cache.BucketCache
	decode  cache.DecodeFunc
	logger  *Logger
	metrics MetricsCollector
}

// LineVector is a random-access view of the lines of a mapped file.
//
// A sparse index records the byte offset of every BucketSize-th line, so a
// lookup decodes at most one bucket. Decoded buckets are kept in a
// cache.BucketCache shared by every sub-view of the same vector.
//
// A LineVector is safe for concurrent use.
type LineVector struct {
	base   *lineBase
	lo, hi int
}

// Empty is the vector with no lines. SubRange returns it for empty ranges.
var Empty = &LineVector{}

// OpenIndexed maps the file at path and indexes its lines.
//
// The index is built by one forward scan, or loaded from the sidecar set by
// WithIndexSidecar when that still matches the file. A trailing segment
// without a separator counts as a line; an empty file has no lines.
func OpenIndexed(path string, optFns ...Option) (*LineVector, error) {
	o, err := newOptions(DefaultIndexBufferSize, optFns)
	if err != nil {
		return nil, err
	}

	m, fi, err := mapFile(path, o)
	if err != nil {
		return nil, err
	}

	matcher, err := scan.NewMatcher(o.separator)
	if err != nil {
		m.Close()
		return nil, err
	}

	idx, err := loadOrBuildIndex(m, fi, path, o)
	if err != nil {
		m.Close()
		return nil, err
	}

	b := &lineBase{
		m:       m,
		path:    path,
		idx:     idx,
		matcher: matcher,
		cache:   o.cacheFactory(),
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
	b.decode = b.decodeBucket

	return &LineVector{base: b, lo: 0, hi: idx.Lines}, nil
}

func loadOrBuildIndex(m *mmap.Mapping, fi os.FileInfo, path string, o *options) (*lineindex.Index, error) {
	ctx := context.Background()
	meta := lineindex.Meta{
		FileSize:   m.Size(),
		ModTime:    fi.ModTime().UnixNano(),
		Separator:  o.separator,
		BucketSize: o.bucketSize,
	}

	start := time.Now()
	if o.sidecarPath != "" {
		idx, err := lineindex.Load(o.fsys, o.sidecarPath, meta)
		if err == nil {
			o.logger.LogSidecar(ctx, "load", o.sidecarPath, nil)
			o.metricsCollector.RecordIndexBuild(idx.Lines, time.Since(start), true)
			return idx, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			o.logger.LogSidecar(ctx, "load", o.sidecarPath, err)
		}
	}

	var src io.ReaderAt = m
	if o.controller != nil {
		src = resource.NewRateLimitedReaderAt(ctx, m, o.controller)
	}
	idx, err := lineindex.Build(src, m.Size(), o.separator, o.bucketSize, make([]byte, o.bufferSize))
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}
	elapsed := time.Since(start)
	o.metricsCollector.RecordIndexBuild(idx.Lines, elapsed, false)
	o.logger.LogIndexBuilt(ctx, path, idx.Lines, idx.Buckets(), elapsed)

	if o.sidecarPath != "" {
		err := lineindex.Save(o.fsys, o.sidecarPath, idx, meta, o.compression, o.codec)
		o.logger.LogSidecar(ctx, "save", o.sidecarPath, err)
	}

	return idx, nil
}

// bucketLen returns the number of lines in bucket b.
func (b *lineBase) bucketLen(bucket int) int {
	bs := b.idx.BucketSize
	return min(bs, b.idx.Lines-bucket*bs)
}

// decodeBucket splits bucket b into its lines. All lines share one string
// allocation.
func (b *lineBase) decodeBucket(bucket int) ([]string, error) {
	start := time.Now()

	s, e := b.idx.Span(bucket)
	data, err := b.m.View(s, e-s)
	if err != nil {
		return nil, err
	}

	parts := b.matcher.Clone().Split(data, true)
	if n := b.bucketLen(bucket); len(parts) > n {
		parts = parts[:n]
	}

	text := string(data)
	lines := make([]string, len(parts))
	sepLen := len(b.matcher.Separator())
	pos := 0
	for i, p := range parts {
		if !utf8.Valid(p) {
			return nil, &DecodeError{Offset: s + int64(pos), Length: int64(len(p))}
		}
		lines[i] = text[pos : pos+len(p)]
		pos += len(p) + sepLen
	}

	b.metrics.RecordBucketDecode(len(lines), time.Since(start))
	return lines, nil
}

// Len returns the number of lines.
func (v *LineVector) Len() int { return v.hi - v.lo }

// Origin returns the line number, in the underlying file, of line 0 of v.
func (v *LineVector) Origin() int { return v.lo }

// Path returns the path the vector was opened from.
func (v *LineVector) Path() string {
	if v.base == nil {
		return ""
	}
	return v.base.path
}

// BucketSize returns the number of lines per index bucket.
func (v *LineVector) BucketSize() int {
	if v.base == nil {
		return DefaultBucketSize
	}
	return v.base.idx.BucketSize
}

// Nth returns line i.
//
// ok is false for an empty line; such lines are reported as missing. An
// index outside [0, Len()) yields a *RangeError.
func (v *LineVector) Nth(i int) (line string, ok bool, err error) {
	if i < 0 || i >= v.Len() {
		return "", false, &RangeError{Op: "nth", Start: i, End: i, Len: v.Len()}
	}

	abs := v.lo + i
	bs := v.base.idx.BucketSize
	lines, err := v.base.cache.Get(abs/bs, v.base.decode)
	if err != nil {
		return "", false, err
	}

	k := abs % bs
	if k >= len(lines) {
		return "", false, fmt.Errorf("%w: line %d missing from bucket %d", ErrInvalidIndex, abs, abs/bs)
	}
	return lines[k], lines[k] != "", nil
}

// NthOr returns line i, or notFound if the line is empty.
func (v *LineVector) NthOr(i int, notFound string) (string, error) {
	return nthOr(v, i, notFound)
}

// SubRange returns the lines [start, end) as a vector that shares the index,
// mapping and cache of v. Nested sub-ranges resolve against the original
// vector directly.
func (v *LineVector) SubRange(start, end int) (*LineVector, error) {
	if start < 0 || end < start || end > v.Len() {
		return nil, &RangeError{Op: "subrange", Start: start, End: end, Len: v.Len()}
	}
	if start == end {
		return Empty, nil
	}
	return &LineVector{base: v.base, lo: v.lo + start, hi: v.lo + end}, nil
}

// Lines returns an iterator over the lines of v. Missing lines are yielded
// as "".
func (v *LineVector) Lines() iter.Seq2[string, error] {
	return lines(v)
}

// Offsets returns a copy of the sparse index: the byte offset of every
// BucketSize-th line followed by the file size.
func (v *LineVector) Offsets() []int64 {
	if v.base == nil {
		return nil
	}
	return append([]int64(nil), v.base.idx.Offsets...)
}

// firstBucket returns the index bucket holding line 0 of v.
func (v *LineVector) firstBucket() int {
	return v.lo / v.BucketSize()
}

// Buckets returns the number of index buckets that overlap v.
func (v *LineVector) Buckets() int {
	if v.Len() == 0 {
		return 0
	}
	return (v.hi-1)/v.BucketSize() - v.firstBucket() + 1
}

// BucketLines decodes the b-th bucket overlapping v, bypassing the cache, and
// returns its lines that fall inside v. first is the index in v of lines[0].
// Missing lines are returned as "".
//
// Buckets can be decoded concurrently, which makes this the building block
// for bulk scans.
func (v *LineVector) BucketLines(b int) (first int, lines []string, err error) {
	if b < 0 || b >= v.Buckets() {
		return 0, nil, &RangeError{Op: "bucket", Start: b, End: b, Len: v.Buckets()}
	}

	bs := v.BucketSize()
	bucket := v.firstBucket() + b
	lines, err = v.base.decodeBucket(bucket)
	if err != nil {
		return 0, nil, err
	}

	lo := bucket * bs // absolute line number of lines[0]
	if v.lo > lo {
		lines = lines[v.lo-lo:]
		lo = v.lo
	}
	if n := v.hi - lo; len(lines) > n {
		lines = lines[:n]
	}
	return lo - v.lo, lines, nil
}

// CacheStats returns the hit and miss counts of the shared bucket cache.
func (v *LineVector) CacheStats() (hits, misses int64) {
	if v.base == nil {
		return 0, 0
	}
	return v.base.cache.Stats()
}

// Close releases the mapping shared by v and all of its sub-views.
func (v *LineVector) Close() error {
	if v.base == nil {
		return nil
	}
	return v.base.m.Close()
}
