package mmseq

import (
	"context"
	"fmt"
	"iter"
	"unicode/utf8"

	"github.com/hupe1980/mmseq/internal/mmap"
	"github.com/hupe1980/mmseq/internal/scan"
)

// stream is the state shared by every RecordRange derived from one Open.
type stream struct {
	m            *mmap.Mapping
	path         string
	sep          []byte
	matcher      *scan.Matcher
	bufferSize   int
	maxSplitScan int64
	logger       *Logger
	metrics      MetricsCollector
}

// RecordRange is an immutable view of the records in [Start, End) of a mapped
// file. Records are the byte runs between separators; the separator itself is
// not part of a record, and a trailing separator does not start an empty
// record.
//
// A RecordRange is safe for concurrent use. Splitting never copies data: both
// halves share the mapping with their parent.
type RecordRange struct {
	s          *stream
	start, end int64
}

// Open maps the file at path and returns a RecordRange over all of it.
//
// The returned range (and every range derived from it) shares one mapping.
// Call Close on any of them once all, including slices yielded by
// RawRecords, are no longer needed. The mapping is never released
// implicitly.
func Open(path string, optFns ...Option) (*RecordRange, error) {
	o, err := newOptions(DefaultBufferSize, optFns)
	if err != nil {
		return nil, err
	}

	m, _, err := mapFile(path, o)
	if err != nil {
		return nil, err
	}

	matcher, err := scan.NewMatcher(o.separator)
	if err != nil {
		m.Close()
		return nil, err
	}

	s := &stream{
		m:            m,
		path:         path,
		sep:          matcher.Separator(),
		matcher:      matcher,
		bufferSize:   o.bufferSize,
		maxSplitScan: o.maxSplitScan,
		logger:       o.logger,
		metrics:      o.metricsCollector,
	}

	return &RecordRange{s: s, start: 0, end: m.Size()}, nil
}

// boundary returns the offset just past the first separator that lies
// entirely inside [from, end).
func (s *stream) boundary(from, end int64) (int64, bool, error) {
	pos, ok, err := s.matcher.Clone().ViewBoundary(s.m, from, end, s.bufferSize)
	if err != nil {
		return 0, false, err
	}

	if ok {
		s.metrics.RecordScan(pos - from)
	} else {
		s.metrics.RecordScan(end - from)
	}
	return pos, ok, nil
}

// bytes returns a zero-copy view of [start, end).
func (s *stream) bytes(start, end int64) ([]byte, error) {
	return s.m.View(start, end-start)
}

func (s *stream) decode(start, end int64) (string, error) {
	b, err := s.bytes(start, end)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", &DecodeError{Offset: start, Length: end - start}
	}
	return string(b), nil
}

// Start returns the absolute offset of the first byte of the range.
func (r *RecordRange) Start() int64 { return r.start }

// End returns the absolute offset one past the last byte of the range.
func (r *RecordRange) End() int64 { return r.end }

// Len returns the size of the range in bytes.
func (r *RecordRange) Len() int64 { return r.end - r.start }

// BufferSize returns the configured scan buffer size.
func (r *RecordRange) BufferSize() int { return r.s.bufferSize }

// Separator returns the record separator.
func (r *RecordRange) Separator() string { return string(r.s.sep) }

// Path returns the path the range was opened from.
func (r *RecordRange) Path() string { return r.s.path }

// Close releases the mapping shared by every range derived from the same
// Open. Using any of them afterwards returns ErrClosed.
func (r *RecordRange) Close() error { return r.s.m.Close() }

// String implements fmt.Stringer.
func (r *RecordRange) String() string {
	return fmt.Sprintf("%s[%d:%d]", r.s.path, r.start, r.end)
}

// first locates the first record: its end (separator excluded) and the
// offset where the next record starts.
func (r *RecordRange) first() (recEnd, next int64, err error) {
	eor, ok, err := r.s.boundary(r.start, r.end)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return r.end, r.end, nil
	}
	return eor - int64(len(r.s.sep)), eor, nil
}

// First returns the first record. If the range holds no separator the whole
// range is the record; an empty range yields "".
func (r *RecordRange) First() (string, error) {
	if r.start == r.end {
		return "", nil
	}
	recEnd, _, err := r.first()
	if err != nil {
		return "", err
	}
	return r.s.decode(r.start, recEnd)
}

// Advance returns the range that follows the first record, or nil when the
// first record is the last one.
func (r *RecordRange) Advance() (*RecordRange, error) {
	if r.start == r.end {
		return nil, nil
	}
	_, next, err := r.first()
	if err != nil {
		return nil, err
	}
	if next >= r.end {
		return nil, nil
	}
	return &RecordRange{s: r.s, start: next, end: r.end}, nil
}

// Split divides the range near its midpoint. See SplitAt.
func (r *RecordRange) Split() (left, right *RecordRange, err error) {
	return r.SplitAt(r.start + r.Len()/2)
}

// SplitAt divides the range at the first record boundary b at or after loc.
// A record boundary is an offset just past a complete separator, so if loc
// already starts a record then b == loc. The halves [Start, b) and [b, End)
// partition the range.
//
// The range is unsplittable, and SplitAt returns (nil, nil, nil), when it is
// shorter than the buffer size, when no separator follows loc (within the
// WithMaxSplitScan bound, if any), or when the only boundary is End itself.
func (r *RecordRange) SplitAt(loc int64) (left, right *RecordRange, err error) {
	if loc < r.start || loc > r.end {
		return nil, nil, fmt.Errorf("%w: split at %d outside [%d, %d]", ErrOutOfRange, loc, r.start, r.end)
	}

	b, ok, err := r.splitPoint(loc)
	if err != nil {
		return nil, nil, err
	}

	r.s.metrics.RecordSplit(ok)
	r.s.logger.LogSplit(context.Background(), r.start, r.end, b, ok)

	if !ok {
		return nil, nil, nil
	}
	return &RecordRange{s: r.s, start: r.start, end: b}, &RecordRange{s: r.s, start: b, end: r.end}, nil
}

func (r *RecordRange) splitPoint(loc int64) (int64, bool, error) {
	if r.Len() < int64(r.s.bufferSize) {
		return 0, false, nil
	}

	limit := r.end
	if r.s.maxSplitScan > 0 {
		limit = min(r.end, loc+r.s.maxSplitScan)
	}
	sepLen := int64(len(r.s.sep))

	var (
		b   int64
		ok  bool
		err error
	)
	if r.s.matcher.Overlapping() {
		// Alignment depends on everything before loc: walk records from the
		// start until a boundary reaches loc.
		for pos := r.start; ; pos = b {
			b, ok, err = r.s.boundary(pos, limit)
			if err != nil || !ok || b >= loc {
				break
			}
		}
	} else {
		// A separator ending exactly at loc still counts.
		b, ok, err = r.s.boundary(max(r.start, loc-sepLen), limit)
	}
	if err != nil {
		return 0, false, err
	}

	if !ok || b >= r.end {
		return 0, false, nil
	}
	return b, true, nil
}

// walk calls fn with the [start, end) span of every record until fn returns
// false.
func (r *RecordRange) walk(fn func(start, end int64) bool) error {
	for pos := r.start; pos < r.end; {
		eor, ok, err := r.s.boundary(pos, r.end)
		if err != nil {
			return err
		}

		recEnd, next := r.end, r.end
		if ok {
			recEnd, next = eor-int64(len(r.s.sep)), eor
		}
		if !fn(pos, recEnd) {
			return nil
		}
		pos = next
	}
	return nil
}

// Records returns an iterator over the records of the range. Iteration stops
// at the first error, which is yielded with an empty record.
func (r *RecordRange) Records() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var decodeErr error
		err := r.walk(func(start, end int64) bool {
			rec, err := r.s.decode(start, end)
			if err != nil {
				decodeErr = err
				return false
			}
			return yield(rec, nil)
		})
		if err == nil {
			err = decodeErr
		}
		if err != nil {
			yield("", err)
		}
	}
}

// RawRecords is like Records but yields the undecoded bytes of each record.
// The slices alias the mapping when a record lies inside one window; they
// must not be modified and are only valid until Close.
func (r *RecordRange) RawRecords() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		var viewErr error
		err := r.walk(func(start, end int64) bool {
			b, err := r.s.bytes(start, end)
			if err != nil {
				viewErr = err
				return false
			}
			return yield(b, nil)
		})
		if err == nil {
			err = viewErr
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

// All returns every record of the range. An empty range yields an empty,
// non-nil slice.
func (r *RecordRange) All() ([]string, error) {
	out := []string{}
	for rec, err := range r.Records() {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Count returns the number of records without decoding them.
func (r *RecordRange) Count() (int, error) {
	n := 0
	err := r.walk(func(int64, int64) bool {
		n++
		return true
	})
	return n, err
}
