package lineindex

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/mmseq/internal/scan"
)

// DefaultBufferSize is the read granularity of Build.
const DefaultBufferSize = 4096

// ErrInvalidIndex is returned when an index violates its invariants.
var ErrInvalidIndex = errors.New("lineindex: invalid index")

// Index is a sparse line-offset index.
type Index struct {
	// Offsets holds one entry per bucket start plus the end-of-file sentinel.
	Offsets    []int64
	Lines      int
	BucketSize int
}

// Buckets returns the number of buckets.
func (idx *Index) Buckets() int {
	return max(len(idx.Offsets)-1, 0)
}

// Span returns the byte range [start, end) of bucket b.
func (idx *Index) Span(b int) (start, end int64) {
	return idx.Offsets[b], idx.Offsets[b+1]
}

// Build scans r once and indexes every bucketSize-th separator.
//
// A trailing segment after the last separator counts as a line; an empty
// input has no lines.
func Build(r io.ReaderAt, size int64, sep []byte, bucketSize int, buf []byte) (*Index, error) {
	if bucketSize <= 0 {
		return nil, fmt.Errorf("%w: bucket size %d", ErrInvalidIndex, bucketSize)
	}

	m, err := scan.NewMatcher(sep)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		buf = make([]byte, DefaultBufferSize)
	}

	offsets := []int64{0}
	lines := 0
	lastEnd := int64(0) // offset just past the most recent separator

	for pos := int64(0); pos < size; {
		n := int(min(size-pos, int64(len(buf))))
		got, err := r.ReadAt(buf[:n], pos)
		if err != nil && !(errors.Is(err, io.EOF) && got == n) {
			return nil, err
		}

		chunk := buf[:n]
		for base := 0; base < n; {
			i, ok := m.Feed(chunk[base:])
			if !ok {
				break
			}
			base += i
			lines++
			lastEnd = pos + int64(base)
			if lines%bucketSize == 0 {
				offsets = append(offsets, lastEnd)
			}
		}
		pos += int64(n)
	}

	if lastEnd != size {
		lines++
	}
	if offsets[len(offsets)-1] != size {
		offsets = append(offsets, size)
	}

	return &Index{Offsets: offsets, Lines: lines, BucketSize: bucketSize}, nil
}

// Validate checks the structural invariants against a file of the given size.
func (idx *Index) Validate(size int64) error {
	if idx.BucketSize <= 0 || idx.Lines < 0 || len(idx.Offsets) == 0 {
		return ErrInvalidIndex
	}
	if idx.Offsets[0] != 0 || idx.Offsets[len(idx.Offsets)-1] != size {
		return fmt.Errorf("%w: bounds", ErrInvalidIndex)
	}
	for i := 1; i < len(idx.Offsets); i++ {
		if idx.Offsets[i] < idx.Offsets[i-1] {
			return fmt.Errorf("%w: offsets decrease at %d", ErrInvalidIndex, i)
		}
	}
	want := (idx.Lines+idx.BucketSize-1)/idx.BucketSize + 1
	if len(idx.Offsets) != want {
		return fmt.Errorf("%w: %d offsets for %d lines", ErrInvalidIndex, len(idx.Offsets), idx.Lines)
	}
	return nil
}
