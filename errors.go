package mmseq

import (
	"errors"
	"fmt"

	"github.com/hupe1980/mmseq/internal/lineindex"
	"github.com/hupe1980/mmseq/internal/mmap"
)

var (
	// ErrOutOfRange is returned when a line index or sub-range falls outside a vector.
	ErrOutOfRange = errors.New("index out of range")

	// ErrDecode is returned when record bytes are not valid UTF-8.
	ErrDecode = errors.New("invalid UTF-8 in record")

	// ErrInvalidOption is returned by Open and OpenIndexed for a bad option value.
	ErrInvalidOption = errors.New("invalid option")

	// ErrClosed is returned when reading from a closed file.
	ErrClosed = mmap.ErrClosed

	// ErrInvalidIndex is returned when the line index does not describe the
	// mapped data, e.g. after the file was modified while open.
	ErrInvalidIndex = lineindex.ErrInvalidIndex
)

// RangeError reports an index (or sub-range) outside [0, Len).
//
// It matches ErrOutOfRange via errors.Is.
type RangeError struct {
	Op    string // "nth", "subrange" or "bucket"
	Start int
	End   int // equal to Start for single-index operations
	Len   int
}

func (e *RangeError) Error() string {
	if e.Start == e.End {
		return fmt.Sprintf("%s: index %d out of range [0, %d)", e.Op, e.Start, e.Len)
	}
	return fmt.Sprintf("%s: [%d, %d) out of range [0, %d]", e.Op, e.Start, e.End, e.Len)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// DecodeError reports a record whose bytes are not valid UTF-8.
//
// It matches ErrDecode via errors.Is.
type DecodeError struct {
	Offset int64
	Length int64
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid UTF-8 in record at offset %d (%d bytes)", e.Offset, e.Length)
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// OptionError reports an invalid option value.
//
// It matches ErrInvalidOption via errors.Is; the underlying cause (if any)
// is reachable too.
type OptionError struct {
	Option string
	Value  any
	cause  error
}

func (e *OptionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid option %s=%v: %v", e.Option, e.Value, e.cause)
	}
	return fmt.Sprintf("invalid option %s=%v", e.Option, e.Value)
}

func (e *OptionError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrInvalidOption, e.cause}
	}
	return []error{ErrInvalidOption}
}
