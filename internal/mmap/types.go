package mmap

import (
	"errors"
	"fmt"
)

// AccessPattern is the madvise hint applied to every window. It is ignored
// on platforms without an equivalent.
type AccessPattern int

const (
	AccessDefault    AccessPattern = iota // no hint
	AccessSequential                      // record streams, index scans
	AccessRandom                          // Nth lookups
	AccessWillNeed                        // prefetch now
	AccessDontNeed                        // drop cached pages
)

func (p AccessPattern) String() string {
	switch p {
	case AccessDefault:
		return "default"
	case AccessSequential:
		return "sequential"
	case AccessRandom:
		return "random"
	case AccessWillNeed:
		return "willneed"
	case AccessDontNeed:
		return "dontneed"
	default:
		return fmt.Sprintf("AccessPattern(%d)", int(p))
	}
}

var (
	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the file reports a negative size.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrOutOfBounds is returned by View for spans past the end of the file.
	ErrOutOfBounds = errors.New("mmap: out of bounds")
	// ErrInvalidOffset is returned for negative offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
	// ErrInvalidWindow is returned when a window size is not a positive
	// multiple of Granularity.
	ErrInvalidWindow = errors.New("mmap: invalid window size")
)
