// Package mmap provides read-only, windowed memory-mapped file access.
//
// # Overview
//
// A single mapping cannot always span a whole file, so a Mapping covers the
// file with contiguous windows of at most WindowSize bytes. Absolute offsets
// translate to (offset / WindowSize, offset % WindowSize); a read that crosses
// a window boundary is stitched from consecutive windows.
//
// # Usage
//
//	m, err := mmap.Open("events.log")
//	if err != nil { ... }
//	defer m.Close()
//
//	buf := make([]byte, 4096)
//	n, err := m.ReadAt(buf, offset)
//
//	// Zero-copy when the span lies in one window
//	b, _ := m.View(offset, 128)
//
//	m.Advise(mmap.AccessSequential)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (madvise is a no-op)
//
// # Thread Safety
//
// Reads take an explicit offset and never mutate shared state, so a Mapping
// can be read from any number of goroutines without locking. Close is
// idempotent. Callers must ensure no goroutine reads after Close returns.
// Mappings are never released implicitly: slices returned by View may outlive
// the Mapping value itself, so an unclosed Mapping stays mapped until the
// process exits.
package mmap
