package mmap

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// DefaultWindowSize is the largest span covered by a single mapping window.
const DefaultWindowSize int64 = 1 << 30

// Mapping represents a read-only memory-mapped file split into one or more
// contiguous windows. Offsets are absolute; the window layout is hidden from
// callers.
type Mapping struct {
	size       int64
	windowSize int64
	ws         *windowSet
	closed     atomic.Bool
}

// windowSet owns the mapped memory and the file handle. Views handed out by
// View alias its windows, so it is only released by an explicit Close.
type windowSet struct {
	once    sync.Once
	windows []window
	file    File
	err     error
}

// File is the subset of *os.File needed to map a file.
type File interface {
	Fd() uintptr
	Stat() (os.FileInfo, error)
	Close() error
}

type window struct {
	data  []byte
	unmap func([]byte) error
}

// Options configures Open.
type Options struct {
	// WindowSize bounds each mapping window. It must be a positive multiple
	// of Granularity(). Zero selects DefaultWindowSize.
	WindowSize int64
}

// Open maps the file at path into memory as read-only.
func Open(path string, optFns ...func(o *Options)) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	m, err := FromFile(f, optFns...)
	if err != nil {
		f.Close()
		return nil, err
	}

	return m, nil
}

// FromFile maps an already opened file. On success the Mapping takes
// ownership of f and closes it on Close.
func FromFile(f File, optFns ...func(o *Options)) (*Mapping, error) {
	opts := Options{WindowSize: DefaultWindowSize}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.WindowSize == 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.WindowSize < 0 || opts.WindowSize%Granularity() != 0 {
		return nil, ErrInvalidWindow
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size < 0 {
		return nil, ErrInvalidSize
	}

	ws := &windowSet{file: f}
	fd := f.Fd()
	for pos := int64(0); pos < size; pos += opts.WindowSize {
		n := min(size-pos, opts.WindowSize)

		data, unmapFunc, err := osMap(fd, pos, int(n))
		if err != nil {
			// The caller still owns f on failure.
			ws.file = nil
			ws.release()
			return nil, err
		}
		ws.windows = append(ws.windows, window{data: data, unmap: unmapFunc})
	}

	m := &Mapping{
		size:       size,
		windowSize: opts.WindowSize,
		ws:         ws,
	}
	return m, nil
}

func (ws *windowSet) release() error {
	ws.once.Do(func() {
		for _, w := range ws.windows {
			if w.unmap != nil && w.data != nil {
				if err := w.unmap(w.data); err != nil && ws.err == nil {
					ws.err = err
				}
			}
		}
		ws.windows = nil
		if ws.file != nil {
			if err := ws.file.Close(); err != nil && ws.err == nil {
				ws.err = err
			}
		}
	})
	return ws.err
}

// Close unmaps every window and closes the file. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil // Already closed
	}
	return m.ws.release()
}

// Size returns the size of the mapped file in bytes.
func (m *Mapping) Size() int64 {
	return m.size
}

// WindowSize returns the configured window limit.
func (m *Mapping) WindowSize() int64 {
	return m.windowSize
}

// NumWindows returns the number of mapping windows.
func (m *Mapping) NumWindows() int {
	if m.closed.Load() {
		return 0
	}
	return len(m.ws.windows)
}

// locate translates an absolute offset into (window index, window offset).
func (m *Mapping) locate(off int64) (int, int64) {
	return int(off / m.windowSize), off % m.windowSize
}

// ReadAt implements io.ReaderAt. Reads may cross window boundaries; no
// positional state is shared between callers, so concurrent use is safe.
func (m *Mapping) ReadAt(p []byte, off int64) (n int, err error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= m.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	for n < len(p) && off < m.size {
		idx, woff := m.locate(off)
		c := copy(p[n:], m.ws.windows[idx].data[woff:])
		n += c
		off += int64(c)
	}

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// View returns the bytes [off, off+n). When the span lies inside a single
// window the slice aliases the mapping and is only valid until Close.
// Otherwise the bytes are copied.
func (m *Mapping) View(off, n int64) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if off < 0 || n < 0 || off+n > m.size {
		return nil, ErrOutOfBounds
	}
	if n == 0 {
		return []byte{}, nil
	}

	idx, woff := m.locate(off)
	if woff+n <= int64(len(m.ws.windows[idx].data)) {
		return m.ws.windows[idx].data[woff : woff+n : woff+n], nil
	}

	buf := make([]byte, n)
	if _, err := m.ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	for _, w := range m.ws.windows {
		if err := osAdvise(w.data, pattern); err != nil {
			return err
		}
	}
	return nil
}
