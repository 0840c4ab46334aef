package scan

import (
	"bytes"
	"errors"
	"io"
)

// ErrEmptySeparator is returned when a Matcher is built for an empty separator.
var ErrEmptySeparator = errors.New("scan: separator must not be empty")

// Matcher is a streaming single-pattern matcher.
//
// State counts how many leading separator bytes match the bytes ending at the
// current position. Mismatches fall back along the prefix function instead of
// restarting at zero, so overlapping prefixes ("\r\r\n" for "\r\n") are not
// missed.
type Matcher struct {
	sep   []byte
	fail  []int
	state int
}

// NewMatcher builds a matcher for sep. The separator is copied.
func NewMatcher(sep []byte) (*Matcher, error) {
	if len(sep) == 0 {
		return nil, ErrEmptySeparator
	}

	s := bytes.Clone(sep)
	fail := make([]int, len(s))
	for i, k := 1, 0; i < len(s); i++ {
		for k > 0 && s[i] != s[k] {
			k = fail[k-1]
		}
		if s[i] == s[k] {
			k++
		}
		fail[i] = k
	}

	return &Matcher{sep: s, fail: fail}, nil
}

// Clone returns a matcher for the same separator with no partial match. The
// prefix table is shared, so cloning is cheap and clones may run in parallel.
func (m *Matcher) Clone() *Matcher {
	return &Matcher{sep: m.sep, fail: m.fail}
}

// Overlapping reports whether a separator occurrence can overlap another one
// ("--" in "---"). For such separators a match found by scanning from an
// arbitrary offset may be misaligned with a scan from the record start.
func (m *Matcher) Overlapping() bool {
	return m.fail[len(m.fail)-1] > 0
}

// Separator returns the pattern the matcher looks for.
func (m *Matcher) Separator() []byte { return m.sep }

// State returns the number of separator bytes currently matched.
func (m *Matcher) State() int { return m.state }

// Reset clears any partial match.
func (m *Matcher) Reset() { m.state = 0 }

// Feed scans buf and returns the index just past the first completed
// separator. When no separator completes inside buf it returns (len(buf),
// false) and keeps the partial match for the next call. After a hit the
// matcher is reset, so the next Feed starts a fresh record.
func (m *Matcher) Feed(buf []byte) (int, bool) {
	// Fast path for the common single-byte separator.
	if len(m.sep) == 1 {
		if i := bytes.IndexByte(buf, m.sep[0]); i >= 0 {
			return i + 1, true
		}
		return len(buf), false
	}

	k := m.state
	for i, b := range buf {
		for k > 0 && b != m.sep[k] {
			k = m.fail[k-1]
		}
		if b == m.sep[k] {
			k++
		}
		if k == len(m.sep) {
			m.state = 0
			return i + 1, true
		}
	}
	m.state = k
	return len(buf), false
}

const defaultStep = 4096

// Viewer is implemented by sources that can hand out their bytes without
// copying, such as a memory mapping.
type Viewer interface {
	View(off, n int64) ([]byte, error)
}

// NextBoundary scans r from `from` up to `end` in len(buf)-sized steps and
// returns the absolute offset just past the first complete separator. The
// matcher state is reset first; the search never matches bytes before from.
//
// When r implements Viewer the scan is delegated to ViewBoundary and buf only
// sets the step size.
func (m *Matcher) NextBoundary(r io.ReaderAt, from, end int64, buf []byte) (int64, bool, error) {
	if v, ok := r.(Viewer); ok {
		return m.ViewBoundary(v, from, end, len(buf))
	}

	m.Reset()
	if len(buf) == 0 {
		buf = make([]byte, defaultStep)
	}

	for pos := from; pos < end; {
		n := int(min(end-pos, int64(len(buf))))
		got, err := r.ReadAt(buf[:n], pos)
		if err != nil && !(errors.Is(err, io.EOF) && got == n) {
			return 0, false, err
		}
		if i, ok := m.Feed(buf[:n]); ok {
			return pos + int64(i), true, nil
		}
		pos += int64(n)
	}

	return 0, false, nil
}

// ViewBoundary is NextBoundary over zero-copy views of at most step bytes.
// It allocates no scratch buffer.
func (m *Matcher) ViewBoundary(v Viewer, from, end int64, step int) (int64, bool, error) {
	m.Reset()
	if step <= 0 {
		step = defaultStep
	}

	for pos := from; pos < end; {
		n := min(end-pos, int64(step))
		chunk, err := v.View(pos, n)
		if err != nil {
			return 0, false, err
		}
		if i, ok := m.Feed(chunk); ok {
			return pos + int64(i), true, nil
		}
		pos += n
	}

	return 0, false, nil
}

// Split cuts data on every separator occurrence. When keepTrailing is set a
// separator at the very end yields a final empty element, as does an empty
// input; otherwise neither does.
func (m *Matcher) Split(data []byte, keepTrailing bool) [][]byte {
	if len(data) == 0 {
		if keepTrailing {
			return [][]byte{{}}
		}
		return nil
	}

	var out [][]byte
	m.Reset()
	start := 0
	for start < len(data) {
		i, ok := m.Feed(data[start:])
		if !ok {
			break
		}
		out = append(out, data[start:start+i-len(m.sep)])
		start += i
	}
	m.Reset()

	if start < len(data) || keepTrailing {
		out = append(out, data[start:])
	}
	return out
}
