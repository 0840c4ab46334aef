package mmseq

import (
	"iter"
	"strconv"
)

// Lines is the random-access capability shared by LineVector and Decorated.
type Lines interface {
	Len() int
	Nth(i int) (line string, ok bool, err error)
}

// Transform rewrites line i of a decorated vector. ok reports whether the
// source line is present; the returned bool is the presence of the result.
type Transform func(i int, line string, ok bool) (string, bool)

// Decorated applies a Transform to every line of a source vector.
type Decorated struct {
	src Lines
	fn  Transform
}

// Decorate wraps src with fn.
func Decorate(src Lines, fn Transform) *Decorated {
	return &Decorated{src: src, fn: fn}
}

// Numbered prefixes every line with its line number and delim. A missing
// line becomes the bare number. Numbers count from the start of the file, so
// a numbered sub-range keeps the numbering of the full vector.
func Numbered(src Lines, delim string) *Decorated {
	origin := originOf(src)
	return Decorate(src, func(i int, line string, ok bool) (string, bool) {
		n := strconv.Itoa(origin + i)
		if !ok {
			return n, true
		}
		return n + delim + line, true
	})
}

func originOf(src Lines) int {
	if o, ok := src.(interface{ Origin() int }); ok {
		return o.Origin()
	}
	return 0
}

// Len returns the number of lines of the source.
func (d *Decorated) Len() int { return d.src.Len() }

// Origin returns the origin of the source, or 0 if it has none.
func (d *Decorated) Origin() int { return originOf(d.src) }

// Nth returns the transformed line i.
func (d *Decorated) Nth(i int) (string, bool, error) {
	line, ok, err := d.src.Nth(i)
	if err != nil {
		return "", false, err
	}
	line, ok = d.fn(i, line, ok)
	return line, ok, nil
}

// NthOr returns the transformed line i, or notFound if it is missing.
func (d *Decorated) NthOr(i int, notFound string) (string, error) {
	return nthOr(d, i, notFound)
}

// Lines returns an iterator over the transformed lines.
func (d *Decorated) Lines() iter.Seq2[string, error] {
	return lines(d)
}

func nthOr(l Lines, i int, notFound string) (string, error) {
	line, ok, err := l.Nth(i)
	if err != nil {
		return "", err
	}
	if !ok {
		return notFound, nil
	}
	return line, nil
}

func lines(l Lines) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for i := range l.Len() {
			line, _, err := l.Nth(i)
			if !yield(line, err) || err != nil {
				return
			}
		}
	}
}
