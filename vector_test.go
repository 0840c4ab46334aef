package mmseq

import (
	"bytes"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/mmseq/cache"
	"github.com/hupe1980/mmseq/internal/fs"
	"github.com/hupe1980/mmseq/internal/lineindex"
	"github.com/hupe1980/mmseq/resource"
	"github.com/hupe1980/mmseq/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openVector(t *testing.T, content string, opts ...Option) *LineVector {
	t.Helper()
	v, err := OpenIndexed(testutil.WriteFile(t, "data.txt", content), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func allLines(t *testing.T, seq iter.Seq2[string, error]) []string {
	t.Helper()
	out := []string{}
	for line, err := range seq {
		require.NoError(t, err)
		out = append(out, line)
	}
	return out
}

func TestOpenIndexed_ExampleScenario(t *testing.T) {
	for _, bs := range []int{1, 2, 4, DefaultBucketSize} {
		v := openVector(t, "a\nbb\nccc\nd", WithBucketSize(bs), WithBufferSize(4))

		assert.Equal(t, 4, v.Len())
		line, ok, err := v.Nth(3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "d", line)

		assert.Equal(t, []string{"a", "bb", "ccc", "d"}, allLines(t, v.Lines()))
	}
}

func TestOpenIndexed_EmptyFile(t *testing.T) {
	v := openVector(t, "")

	assert.Equal(t, 0, v.Len())
	assert.Equal(t, []int64{0}, v.Offsets())
	assert.Equal(t, 0, v.Buckets())

	_, _, err := v.Nth(0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestOpenIndexed_Errors(t *testing.T) {
	_, err := OpenIndexed(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := testutil.WriteFile(t, "data.txt", "a\n")
	_, err = OpenIndexed(path, WithBucketSize(0))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = OpenIndexed(path, WithWindowSize(3))
	assert.ErrorIs(t, err, ErrInvalidOption)

	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("data.txt", fs.Fault{FailOnOpen: true, FailAfterBytes: -1})
	_, err = OpenIndexed(path, WithFileSystem(ffs))
	assert.ErrorIs(t, err, fs.ErrInjected)

	var pe *os.PathError
	assert.ErrorAs(t, err, &pe)
}

func TestLineVector_RandomAccessEquivalence(t *testing.T) {
	rng := testutil.NewRNG(4711)

	for _, sep := range []string{"\n", "\r\n", "||"} {
		for _, trailing := range []bool{true, false} {
			content := testutil.Join(rng.Lines(500, 1, 30), sep, trailing)
			want := testutil.SplitRecords(content, sep)

			for _, bs := range []int{1, 3, 10, 64, 1000} {
				t.Run(fmt.Sprintf("%q/trailing=%v/bucket=%d", sep, trailing, bs), func(t *testing.T) {
					v := openVector(t, content, WithSeparator(sep), WithBucketSize(bs), WithBufferSize(5))
					require.Equal(t, len(want), v.Len())

					// Random order defeats the single-slot cache.
					for range 300 {
						i := rng.Intn(v.Len())
						line, ok, err := v.Nth(i)
						require.NoError(t, err)
						assert.True(t, ok)
						assert.Equal(t, want[i], line, "line %d", i)
					}
					assert.Equal(t, want, allLines(t, v.Lines()))
				})
			}
		}
	}
}

func TestLineVector_Offsets(t *testing.T) {
	rng := testutil.NewRNG(5)
	content := testutil.Join(rng.Lines(101, 0, 20), "\n", false)
	lines := len(testutil.SplitRecords(content, "\n"))

	for _, bs := range []int{1, 7, 10, 101, 500} {
		v := openVector(t, content, WithBucketSize(bs))
		off := v.Offsets()

		assert.Equal(t, int64(0), off[0])
		assert.Equal(t, int64(len(content)), off[len(off)-1])
		assert.Len(t, off, (lines+bs-1)/bs+1)
		for i := 1; i < len(off); i++ {
			assert.LessOrEqual(t, off[i-1], off[i])
		}

		// A copy: mutating it does not affect the vector.
		off[0] = 99
		assert.Equal(t, int64(0), v.Offsets()[0])
	}
}

func TestLineVector_MissingLines(t *testing.T) {
	v := openVector(t, "a\n\nc\n\n", WithBucketSize(2))
	require.Equal(t, 4, v.Len())

	line, ok, err := v.Nth(1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, line)

	got, err := v.NthOr(1, "<none>")
	require.NoError(t, err)
	assert.Equal(t, "<none>", got)

	got, err = v.NthOr(2, "<none>")
	require.NoError(t, err)
	assert.Equal(t, "c", got)

	_, ok, err = v.Nth(3)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "", "c", ""}, allLines(t, v.Lines()))
}

func TestLineVector_OutOfRange(t *testing.T) {
	v := openVector(t, "a\nb\n")

	for _, i := range []int{-1, 2, 100} {
		_, _, err := v.Nth(i)
		require.ErrorIs(t, err, ErrOutOfRange)

		var re *RangeError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, i, re.Start)
		assert.Equal(t, 2, re.Len)
	}

	_, err := v.NthOr(5, "x")
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestLineVector_SubRange(t *testing.T) {
	content := "l0\nl1\nl2\nl3\nl4\nl5\nl6\nl7\nl8\nl9\n"
	v := openVector(t, content, WithBucketSize(3))

	sub, err := v.SubRange(2, 8)
	require.NoError(t, err)
	assert.Equal(t, 6, sub.Len())
	assert.Equal(t, 2, sub.Origin())
	assert.Equal(t, []string{"l2", "l3", "l4", "l5", "l6", "l7"}, allLines(t, sub.Lines()))

	for i := range sub.Len() {
		a, _, err := sub.Nth(i)
		require.NoError(t, err)
		b, _, err := v.Nth(i + 2)
		require.NoError(t, err)
		assert.Equal(t, b, a)
	}

	nested, err := sub.SubRange(1, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, nested.Origin())
	assert.Same(t, v.base, nested.base, "nesting collapses onto the base")
	assert.Equal(t, []string{"l3", "l4", "l5"}, allLines(t, nested.Lines()))

	_, _, err = nested.Nth(3)
	assert.ErrorIs(t, err, ErrOutOfRange)

	empty, err := sub.SubRange(4, 4)
	require.NoError(t, err)
	assert.Same(t, Empty, empty)
	assert.Equal(t, 0, empty.Len())

	full, err := v.SubRange(0, v.Len())
	require.NoError(t, err)
	assert.Equal(t, v.Len(), full.Len())

	for _, r := range [][2]int{{-1, 2}, {3, 2}, {0, 7}} {
		_, err := sub.SubRange(r[0], r[1])
		assert.ErrorIs(t, err, ErrOutOfRange, "range %v", r)
	}
}

func TestLineVector_BucketLines(t *testing.T) {
	rng := testutil.NewRNG(21)
	content := testutil.Join(rng.Lines(95, 0, 12), "\n", true)
	want := testutil.SplitRecords(content, "\n")

	v := openVector(t, content, WithBucketSize(10))

	for _, span := range [][2]int{{0, 95}, {0, 10}, {5, 5 + 1}, {13, 77}, {90, 95}} {
		sub, err := v.SubRange(span[0], span[1])
		require.NoError(t, err)

		var got []string
		next := 0
		for b := range sub.Buckets() {
			first, lines, err := sub.BucketLines(b)
			require.NoError(t, err)
			assert.Equal(t, next, first)
			next += len(lines)
			got = append(got, lines...)
		}
		assert.Equal(t, want[span[0]:span[1]], got, "span %v", span)
	}

	_, _, err := v.BucketLines(v.Buckets())
	assert.ErrorIs(t, err, ErrOutOfRange)

	// Bulk access leaves the shared cache alone.
	hits, misses := v.CacheStats()
	assert.Zero(t, hits+misses)
}

func TestLineVector_BucketCaches(t *testing.T) {
	rng := testutil.NewRNG(8)
	content := testutil.Join(rng.Lines(200, 1, 20), "\n", true)
	want := testutil.SplitRecords(content, "\n")

	factories := map[string]cache.Factory{
		"single":  nil,
		"nop":     func() cache.BucketCache { return &cache.Nop{} },
		"lru":     func() cache.BucketCache { return cache.NewLRU(1<<20, nil) },
		"sharded": func() cache.BucketCache { return cache.NewSharded(1<<20, 4, nil) },
		"admission": func() cache.BucketCache {
			c, err := cache.NewAdmission(1<<20, 100)
			require.NoError(t, err)
			t.Cleanup(c.Close)
			return c
		},
	}

	for name, f := range factories {
		t.Run(name, func(t *testing.T) {
			mc := &BasicMetricsCollector{}
			v := openVector(t, content, WithBucketCache(f), WithMetricsCollector(mc))

			for pass := 0; pass < 2; pass++ {
				for i := range v.Len() {
					line, _, err := v.Nth(i)
					require.NoError(t, err)
					require.Equal(t, want[i], line)
				}
			}

			hits, misses := v.CacheStats()
			assert.Equal(t, int64(2*v.Len()), hits+misses)
			assert.Equal(t, misses, mc.GetStats().BucketDecodes)
		})
	}
}

func TestLineVector_SequentialSingleSlot(t *testing.T) {
	v := openVector(t, testutil.Join(testutil.NewRNG(1).Lines(100, 1, 5), "\n", false), WithBucketSize(10))

	for i := range v.Len() {
		_, _, err := v.Nth(i)
		require.NoError(t, err)
	}

	hits, misses := v.CacheStats()
	assert.Equal(t, int64(10), misses, "one decode per bucket")
	assert.Equal(t, int64(90), hits)
}

func TestLineVector_ConcurrentSubViews(t *testing.T) {
	rng := testutil.NewRNG(13)
	content := testutil.Join(rng.Lines(1000, 0, 40), "\n", true)
	want := testutil.SplitRecords(content, "\n")

	v := openVector(t, content, WithBucketSize(16))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		lo := g * 125
		sub, err := v.SubRange(lo, lo+125)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range sub.Len() {
				line, _, err := sub.Nth(i)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, want[lo+i], line)
			}
		}()
	}
	wg.Wait()
}

func TestLineVector_MultiWindow(t *testing.T) {
	rng := testutil.NewRNG(77)
	content := testutil.Join(rng.Lines(3000, 0, 50), "\r\n", false)
	want := testutil.SplitRecords(content, "\r\n")

	v := openVector(t, content,
		WithSeparator("\r\n"),
		WithWindowSize(int64(os.Getpagesize())),
		WithBucketSize(7),
		WithAccessPattern(AccessRandom),
	)

	assert.Equal(t, want, allLines(t, v.Lines()))
}

func TestLineVector_StaleIndex(t *testing.T) {
	v := openVector(t, "abcdefgh", WithBucketSize(2))
	require.Equal(t, 1, v.Len())

	// An index built for "a\nb\nc\nd\n", which has the same size.
	v.base.idx = &lineindex.Index{Offsets: []int64{0, 4, 8}, Lines: 4, BucketSize: 2}
	v.hi = 4

	_, _, err := v.Nth(1)
	require.ErrorIs(t, err, ErrInvalidIndex)
	assert.NotErrorIs(t, err, ErrOutOfRange)
}

func TestLineVector_ResourceController(t *testing.T) {
	rng := testutil.NewRNG(78)
	content := testutil.Join(rng.Lines(500, 0, 30), "\n", true)

	rc := resource.NewController(resource.Config{ReadBytesPerSec: 1 << 30})
	v := openVector(t, content, WithResourceController(rc), WithBufferSize(64))

	assert.Equal(t, testutil.SplitRecords(content, "\n"), allLines(t, v.Lines()))
}

func TestLineVector_DecodeError(t *testing.T) {
	v := openVector(t, "good\nb\xffd\nok\n", WithBucketSize(1))

	line, _, err := v.Nth(0)
	require.NoError(t, err)
	assert.Equal(t, "good", line)

	_, _, err = v.Nth(1)
	require.ErrorIs(t, err, ErrDecode)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, int64(5), de.Offset)
	assert.Equal(t, int64(3), de.Length)

	line, _, err = v.Nth(2)
	require.NoError(t, err)
	assert.Equal(t, "ok", line)
}

func TestLineVector_Closed(t *testing.T) {
	v, err := OpenIndexed(testutil.WriteFile(t, "data.txt", "a\nb\n"))
	require.NoError(t, err)
	require.NoError(t, v.Close())

	_, _, err = v.Nth(0)
	assert.ErrorIs(t, err, ErrClosed)

	assert.NoError(t, Empty.Close())
}

func TestLineVector_Sidecar(t *testing.T) {
	rng := testutil.NewRNG(31)
	content := testutil.Join(rng.Lines(500, 0, 30), "\n", true)
	want := testutil.SplitRecords(content, "\n")

	dir := t.TempDir()
	data := filepath.Join(dir, "data.txt")
	sidecar := filepath.Join(dir, "data.txt.idx")
	require.NoError(t, os.WriteFile(data, []byte(content), 0o644))

	open := func(opts ...Option) (*LineVector, *BasicMetricsCollector) {
		mc := &BasicMetricsCollector{}
		opts = append([]Option{WithIndexSidecar(sidecar), WithMetricsCollector(mc), WithBucketSize(8)}, opts...)
		v, err := OpenIndexed(data, opts...)
		require.NoError(t, err)
		t.Cleanup(func() { _ = v.Close() })
		return v, mc
	}

	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(comp.String(), func(t *testing.T) {
			require.NoError(t, os.RemoveAll(sidecar))

			v1, mc1 := open(WithIndexCompression(comp))
			assert.Equal(t, int64(1), mc1.GetStats().IndexBuilds)
			_, err := os.Stat(sidecar)
			require.NoError(t, err)

			v2, mc2 := open()
			assert.Equal(t, int64(1), mc2.GetStats().IndexLoads)
			assert.Zero(t, mc2.GetStats().IndexBuilds)
			assert.Equal(t, v1.Offsets(), v2.Offsets())
			assert.Equal(t, want, allLines(t, v2.Lines()))
		})
	}

	t.Run("different bucket size rebuilds", func(t *testing.T) {
		_, mc := open(WithBucketSize(3))
		assert.Equal(t, int64(1), mc.GetStats().IndexBuilds)
	})

	t.Run("corrupt sidecar rebuilds", func(t *testing.T) {
		require.NoError(t, os.WriteFile(sidecar, []byte("garbage"), 0o644))

		var buf bytes.Buffer
		logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		v, mc := open(WithLogger(logger))
		assert.Equal(t, int64(1), mc.GetStats().IndexBuilds)
		assert.Equal(t, want, allLines(t, v.Lines()))
		assert.Contains(t, buf.String(), "sidecar load failed")
	})

	t.Run("changed data rebuilds", func(t *testing.T) {
		open()
		require.NoError(t, os.WriteFile(data, []byte("x\ny\n"), 0o644))

		v, mc := open()
		assert.Equal(t, int64(1), mc.GetStats().IndexBuilds)
		assert.Equal(t, 2, v.Len())
	})

	t.Run("failed save is not fatal", func(t *testing.T) {
		require.NoError(t, os.RemoveAll(sidecar))

		ffs := fs.NewFaultyFS(nil)
		ffs.AddRule(".idx", fs.Fault{FailOnRename: true, FailAfterBytes: -1})

		var buf bytes.Buffer
		logger := NewLogger(slog.NewTextHandler(&buf, nil))

		v, _ := open(WithFileSystem(ffs), WithLogger(logger))
		assert.Positive(t, v.Len())
		assert.Contains(t, buf.String(), "sidecar save failed")

		_, err := os.Stat(sidecar)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
