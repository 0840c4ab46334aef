package fold

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/mmseq"
	"github.com/hupe1980/mmseq/resource"
	"github.com/hupe1980/mmseq/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRange(t *testing.T, content string, opts ...mmseq.Option) *mmseq.RecordRange {
	t.Helper()
	r, err := mmseq.Open(testutil.WriteFile(t, "data.txt", content), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func corpus(seed int64, lines int) (string, []string) {
	content := testutil.Join(testutil.NewRNG(seed).Lines(lines, 0, 40), "\n", true)
	return content, testutil.SplitRecords(content, "\n")
}

func TestCount(t *testing.T) {
	content, want := corpus(1, 3000)
	r := openRange(t, content, mmseq.WithBufferSize(256))

	n, err := Count(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
}

func TestReduce_PreservesOrder(t *testing.T) {
	content, want := corpus(2, 2000)
	r := openRange(t, content, mmseq.WithBufferSize(128))

	got, err := Reduce(context.Background(), r,
		func(_ context.Context, leaf *mmseq.RecordRange) ([]string, error) { return leaf.All() },
		func(a, b []string) []string { return slices.Concat(a, b) },
		func(o *Options) { o.Controller = resource.NewController(resource.Config{MaxWorkers: 4}) },
	)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRecords(t *testing.T) {
	content, want := corpus(3, 1000)
	r := openRange(t, content, mmseq.WithBufferSize(64))

	total, err := Records(context.Background(), r,
		func() int { return 0 },
		func(acc int, rec string) int { return acc + len(rec) },
		func(a, b int) int { return a + b },
	)
	require.NoError(t, err)

	expected := 0
	for _, w := range want {
		expected += len(w)
	}
	assert.Equal(t, expected, total)
}

func TestForEach_VisitsDisjointLeaves(t *testing.T) {
	content, _ := corpus(4, 1000)
	r := openRange(t, content, mmseq.WithBufferSize(512))

	var (
		mu     sync.Mutex
		leaves [][2]int64
	)
	err := ForEach(context.Background(), r, func(_ context.Context, leaf *mmseq.RecordRange) error {
		mu.Lock()
		defer mu.Unlock()
		leaves = append(leaves, [2]int64{leaf.Start(), leaf.End()})
		return nil
	})
	require.NoError(t, err)

	slices.SortFunc(leaves, func(a, b [2]int64) int { return int(a[0] - b[0]) })
	require.NotEmpty(t, leaves)
	assert.Greater(t, len(leaves), 1)
	assert.Equal(t, int64(0), leaves[0][0])
	for i := 1; i < len(leaves); i++ {
		assert.Equal(t, leaves[i-1][1], leaves[i][0])
	}
	assert.Equal(t, r.End(), leaves[len(leaves)-1][1])
}

func TestReduce_WorkerLimit(t *testing.T) {
	content, _ := corpus(5, 2000)
	r := openRange(t, content, mmseq.WithBufferSize(256))

	var running, peak atomic.Int64
	rc := resource.NewController(resource.Config{MaxWorkers: 2})

	err := ForEach(context.Background(), r, func(context.Context, *mmseq.RecordRange) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		return nil
	}, func(o *Options) { o.Controller = rc })
	require.NoError(t, err)

	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestReduce_ErrorCancels(t *testing.T) {
	content, _ := corpus(6, 2000)
	r := openRange(t, content, mmseq.WithBufferSize(128))

	boom := errors.New("boom")
	err := ForEach(context.Background(), r, func(ctx context.Context, leaf *mmseq.RecordRange) error {
		if leaf.Start() == 0 {
			return boom
		}
		return ctx.Err()
	})
	assert.ErrorIs(t, err, boom)
}

func TestReduce_Canceled(t *testing.T) {
	content, _ := corpus(7, 100)
	r := openRange(t, content)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Count(ctx, r)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReduce_DecodeError(t *testing.T) {
	r := openRange(t, strings.Repeat("ok\n", 100)+"b\xffd\n"+strings.Repeat("ok\n", 100), mmseq.WithBufferSize(32))

	_, err := Records(context.Background(), r,
		func() int { return 0 },
		func(acc int, _ string) int { return acc + 1 },
		func(a, b int) int { return a + b },
	)
	assert.ErrorIs(t, err, mmseq.ErrDecode)
}

func TestReduce_IOLimit(t *testing.T) {
	content, want := corpus(8, 200)
	r := openRange(t, content, mmseq.WithBufferSize(256))

	rc := resource.NewController(resource.Config{MaxWorkers: 4, ReadBytesPerSec: 1 << 30})
	n, err := Count(context.Background(), r, func(o *Options) { o.Controller = rc })
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
}
