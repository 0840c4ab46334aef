package fold

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/mmseq"
	"github.com/hupe1980/mmseq/resource"
	"github.com/hupe1980/mmseq/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openVector(t *testing.T, content string, opts ...mmseq.Option) *mmseq.LineVector {
	t.Helper()
	v, err := mmseq.OpenIndexed(testutil.WriteFile(t, "data.txt", content), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestSelectLines(t *testing.T) {
	content, want := corpus(10, 5000)
	v := openVector(t, content, mmseq.WithBucketSize(7))

	pred := func(line string) bool { return strings.Contains(line, "a") }

	bm, err := SelectLines(context.Background(), v, pred,
		func(o *Options) { o.Controller = resource.NewController(resource.Config{MaxWorkers: 3}) },
	)
	require.NoError(t, err)

	var expected []uint32
	for i, line := range want {
		if pred(line) {
			expected = append(expected, uint32(i))
		}
	}
	assert.Equal(t, expected, bm.ToArray())
}

func TestSelectLines_SubRange(t *testing.T) {
	v := openVector(t, "x\ny\nx\nx\ny\nx\n", mmseq.WithBucketSize(2))
	sub, err := v.SubRange(1, 5)
	require.NoError(t, err)

	bm, err := SelectLines(context.Background(), sub, func(l string) bool { return l == "x" })
	require.NoError(t, err)

	// Numbers are relative to the sub-range.
	assert.Equal(t, []uint32{1, 2}, bm.ToArray())
}

func TestSelectLines_MissingLines(t *testing.T) {
	v := openVector(t, "a\n\nb\n\n")

	bm, err := SelectLines(context.Background(), v, func(l string) bool { return l == "" })
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 3}, bm.ToArray())
}

func TestSelectLines_Empty(t *testing.T) {
	v := openVector(t, "")

	bm, err := SelectLines(context.Background(), v, func(string) bool { return true })
	require.NoError(t, err)
	assert.True(t, bm.IsEmpty())

	bm, err = SelectLines(context.Background(), mmseq.Empty, func(string) bool { return true })
	require.NoError(t, err)
	assert.True(t, bm.IsEmpty())
}

func TestSelectLines_Canceled(t *testing.T) {
	content, _ := corpus(11, 2000)
	v := openVector(t, content)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := SelectLines(ctx, v, func(string) bool { return true })
	assert.ErrorIs(t, err, context.Canceled)
}
