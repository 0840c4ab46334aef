package mmseq

import (
	"iter"
	"sync"
)

// ChunkBatcher walks a RecordRange in batches of roughly BufferSize bytes.
//
// Each node splits its range at Start+BufferSize on first use and memoizes
// the result: the left half is this node's batch, the right half seeds the
// next node. A range too small to split is the final batch.
type ChunkBatcher struct {
	r *RecordRange

	once        sync.Once
	left, right *RecordRange
	err         error
}

// NewChunkBatcher returns the first batch node of r.
func NewChunkBatcher(r *RecordRange) *ChunkBatcher {
	return &ChunkBatcher{r: r}
}

// Chunks returns the first batch node of r. See ChunkBatcher.
func (r *RecordRange) Chunks() *ChunkBatcher {
	return NewChunkBatcher(r)
}

func (c *ChunkBatcher) split() {
	c.once.Do(func() {
		loc := min(c.r.start+int64(c.r.s.bufferSize), c.r.end)
		c.left, c.right, c.err = c.r.SplitAt(loc)
	})
}

// Range returns the byte range of this node's batch.
func (c *ChunkBatcher) Range() (*RecordRange, error) {
	c.split()
	if c.err != nil {
		return nil, c.err
	}
	if c.left == nil {
		return c.r, nil
	}
	return c.left, nil
}

// First returns the records of this node's batch.
func (c *ChunkBatcher) First() ([]string, error) {
	r, err := c.Range()
	if err != nil {
		return nil, err
	}
	return r.All()
}

// Next returns the node after this one, or nil if this is the last batch.
func (c *ChunkBatcher) Next() (*ChunkBatcher, error) {
	c.split()
	if c.err != nil {
		return nil, c.err
	}
	if c.right == nil {
		return nil, nil
	}
	return NewChunkBatcher(c.right), nil
}

// Batches returns an iterator over this node's batch and all that follow, in
// ascending offset order. An empty range yields no batches.
func (c *ChunkBatcher) Batches() iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		if c.r.Len() == 0 {
			return
		}
		for n := c; n != nil; {
			batch, err := n.First()
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(batch, nil) {
				return
			}
			if n, err = n.Next(); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}
