package mmseq_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/mmseq"
)

func writeExample(content string) (string, func()) {
	dir, err := os.MkdirTemp("", "mmseq-example")
	if err != nil {
		log.Fatal(err)
	}
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Fatal(err)
	}
	return path, func() { os.RemoveAll(dir) }
}

// ExampleOpen demonstrates a balanced, record-aligned split.
func ExampleOpen() {
	path, cleanup := writeExample("a\nbb\nccc\nd")
	defer cleanup()

	r, err := mmseq.Open(path, mmseq.WithBufferSize(4))
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	left, right, err := r.Split()
	if err != nil {
		log.Fatal(err)
	}

	l, _ := left.All()
	rr, _ := right.All()
	fmt.Println(l, rr)
	// Output: [a bb] [ccc d]
}

// ExampleRecordRange_Records demonstrates lazy iteration with a multi-byte
// separator.
func ExampleRecordRange_Records() {
	path, cleanup := writeExample("GET /\r\nPOST /login\r\nGET /health\r\n")
	defer cleanup()

	r, err := mmseq.Open(path, mmseq.WithSeparator("\r\n"))
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	for rec, err := range r.Records() {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(rec)
	}
	// Output:
	// GET /
	// POST /login
	// GET /health
}

// ExampleChunkBatcher demonstrates batch-wise iteration.
func ExampleChunkBatcher() {
	path, cleanup := writeExample("aaaa\nbb\ncccccc\nd\n")
	defer cleanup()

	r, err := mmseq.Open(path, mmseq.WithBufferSize(6))
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	for batch, err := range r.Chunks().Batches() {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(batch)
	}
	// Output:
	// [aaaa bb]
	// [cccccc]
	// [d]
}

// ExampleOpenIndexed demonstrates random access and numbered sub-ranges.
func ExampleOpenIndexed() {
	path, cleanup := writeExample("zero\none\n\nthree\nfour\n")
	defer cleanup()

	v, err := mmseq.OpenIndexed(path, mmseq.WithBucketSize(2))
	if err != nil {
		log.Fatal(err)
	}
	defer v.Close()

	line, ok, _ := v.Nth(3)
	fmt.Println(v.Len(), line, ok)

	_, ok, _ = v.Nth(2)
	fmt.Println("line 2 present:", ok)

	tail, _ := v.SubRange(1, 4)
	for line := range mmseq.Numbered(tail, ": ").Lines() {
		fmt.Println(line)
	}
	// Output:
	// 5 three true
	// line 2 present: false
	// 1: one
	// 2
	// 3: three
}
