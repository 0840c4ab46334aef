// Package testutil provides testing utilities for mmseq.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random line corpora, writing them to
// temporary files, and computing the expected records with a plain
// in-memory split.
//
// # Random Corpora
//
//	rng := testutil.NewRNG(seed)
//	lines := rng.Lines(1000, 0, 80)          // lengths in [0, 80]
//	content := testutil.Join(lines, "\r\n", true)
//
// # Ground Truth
//
//	want := testutil.SplitRecords(content, "\r\n")
package testutil
