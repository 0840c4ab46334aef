// Package lineindex builds and persists sparse line-offset indexes.
//
// An Index records the byte offset of the first line of every bucket of
// BucketSize lines, bounded by a leading 0 and a trailing end-of-file
// sentinel. Building it is the only linear pass over a file; afterwards a line
// is located by one division and one bucket decode.
//
// Indexes can be saved next to the data file (a "sidecar") so a later open
// skips the scan. The sidecar stores the data file's size and modification
// time and is ignored when either no longer matches.
package lineindex
