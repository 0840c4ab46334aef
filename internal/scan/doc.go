// Package scan finds record boundaries for a fixed, possibly multi-byte
// separator in byte streams that arrive one buffer at a time.
//
// A Matcher keeps its partial-match state between Feed calls, so a separator
// split across two buffer refills is detected exactly once without re-reading
// consumed bytes.
package scan
