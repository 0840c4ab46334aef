package mmseq

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Implementations must be safe for concurrent use: ranges derived from one
// file report from whichever goroutine drives them.
type MetricsCollector interface {
	// RecordOpen is called once per Open or OpenIndexed.
	RecordOpen(size int64, duration time.Duration, err error)

	// RecordScan is called after each separator search with the number of
	// bytes examined.
	RecordScan(bytes int64)

	// RecordSplit is called after each split attempt. ok is false when the
	// range was unsplittable.
	RecordSplit(ok bool)

	// RecordBucketDecode is called whenever a bucket is decoded from the
	// mapping, i.e. on every cache miss.
	RecordBucketDecode(lines int, duration time.Duration)

	// RecordIndexBuild is called after the line index is built or loaded.
	// fromSidecar reports whether the full scan was skipped.
	RecordIndexBuild(lines int, duration time.Duration, fromSidecar bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOpen(int64, time.Duration, error)    {}
func (NoopMetricsCollector) RecordScan(int64)                          {}
func (NoopMetricsCollector) RecordSplit(bool)                          {}
func (NoopMetricsCollector) RecordBucketDecode(int, time.Duration)     {}
func (NoopMetricsCollector) RecordIndexBuild(int, time.Duration, bool) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	OpenCount        atomic.Int64
	OpenErrors       atomic.Int64
	OpenTotalNanos   atomic.Int64
	BytesMapped      atomic.Int64
	ScanCount        atomic.Int64
	BytesScanned     atomic.Int64
	SplitCount       atomic.Int64
	SplitRefused     atomic.Int64
	BucketDecodes    atomic.Int64
	LinesDecoded     atomic.Int64
	DecodeTotalNanos atomic.Int64
	IndexBuilds      atomic.Int64
	IndexLoads       atomic.Int64
	IndexTotalNanos  atomic.Int64
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(size int64, duration time.Duration, err error) {
	b.OpenCount.Add(1)
	b.OpenTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.OpenErrors.Add(1)
		return
	}
	b.BytesMapped.Add(size)
}

// RecordScan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScan(bytes int64) {
	b.ScanCount.Add(1)
	b.BytesScanned.Add(bytes)
}

// RecordSplit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSplit(ok bool) {
	if ok {
		b.SplitCount.Add(1)
	} else {
		b.SplitRefused.Add(1)
	}
}

// RecordBucketDecode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBucketDecode(lines int, duration time.Duration) {
	b.BucketDecodes.Add(1)
	b.LinesDecoded.Add(int64(lines))
	b.DecodeTotalNanos.Add(duration.Nanoseconds())
}

// RecordIndexBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIndexBuild(_ int, duration time.Duration, fromSidecar bool) {
	if fromSidecar {
		b.IndexLoads.Add(1)
	} else {
		b.IndexBuilds.Add(1)
	}
	b.IndexTotalNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OpenCount:      b.OpenCount.Load(),
		OpenErrors:     b.OpenErrors.Load(),
		OpenAvgNanos:   avg(b.OpenTotalNanos.Load(), b.OpenCount.Load()),
		BytesMapped:    b.BytesMapped.Load(),
		ScanCount:      b.ScanCount.Load(),
		BytesScanned:   b.BytesScanned.Load(),
		SplitCount:     b.SplitCount.Load(),
		SplitRefused:   b.SplitRefused.Load(),
		BucketDecodes:  b.BucketDecodes.Load(),
		LinesDecoded:   b.LinesDecoded.Load(),
		DecodeAvgNanos: avg(b.DecodeTotalNanos.Load(), b.BucketDecodes.Load()),
		IndexBuilds:    b.IndexBuilds.Load(),
		IndexLoads:     b.IndexLoads.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OpenCount      int64
	OpenErrors     int64
	OpenAvgNanos   int64
	BytesMapped    int64
	ScanCount      int64
	BytesScanned   int64
	SplitCount     int64
	SplitRefused   int64
	BucketDecodes  int64
	LinesDecoded   int64
	DecodeAvgNanos int64
	IndexBuilds    int64
	IndexLoads     int64
}
