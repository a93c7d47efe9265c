package haystack

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives scan measurements as they happen.
// Implement this interface to feed a monitoring system.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    bytes   prometheus.Counter
//	    matches *prometheus.CounterVec
//	}
//
//	func (p *PrometheusCollector) RecordChunk(bytes int, d time.Duration, skipped bool) {
//	    p.bytes.Add(float64(bytes))
//	}
//
// Calls come from the scanning goroutine and must not block.
type MetricsCollector interface {
	// RecordChunk is called once per chunk with its fresh byte count and the
	// time spent on it. skipped is true for uniform chunks that bypassed the
	// automaton.
	RecordChunk(bytes int, d time.Duration, skipped bool)

	// RecordMatch is called for every reported occurrence.
	RecordMatch(needleID int)

	// RecordFailure is called for every classified error, recoverable or not.
	RecordFailure(kind Kind, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordChunk(int, time.Duration, bool) {}
func (NoopMetricsCollector) RecordMatch(int)                      {}
func (NoopMetricsCollector) RecordFailure(Kind, error)            {}

// BasicMetricsCollector keeps in-memory counters.
// Useful for debugging and tests.
type BasicMetricsCollector struct {
	ChunkCount          atomic.Int64
	SkippedChunks       atomic.Int64
	BytesScanned        atomic.Int64
	ChunkTotalNanos     atomic.Int64
	MatchCount          atomic.Int64
	RecoverableFailures atomic.Int64
	FatalFailures       atomic.Int64
}

// RecordChunk implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunk(bytes int, d time.Duration, skipped bool) {
	b.ChunkCount.Add(1)
	b.BytesScanned.Add(int64(bytes))
	b.ChunkTotalNanos.Add(d.Nanoseconds())
	if skipped {
		b.SkippedChunks.Add(1)
	}
}

// RecordMatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMatch(int) {
	b.MatchCount.Add(1)
}

// RecordFailure implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFailure(kind Kind, _ error) {
	if kind == KindRecoverable {
		b.RecoverableFailures.Add(1)
		return
	}
	b.FatalFailures.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ChunkCount:          b.ChunkCount.Load(),
		SkippedChunks:       b.SkippedChunks.Load(),
		BytesScanned:        b.BytesScanned.Load(),
		ChunkAvgNanos:       b.getAvgChunkNanos(),
		MatchCount:          b.MatchCount.Load(),
		RecoverableFailures: b.RecoverableFailures.Load(),
		FatalFailures:       b.FatalFailures.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgChunkNanos() int64 {
	count := b.ChunkCount.Load()
	if count == 0 {
		return 0
	}
	return b.ChunkTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ChunkCount          int64
	SkippedChunks       int64
	BytesScanned        int64
	ChunkAvgNanos       int64
	MatchCount          int64
	RecoverableFailures int64
	FatalFailures       int64
}
