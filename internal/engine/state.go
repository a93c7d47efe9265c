package engine

import (
	"time"

	"github.com/hupe1980/haystack/record"
)

// State is a snapshot of scan progress.
type State struct {
	// LogicalBytes counts distinct haystack bytes scanned.
	LogicalBytes uint64
	// UpstreamBytes counts input bytes consumed, compressed if the input is.
	UpstreamBytes uint64
	// UpstreamSize is the total input size, -1 if unknown.
	UpstreamSize int64

	Chunks        int
	SkippedChunks int
	PartialReads  int

	Matches         uint64
	Duplicates      uint64
	ContextFailures uint64
	RecordFailures  uint64

	Started time.Time
	Elapsed time.Duration
}

// Result is the outcome of a completed scan.
type Result struct {
	State

	// Events holds the first retained matches in report order. Context bytes
	// are not kept.
	Events []record.Match

	// EventsTruncated reports that more matches occurred than were retained.
	EventsTruncated bool

	// PerNeedle counts matches by needle ID.
	PerNeedle []uint64
}
