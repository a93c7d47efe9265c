package engine

import (
	"context"
	"time"

	"github.com/hupe1980/haystack/needle"
	"github.com/hupe1980/haystack/record"
)

// Sink persists matches.
//
// Emit may set the persistence fields of m (ContextPersisted, ContextPath,
// ContextName). m.Context aliases the chunk buffer and must not be retained.
// Errors wrapping ErrContextWrite or ErrRecordAppend are logged and counted
// by the engine, the latter only unless records are strict. Any other error
// aborts the scan.
type Sink interface {
	Emit(ctx context.Context, n *needle.Needle, m *record.Match) error
	Close() error
}

// Metrics receives per-chunk and per-match measurements.
type Metrics interface {
	RecordChunk(bytes int, duration time.Duration, skipped bool)
	RecordMatch(needleID int)
	RecordFailure(kind Kind, err error)
}

// Observer is notified after every chunk and once when the scan ends.
type Observer interface {
	Observe(ctx context.Context, s State)
	Done(ctx context.Context, s State)
}

// DiscardSink drops every match.
type DiscardSink struct{}

func (DiscardSink) Emit(context.Context, *needle.Needle, *record.Match) error { return nil }
func (DiscardSink) Close() error                                               { return nil }

type noopMetrics struct{}

func (noopMetrics) RecordChunk(int, time.Duration, bool) {}
func (noopMetrics) RecordMatch(int)                      {}
func (noopMetrics) RecordFailure(Kind, error)            {}

type noopObserver struct{}

func (noopObserver) Observe(context.Context, State) {}
func (noopObserver) Done(context.Context, State)    {}
