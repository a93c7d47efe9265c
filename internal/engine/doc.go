// Package engine drives a scan: it pulls chunks from a source, runs the
// compiled needle automaton over each one, translates buffer offsets into
// global offsets, suppresses repeats across chunk boundaries and hands every
// surviving match, with its context window, to a Sink.
//
// Pipeline per chunk:
//
//	source.Next ─▶ uniform check ─▶ automaton.Scan ─▶ dedup ─▶ window ─▶ Sink.Emit
//	                    │                                                     │
//	                    └── skip automaton, report uniform needles ───────────┘
//
// Work is strictly sequential. A chunk's matches are fully emitted before the
// next chunk is requested, because the source reuses its buffer.
//
// # Exactly once
//
// A match is identified by (needle, global start offset). Matches observed in
// the last carry bytes of a chunk are remembered in a roaring64 bitmap per
// needle; in the next chunk, a match inside the carried prefix is reported
// only if that bitmap has not seen it. A pattern that straddled the boundary
// (and so was never complete in the previous chunk) is therefore still
// reported, while one already reported is not reported twice.
//
// # Errors
//
// Errors carry a [Kind]: startup errors stop the scan before any chunk is
// read, runtime errors abort it, recoverable errors are logged and counted.
package engine
