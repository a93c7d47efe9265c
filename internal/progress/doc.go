// Package progress reports scan throughput and completion.
//
// A Reporter is an engine observer. It logs a progress line when the
// reporting interval elapsed or enough bytes were scanned since the last
// report, then asks the summary collaborator to recompute its aggregation.
package progress
