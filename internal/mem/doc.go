// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Chunk buffers start on a cache line so the matcher's sequential reads never
// straddle a line at the chunk start.
package mem
