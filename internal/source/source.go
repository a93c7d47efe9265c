package source

import (
	"context"
	"errors"
)

var (
	// ErrInvalidChunkSize is returned when the chunk size is not larger
	// than the carry length.
	ErrInvalidChunkSize = errors.New("source: chunk size must exceed carry")
	// ErrUnknownCompression is returned for an unsupported compression mode.
	ErrUnknownCompression = errors.New("source: unknown compression")
	// ErrProtocolViolation marks a reader that produced data again after a
	// short read. It is logged, not returned.
	ErrProtocolViolation = errors.New("source: short read repeated")
)

// Chunk is a window of the logical haystack.
//
// Data aliases the source's buffer and is only valid until the next call to
// Next.
type Chunk struct {
	Data []byte

	// Start is the global offset of Data[0].
	Start uint64

	// Carry is the number of leading bytes repeated from the previous chunk.
	Carry int

	// Seq numbers chunks from 0.
	Seq int

	// Final reports that the source expects no further data.
	Final bool
}

// End returns the exclusive global end offset of the chunk.
func (c *Chunk) End() uint64 { return c.Start + uint64(len(c.Data)) }

// FreshStart returns the global offset of the first byte not seen in an
// earlier chunk.
func (c *Chunk) FreshStart() uint64 { return c.Start + uint64(c.Carry) }

// Source yields the haystack chunk by chunk.
type Source interface {
	// Next returns the next chunk, or io.EOF when the haystack is exhausted.
	Next(ctx context.Context) (*Chunk, error)

	// UpstreamBytes returns the input bytes consumed so far. For compressed
	// input these are compressed bytes.
	UpstreamBytes() uint64

	// LogicalBytes returns the distinct haystack bytes produced so far.
	LogicalBytes() uint64

	// UpstreamSize returns the total input size, or -1 if unknown.
	UpstreamSize() int64

	// PartialReads returns how many fills came back short.
	PartialReads() int

	// RandomAccess reports whether the whole haystack is a single chunk.
	RandomAccess() bool

	// CarryLen returns how many trailing bytes of a chunk are repeated at
	// the front of the next one.
	CarryLen() int

	Close() error
}
