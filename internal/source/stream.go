package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hupe1980/haystack/internal/mem"
	"github.com/hupe1980/haystack/internal/resource"
)

// StreamConfig configures a Stream.
type StreamConfig struct {
	// ChunkSize is the buffer size C. It must be larger than Carry.
	ChunkSize int

	// Carry is the number of trailing bytes K repeated at the front of the
	// next chunk.
	Carry int

	// UpstreamSize is the total input size for progress, -1 if unknown.
	UpstreamSize int64

	// Upstream counts consumed input bytes. Nil means the reader is not
	// compressed and logical bytes are reported instead.
	Upstream func() uint64

	// Resources reserves the chunk buffer against a memory budget.
	Resources *resource.Controller

	Logger *slog.Logger

	// Closer is closed together with the stream.
	Closer io.Closer
}

// Stream is a sequential source with carry-forward.
type Stream struct {
	r   io.Reader
	cfg StreamConfig

	buf   []byte
	valid int

	produced uint64
	seq      int
	partial  int
	done     bool

	chunk Chunk
}

// NewStream allocates the chunk buffer for r.
func NewStream(r io.Reader, cfg StreamConfig) (*Stream, error) {
	if cfg.ChunkSize <= 0 || cfg.Carry < 0 || cfg.Carry >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: chunk size %d, carry %d", ErrInvalidChunkSize, cfg.ChunkSize, cfg.Carry)
	}
	if err := cfg.Resources.AcquireMemory(int64(cfg.ChunkSize)); err != nil {
		return nil, fmt.Errorf("source: chunk buffer of %d bytes: %w", cfg.ChunkSize, err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.UpstreamSize == 0 {
		cfg.UpstreamSize = -1
	}
	return &Stream{
		r:   r,
		cfg: cfg,
		buf: mem.AllocAligned(cfg.ChunkSize),
	}, nil
}

// Next refills the buffer behind the carry-forward bytes of the previous
// chunk. The returned chunk is overwritten by the following call.
func (s *Stream) Next(ctx context.Context) (*Chunk, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	carry := 0
	if s.seq > 0 {
		carry = min(s.cfg.Carry, s.valid)
		copy(s.buf, s.buf[s.valid-carry:s.valid])
	}

	free := s.buf[carry:]
	n, err := io.ReadFull(s.r, free)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
	default:
		return nil, fmt.Errorf("source: read chunk %d: %w", s.seq, err)
	}

	if n == 0 {
		s.done = true
		return nil, io.EOF
	}

	short := n < len(free)
	if short {
		clear(free[n:])
		s.partial++
		if s.partial > 1 {
			s.cfg.Logger.Warn("short read after end of data",
				"chunk", s.seq,
				"partial_reads", s.partial,
				"error", ErrProtocolViolation)
		}
	}

	s.chunk = Chunk{
		Data:  s.buf[:carry+n],
		Start: s.produced - uint64(carry),
		Carry: carry,
		Seq:   s.seq,
		Final: short,
	}
	s.produced += uint64(n)
	s.valid = carry + n
	s.seq++

	return &s.chunk, nil
}

func (s *Stream) UpstreamBytes() uint64 {
	if s.cfg.Upstream != nil {
		return s.cfg.Upstream()
	}
	return s.produced
}

func (s *Stream) LogicalBytes() uint64 { return s.produced }
func (s *Stream) UpstreamSize() int64  { return s.cfg.UpstreamSize }
func (s *Stream) PartialReads() int    { return s.partial }
func (s *Stream) RandomAccess() bool   { return false }
func (s *Stream) CarryLen() int        { return s.cfg.Carry }

// Close releases the buffer reservation and closes the configured closer.
func (s *Stream) Close() error {
	if s.buf == nil {
		return nil
	}
	s.cfg.Resources.ReleaseMemory(int64(len(s.buf)))
	s.buf = nil
	s.done = true
	if s.cfg.Closer != nil {
		return s.cfg.Closer.Close()
	}
	return nil
}
