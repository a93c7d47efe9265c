package source

import (
	"context"
	"io"
	"log/slog"

	"github.com/hupe1980/haystack/internal/mmap"
)

// Buffer is a random-access source over an in-memory haystack.
type Buffer struct {
	data     []byte
	consumed bool
	closer   io.Closer
}

// NewBuffer wraps data. The slice is not copied.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Next returns the whole haystack once.
func (b *Buffer) Next(ctx context.Context) (*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.consumed || len(b.data) == 0 {
		b.consumed = true
		return nil, io.EOF
	}
	b.consumed = true
	return &Chunk{Data: b.data, Final: true}, nil
}

func (b *Buffer) UpstreamBytes() uint64 { return b.LogicalBytes() }

func (b *Buffer) LogicalBytes() uint64 {
	if !b.consumed {
		return 0
	}
	return uint64(len(b.data))
}

func (b *Buffer) UpstreamSize() int64 { return int64(len(b.data)) }
func (b *Buffer) PartialReads() int   { return 0 }
func (b *Buffer) RandomAccess() bool  { return true }
func (b *Buffer) CarryLen() int       { return 0 }

func (b *Buffer) Close() error {
	if b.closer == nil {
		return nil
	}
	err := b.closer.Close()
	b.closer = nil
	return err
}

// Mapped is a random-access source over a memory-mapped file.
type Mapped struct {
	*Buffer
	m *mmap.Mapping
}

// OpenMapped maps path read-only and advises the kernel that it will be read
// front to back. A failed advice is logged and ignored.
func OpenMapped(path string, logger *slog.Logger) (*Mapped, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	if err := m.Advise(mmap.AccessSequential); err != nil && logger != nil {
		logger.Warn("madvise failed", "path", path, "error", err)
	}
	b := NewBuffer(m.Bytes())
	b.closer = m
	return &Mapped{Buffer: b, m: m}, nil
}

// Size returns the mapped length.
func (m *Mapped) Size() int { return m.m.Size() }
