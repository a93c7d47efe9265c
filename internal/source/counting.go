package source

import (
	"io"
	"sync/atomic"
)

// countingReader counts bytes read from the raw input, before any decoder.
type countingReader struct {
	r io.Reader
	n atomic.Uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(uint64(n))
	return n, err
}

func (c *countingReader) Count() uint64 { return c.n.Load() }
