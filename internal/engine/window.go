package engine

import "github.com/hupe1980/haystack/internal/source"

// contextWindow returns the bytes [off-before, off+n+after) clipped to the
// chunk, and the global offset of the first returned byte.
func contextWindow(c *source.Chunk, off uint64, n int, before, after uint64) (uint64, []byte) {
	lo := off - min(before, off-c.Start)

	end := off + uint64(n)
	hi := c.End()
	if after < hi-end {
		hi = end + after
	}

	return lo, c.Data[lo-c.Start : hi-c.Start]
}
