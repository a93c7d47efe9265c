package engine

import (
	"bytes"

	"github.com/hupe1980/haystack/needle"
)

// uniformIndex maps a byte value to the needles made only of that byte, in
// ID order.
type uniformIndex map[byte][]int

func newUniformIndex(set *needle.Set) uniformIndex {
	idx := make(uniformIndex)
	for i := range set.Len() {
		if b, ok := set.At(i).UniformByte(); ok {
			idx[b] = append(idx[b], i)
		}
	}
	return idx
}

// uniformByte reports whether data consists of one repeated byte.
func uniformByte(data []byte) (byte, bool) {
	if len(data) == 0 {
		return 0, false
	}
	return data[0], bytes.Equal(data[1:], data[:len(data)-1])
}
