package mem

import (
	"unsafe"
)

// Alignment is the byte alignment of buffers returned by AllocAligned.
const Alignment = 64

// AllocAligned allocates a byte slice of the given size whose first byte sits
// at an address divisible by Alignment. It returns nil for size <= 0.
//
// Up to Alignment extra bytes are allocated; the underlying array is kept
// alive by the returned slice.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	buf := make([]byte, size+Alignment)

	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for memory alignment
	offset := int((Alignment - (addr & (Alignment - 1))) & (Alignment - 1))

	return buf[offset : offset+size : offset+size]
}
