// Package mmap maps haystack files read-only into memory.
//
// A mapped haystack is handed to the scanner as a single random-access
// chunk, so a multi-gigabyte image is scanned without copying it through
// user-space buffers:
//
//	m, err := mmap.Open("disk.img")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// On Unix the mapping uses mmap(2) and madvise(2). On Windows it uses
// CreateFileMapping/MapViewOfFile and Advise is a no-op.
//
// Close is idempotent. Slices returned by Bytes must not be used after Close.
package mmap
