// Package hash provides the CRC32-Castagnoli checksum used for run integrity.
//
// The manifest stores the CRC32C of the scan-wide record log so an exported
// run directory can be verified against it:
//
//	h := hash.NewCRC32C()
//	h.Write(line1)
//	h.Write(line2)
//	checksum := h.Sum32()
//
// Go's crc32 package uses the SSE4.2 and ARM CRC instructions when available.
package hash
