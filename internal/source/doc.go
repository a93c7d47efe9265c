// Package source supplies the haystack to the scanner as a sequence of
// chunks.
//
// Two shapes implement [Source]:
//
//   - Random access ([Buffer], [Mapped]): the whole haystack is one chunk.
//     Offsets are buffer-native and context windows can reach anywhere.
//   - Sequential ([Stream]): a fixed buffer of ChunkSize bytes is refilled
//     from an io.Reader. The last Carry bytes of each chunk are copied to the
//     front of the next one so a pattern spanning the boundary is still seen
//     whole by a single matching pass.
//
// Stream layout after the first chunk:
//
//	 buf: [ carry | fresh bytes from the reader ............ ]
//	       ^ Chunk.Start = produced - carry
//
// The first chunk carries nothing. A fill shorter than the free space marks
// the end of data: the rest of the buffer is zeroed and only the valid bytes
// are exposed. A fill of zero bytes ends the stream with io.EOF.
//
// [Open] and [OpenReader] pick the shape and, for sequential input, the
// decompressor (gzip, zstd, lz4, s2/snappy, bzip2) by flag or magic bytes.
// Offsets are always positions in the decompressed stream; UpstreamBytes
// tracks the compressed bytes consumed for progress reporting.
package source
