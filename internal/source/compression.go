package source

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the decoder placed in front of a sequential source.
type Compression int

const (
	// CompressionAuto sniffs the magic bytes and falls back to none.
	CompressionAuto Compression = iota
	CompressionNone
	CompressionGzip
	CompressionZstd
	CompressionLZ4
	// CompressionS2 reads S2 and Snappy framed streams.
	CompressionS2
	CompressionBzip2
)

var compressionNames = map[Compression]string{
	CompressionAuto:  "auto",
	CompressionNone:  "none",
	CompressionGzip:  "gzip",
	CompressionZstd:  "zstd",
	CompressionLZ4:   "lz4",
	CompressionS2:    "s2",
	CompressionBzip2: "bzip2",
}

func (c Compression) String() string {
	if s, ok := compressionNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Compression(%d)", int(c))
}

// ParseCompression parses a compression mode name. "snappy" is an alias of
// s2 and "gz", "zst", "bz2" are accepted as short forms.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return CompressionAuto, nil
	case "none", "raw":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "s2", "snappy", "sz":
		return CompressionS2, nil
	case "bzip2", "bz2":
		return CompressionBzip2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}

var (
	magicGzip   = []byte{0x1f, 0x8b}
	magicZstd   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4    = []byte{0x04, 0x22, 0x4d, 0x18}
	magicBzip2  = []byte("BZh")
	magicSnappy = []byte("\xff\x06\x00\x00sNaPpY")
	magicS2     = []byte("\xff\x06\x00\x00S2sTwO")
)

// sniffLen is the number of header bytes Detect needs.
const sniffLen = 10

// Detect identifies a compressed stream by its header.
func Detect(header []byte) Compression {
	switch {
	case bytes.HasPrefix(header, magicZstd):
		return CompressionZstd
	case bytes.HasPrefix(header, magicLZ4):
		return CompressionLZ4
	case bytes.HasPrefix(header, magicSnappy), bytes.HasPrefix(header, magicS2):
		return CompressionS2
	case bytes.HasPrefix(header, magicGzip):
		return CompressionGzip
	case len(header) >= 4 && bytes.HasPrefix(header, magicBzip2) && header[3] >= '1' && header[3] <= '9':
		return CompressionBzip2
	default:
		return CompressionNone
	}
}

// Decompress places the decoder for c in front of r. With CompressionAuto
// the header is sniffed first; the detected mode is returned.
func Decompress(r io.Reader, c Compression) (io.ReadCloser, Compression, error) {
	if c == CompressionAuto {
		br := bufio.NewReader(r)
		header, err := br.Peek(sniffLen)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, c, fmt.Errorf("source: sniff compression: %w", err)
		}
		c = Detect(header)
		r = br
	}

	switch c {
	case CompressionNone:
		return io.NopCloser(r), c, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, c, fmt.Errorf("source: gzip header: %w", err)
		}
		return zr, c, nil
	case CompressionZstd:
		d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, c, fmt.Errorf("source: zstd: %w", err)
		}
		return d.IOReadCloser(), c, nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), c, nil
	case CompressionS2:
		return io.NopCloser(s2.NewReader(r)), c, nil
	case CompressionBzip2:
		return io.NopCloser(bzip2.NewReader(r)), c, nil
	default:
		return nil, c, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}
}
