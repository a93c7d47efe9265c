package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/haystack/internal/resource"
)

// Access selects how a file haystack is read.
type Access int

const (
	// AccessAuto maps uncompressed regular files and streams everything else.
	AccessAuto Access = iota
	// AccessMmap maps the file. Compressed files cannot be mapped.
	AccessMmap
	// AccessStream reads the file sequentially through the chunk buffer.
	AccessStream
)

// ErrUnknownAccess is returned for an unsupported access mode.
var ErrUnknownAccess = errors.New("source: unknown access mode")

func (a Access) String() string {
	switch a {
	case AccessMmap:
		return "mmap"
	case AccessStream:
		return "stream"
	default:
		return "auto"
	}
}

// ParseAccess parses "auto", "mmap" or "stream".
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return AccessAuto, nil
	case "mmap", "map", "random":
		return AccessMmap, nil
	case "stream", "sequential":
		return AccessStream, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAccess, s)
	}
}

// Options configures Open and OpenReader.
type Options struct {
	Access      Access
	Compression Compression
	ChunkSize   int
	Carry       int
	Resources   *resource.Controller
	Logger      *slog.Logger
}

// Open opens the haystack at path.
func Open(ctx context.Context, path string, opts Options) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	comp := opts.Compression
	if comp == CompressionAuto {
		header := make([]byte, sniffLen)
		n, err := io.ReadFull(f, header)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			f.Close()
			return nil, fmt.Errorf("source: sniff compression: %w", err)
		}
		comp = Detect(header[:n])
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, err
		}
	}

	mapped := comp == CompressionNone && fi.Mode().IsRegular() && opts.Access != AccessStream
	if opts.Access == AccessMmap && comp != CompressionNone {
		f.Close()
		return nil, fmt.Errorf("source: %s input cannot be mapped", comp)
	}
	if mapped {
		f.Close()
		return OpenMapped(path, opts.Logger)
	}

	size := int64(-1)
	if fi.Mode().IsRegular() {
		size = fi.Size()
	}
	opts.Compression = comp
	src, err := OpenReader(ctx, f, size, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// OpenBytes builds a random-access source over data that is already
// addressable, such as a mapped blob. c is closed with the source. It
// reports false when data is compressed or sequential access is requested;
// the caller then streams the input instead and c stays open.
func OpenBytes(data []byte, c io.Closer, opts Options) (*Buffer, bool) {
	if opts.Access == AccessStream {
		return nil, false
	}
	comp := opts.Compression
	if comp == CompressionAuto {
		comp = Detect(data[:min(len(data), sniffLen)])
	}
	if comp != CompressionNone {
		return nil, false
	}
	b := NewBuffer(data)
	b.closer = c
	return b, true
}

// OpenReader builds a sequential source over r. size is the raw input size,
// -1 when unknown. If r is an io.Closer it is closed with the source.
func OpenReader(ctx context.Context, r io.Reader, size int64, opts Options) (*Stream, error) {
	counter := &countingReader{r: r}

	var raw io.Reader = counter
	if opts.Resources != nil {
		raw = resource.NewRateLimitedReader(ctx, counter, opts.Resources)
	}

	dec, comp, err := Decompress(raw, opts.Compression)
	if err != nil {
		return nil, err
	}

	if opts.Logger != nil {
		opts.Logger.Debug("opened sequential source",
			"compression", comp.String(),
			"chunk_size", opts.ChunkSize,
			"carry", opts.Carry,
			"upstream_size", size)
	}

	cfg := StreamConfig{
		ChunkSize:    opts.ChunkSize,
		Carry:        opts.Carry,
		UpstreamSize: size,
		Resources:    opts.Resources,
		Logger:       opts.Logger,
		Closer:       multiCloser{dec, asCloser(r)},
	}
	if comp != CompressionNone {
		cfg.Upstream = counter.Count
	}

	s, err := NewStream(dec, cfg)
	if err != nil {
		dec.Close()
		return nil, err
	}
	return s, nil
}

func asCloser(r io.Reader) io.Closer {
	if c, ok := r.(io.Closer); ok {
		return c
	}
	return io.NopCloser(nil)
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
