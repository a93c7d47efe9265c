package haystack

import (
	"time"

	"github.com/hupe1980/haystack/codec"
	"github.com/hupe1980/haystack/internal/engine"
	"github.com/hupe1980/haystack/internal/fs"
	"github.com/hupe1980/haystack/internal/source"
	"github.com/hupe1980/haystack/summary"
)

const (
	// DefaultChunkSize is the chunk buffer size used for sequential sources.
	DefaultChunkSize = 16 << 20

	// DefaultRetainEvents caps the matches kept in Result.Events.
	DefaultRetainEvents = 1000
)

// Sink receives every reported occurrence. Emit may set the persistence
// fields of the match before it is counted.
type Sink = engine.Sink

// Access selects how a file haystack is read.
type Access = source.Access

const (
	AccessAuto   = source.AccessAuto
	AccessMmap   = source.AccessMmap
	AccessStream = source.AccessStream
)

// ParseAccess parses "auto", "mmap" or "stream".
func ParseAccess(s string) (Access, error) { return source.ParseAccess(s) }

// Compression selects the decoder in front of a sequential haystack.
type Compression = source.Compression

const (
	CompressionAuto  = source.CompressionAuto
	CompressionNone  = source.CompressionNone
	CompressionGzip  = source.CompressionGzip
	CompressionZstd  = source.CompressionZstd
	CompressionLZ4   = source.CompressionLZ4
	CompressionS2    = source.CompressionS2
	CompressionBzip2 = source.CompressionBzip2
)

// ParseCompression parses a compression name such as "zstd" or "none".
func ParseCompression(s string) (Compression, error) { return source.ParseCompression(s) }

// ResourceLimits bounds what a scan may consume. Zero values mean unlimited.
type ResourceLimits struct {
	// MemoryLimitBytes caps the bytes reserved for chunk buffers.
	MemoryLimitBytes int64
	// IOLimitBytesPerSec caps the rate at which the haystack is read.
	IOLimitBytesPerSec int64
	// ExportWorkers caps concurrent uploads of Export. Defaults to 1.
	ExportWorkers int64
}

type options struct {
	outputDir    string
	runDir       string
	sink         Sink
	chunkSize    int
	carry        int
	logger       *Logger
	metrics      MetricsCollector
	interval     time.Duration
	everyBytes   uint64
	summary      summary.Config
	clock        func() time.Time
	retainEvents int
	strict       bool
	uniformSkip  bool
	limits       ResourceLimits
	inputName    string
	access       Access
	compression  Compression
	needleConfig []byte
	codec        codec.Codec
	fs           fs.FileSystem
}

// Option configures a Scanner.
type Option func(*options)

// WithOutputDir writes each scan into a fresh run directory below dir:
// the record logs, one directory per needle with its context files, the
// needle configuration and the scan manifest.
//
// Without an output directory and without WithSink, matches are only
// counted and kept in Result.Events.
func WithOutputDir(dir string) Option {
	return func(o *options) {
		o.outputDir = dir
	}
}

// WithRunDir writes the scan output into dir itself instead of a fresh
// timestamped directory. Every scan overwrites the previous one.
func WithRunDir(dir string) Option {
	return func(o *options) {
		o.runDir = dir
	}
}

// WithSink routes matches to s instead of a run directory. The scanner does
// not close s. WithSink takes precedence over WithOutputDir.
func WithSink(s Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithChunkSize sets the chunk buffer size for sequential sources.
// It must exceed the carry-forward length.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithCarry sets how many trailing bytes of a chunk are repeated at the
// front of the next one.
//
// The carry must be at least the longest pattern length minus one. It
// defaults to the larger of that and the largest before-context, which
// keeps every context window complete across chunk boundaries.
func WithCarry(n int) Option {
	return func(o *options) {
		o.carry = n
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets a metrics collector for monitoring scans.
// If nil is passed, metrics collection is disabled.
//
// Example:
//
//	collector := &haystack.BasicMetricsCollector{}
//	s, _ := haystack.New(set, haystack.WithMetricsCollector(collector))
//	// ... scan
//	stats := collector.GetStats()
//	fmt.Printf("Skipped chunks: %d\n", stats.SkippedChunks)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithProgressInterval sets how often progress is logged. Zero keeps the
// default of 30 seconds; a negative interval disables time-based reports.
func WithProgressInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithProgressBytes additionally logs progress every n scanned bytes.
func WithProgressBytes(n uint64) Option {
	return func(o *options) {
		o.everyBytes = n
	}
}

// WithSummary configures the summary table logged with progress reports
// and at the end of a scan. It needs an output directory.
func WithSummary(cfg summary.Config) Option {
	return func(o *options) {
		o.summary = cfg
	}
}

// WithClock replaces time.Now for match timestamps, run directory names and
// the manifest.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock == nil {
			clock = time.Now
		}
		o.clock = clock
	}
}

// WithRetainEvents caps the matches kept in Result.Events. Counting is not
// affected. A negative n keeps every match.
func WithRetainEvents(n int) Option {
	return func(o *options) {
		o.retainEvents = n
	}
}

// WithStrictRecords makes a failed record append abort the scan instead of
// being logged and counted.
func WithStrictRecords(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithUniformSkip enables or disables skipping the matcher for chunks that
// consist of a single repeated byte. Enabled by default.
func WithUniformSkip(enabled bool) Option {
	return func(o *options) {
		o.uniformSkip = enabled
	}
}

// WithResources bounds memory, read bandwidth and export parallelism.
func WithResources(limits ResourceLimits) Option {
	return func(o *options) {
		o.limits = limits
	}
}

// WithInputName overrides the haystack name used for the run directory and
// the manifest.
func WithInputName(name string) Option {
	return func(o *options) {
		o.inputName = name
	}
}

// WithAccess selects mapped or sequential reads for file haystacks.
func WithAccess(a Access) Option {
	return func(o *options) {
		o.access = a
	}
}

// WithCompression forces a decoder for sequential haystacks. The default
// detects the format from its magic bytes.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithNeedleConfig stores data, usually the needle YAML file, in each run
// directory.
func WithNeedleConfig(data []byte) Option {
	return func(o *options) {
		o.needleConfig = data
	}
}

// WithCodec configures the codec used for the record logs.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func applyOptions(opts []Option) options {
	o := options{
		chunkSize:    DefaultChunkSize,
		logger:       NoopLogger(),
		metrics:      NoopMetricsCollector{},
		clock:        time.Now,
		retainEvents: DefaultRetainEvents,
		uniformSkip:  true,
		codec:        codec.Default,
		fs:           fs.Default,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
