package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/hupe1980/haystack"
)

// ScanFlags holds the flag values of the scan command.
type ScanFlags struct {
	Input   string
	Output  string
	Needles string

	Access      string
	Compression string
	ChunkSize   string
	Carry       int

	IOLimit     string
	MemoryLimit string

	ProgressInterval time.Duration
	ProgressBytes    string
	SummaryRows      int

	Export        string
	ExportWorkers int64

	LogLevel      string
	LogFormat     string
	StrictRecords bool
}

// AddFlags adds the scan flags to a FlagSet.
func (f *ScanFlags) AddFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&f.Input, "input", "i", "", "Haystack: file path, '-' for stdin, s3://bucket/key or minio://bucket/key")
	flags.StringVarP(&f.Output, "output", "o", ".", "Directory the run directory is created in")
	flags.StringVarP(&f.Needles, "needles", "n", "", "Needle configuration (YAML)")

	flags.StringVar(&f.Access, "access", "auto", "File access (auto, mmap, stream)")
	flags.StringVar(&f.Compression, "compression", "auto", "Input compression (auto, none, gzip, zstd, lz4, s2, bzip2)")
	flags.StringVar(&f.ChunkSize, "chunk-size", "16MiB", "Chunk buffer size for sequential input")
	flags.IntVar(&f.Carry, "carry", 0, "Bytes repeated across chunk boundaries (0 derives it from the needles)")

	flags.StringVar(&f.IOLimit, "io-limit", "", "Maximum read rate per second (e.g. 200MiB)")
	flags.StringVar(&f.MemoryLimit, "memory-limit", "", "Maximum memory for chunk buffers (e.g. 1GiB)")

	flags.DurationVar(&f.ProgressInterval, "progress-interval", 30*time.Second, "Time between progress reports (negative disables)")
	flags.StringVar(&f.ProgressBytes, "progress-bytes", "", "Also report progress every N bytes (e.g. 10GiB)")
	flags.IntVar(&f.SummaryRows, "summary-rows", 0, "Rows of the summary table (0 shows all)")

	flags.StringVar(&f.Export, "export", "", "Upload the run directory to s3://bucket/prefix or minio://bucket/prefix")
	flags.Int64Var(&f.ExportWorkers, "export-workers", 4, "Concurrent uploads")

	flags.StringVar(&f.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&f.LogFormat, "log-format", "text", "Log format (text, json)")
	flags.BoolVar(&f.StrictRecords, "strict-records", false, "Abort the scan when a record cannot be written")
}

// Options translates the flags into scanner options.
func (f *ScanFlags) Options() ([]haystack.Option, error) {
	access, err := haystack.ParseAccess(f.Access)
	if err != nil {
		return nil, fmt.Errorf("invalid --access: %w", err)
	}
	comp, err := haystack.ParseCompression(f.Compression)
	if err != nil {
		return nil, fmt.Errorf("invalid --compression: %w", err)
	}
	chunk, err := parseSize("chunk-size", f.ChunkSize)
	if err != nil {
		return nil, err
	}
	ioLimit, err := parseSize("io-limit", f.IOLimit)
	if err != nil {
		return nil, err
	}
	memLimit, err := parseSize("memory-limit", f.MemoryLimit)
	if err != nil {
		return nil, err
	}
	every, err := parseSize("progress-bytes", f.ProgressBytes)
	if err != nil {
		return nil, err
	}

	opts := []haystack.Option{
		haystack.WithAccess(access),
		haystack.WithCompression(comp),
		haystack.WithCarry(f.Carry),
		haystack.WithProgressInterval(f.ProgressInterval),
		haystack.WithProgressBytes(every),
		haystack.WithStrictRecords(f.StrictRecords),
		haystack.WithResources(haystack.ResourceLimits{
			MemoryLimitBytes:   int64(memLimit),
			IOLimitBytesPerSec: int64(ioLimit),
			ExportWorkers:      f.ExportWorkers,
		}),
	}
	if chunk > 0 {
		opts = append(opts, haystack.WithChunkSize(int(chunk)))
	}
	return opts, nil
}

// Level parses --log-level.
func (f *ScanFlags) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid --log-level: %w", err)
	}
	return level, nil
}

// parseSize parses a human readable byte size such as "16MiB". The empty
// string is zero.
func parseSize(flag, s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return n, nil
}
