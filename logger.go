package haystack

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/haystack/needle"
)

// Logger wraps slog.Logger with scan-specific helpers.
// Attribute keys are shared by every helper so logs can be filtered by
// needle, offset or scan id.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewJSONLoggerTo(os.Stderr, level)
}

// NewJSONLoggerTo is NewJSONLogger writing to w.
func NewJSONLoggerTo(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewTextLoggerTo(os.Stderr, level)
}

// NewTextLoggerTo is NewTextLogger writing to w. The CLI passes an
// io.MultiWriter to tee the log into the run directory.
func NewTextLoggerTo(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithScanID adds the scan id to every record.
func (l *Logger) WithScanID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("scan_id", id),
	}
}

// WithInput adds the haystack name.
func (l *Logger) WithInput(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("input", name),
	}
}

// LogScanStart logs the parameters a scan runs with. reserved is the chunk
// buffer memory held against the memory limit and is omitted when zero.
func (l *Logger) LogScanStart(ctx context.Context, set *needle.Set, chunkSize, carry int, reserved int64) {
	args := []any{
		"needles", set.Len(),
		"chunk_size", humanize.IBytes(uint64(chunkSize)),
		"carry", carry,
		"context_before", set.MaxContextBefore(),
		"context_after", set.MaxContextAfter(),
	}
	if reserved > 0 {
		args = append(args, "memory_reserved", humanize.IBytes(uint64(reserved)))
	}
	l.InfoContext(ctx, "scan started", args...)
}

// LogScanComplete logs the outcome of a scan. Byte and throughput totals
// are part of the progress reporter's final line.
func (l *Logger) LogScanComplete(ctx context.Context, res *Result, err error) {
	if res == nil {
		l.ErrorContext(ctx, "scan failed",
			"error", err,
		)
		return
	}

	attrs := []any{
		"matches", res.Matches,
		"context_failures", res.ContextFailures,
		"record_failures", res.RecordFailures,
		"partial_reads", res.PartialReads,
	}
	if res.RunDir != "" {
		attrs = append(attrs, "path", res.RunDir)
	}
	if err != nil {
		l.ErrorContext(ctx, "scan aborted", append(attrs, "error", err)...)
		return
	}
	l.InfoContext(ctx, "scan completed", attrs...)
}

// LogSummary logs a rendered summary table.
func (l *Logger) LogSummary(ctx context.Context, table string, err error) {
	if err != nil {
		l.WarnContext(ctx, "summary failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "summary\n"+table)
}

// LogExport logs the upload of a run directory.
func (l *Logger) LogExport(ctx context.Context, dst string, files int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "export failed",
			"destination", dst,
			"files", files,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "export completed",
			"destination", dst,
			"files", files,
			"bytes", humanize.IBytes(uint64(bytes)),
		)
	}
}
