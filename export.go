package haystack

import (
	"context"

	"github.com/hupe1980/haystack/blobstore"
	"github.com/hupe1980/haystack/internal/output"
	"github.com/hupe1980/haystack/internal/resource"
)

// ExportStats reports what Export uploaded.
type ExportStats = output.ExportStats

// ExportOptions configures Export.
type ExportOptions struct {
	// Prefix is prepended to every uploaded name.
	Prefix string
	// Workers caps concurrent uploads. Defaults to 1.
	Workers int64
	// IOLimitBytesPerSec caps the read rate of the uploaded files.
	IOLimitBytesPerSec int64
	Logger             *Logger
}

// Export uploads every file of the run directory runDir to dst, keeping the
// relative layout below opts.Prefix.
func Export(ctx context.Context, runDir string, dst blobstore.BlobStore, opts ExportOptions) (ExportStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}
	rc := resource.NewController(resource.Config{
		MaxBackgroundWorkers: opts.Workers,
		IOLimitBytesPerSec:   opts.IOLimitBytesPerSec,
	})
	return export(ctx, runDir, dst, opts.Prefix, rc, logger)
}

// Export uploads a run directory with the scanner's export workers and
// bandwidth limit.
func (s *Scanner) Export(ctx context.Context, runDir string, dst blobstore.BlobStore, prefix string) (ExportStats, error) {
	return export(ctx, runDir, dst, prefix, s.resources, s.opts.logger)
}

func export(ctx context.Context, runDir string, dst blobstore.BlobStore, prefix string, rc *resource.Controller, logger *Logger) (ExportStats, error) {
	stats, err := output.Export(ctx, blobstore.NewLocalStore(runDir), dst, output.ExportOptions{
		Prefix:    prefix,
		Resources: rc,
		Logger:    logger.Logger,
	})
	logger.LogExport(ctx, prefix, stats.Files, stats.Bytes, err)
	return stats, err
}
