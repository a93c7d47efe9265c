package output

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/haystack/blobstore"
	"github.com/hupe1980/haystack/internal/resource"
)

// ExportOptions configures Export.
type ExportOptions struct {
	// Prefix is prepended to every uploaded name.
	Prefix string
	// Resources bounds upload parallelism and bandwidth. Nil uploads one
	// file at a time without a bandwidth limit.
	Resources *resource.Controller
	Logger    *slog.Logger
}

// ExportStats reports what Export uploaded.
type ExportStats struct {
	Files int
	Bytes int64
}

// Export copies every file of the run directory into dst, keeping the
// relative layout below opts.Prefix.
func Export(ctx context.Context, src blobstore.BlobStore, dst blobstore.BlobStore, opts ExportOptions) (ExportStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	names, err := src.List(ctx, "")
	if err != nil {
		return ExportStats{}, fmt.Errorf("list run directory: %w", err)
	}

	var (
		files atomic.Int64
		bytes atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Resources.Workers(), 1))

	for _, name := range names {
		g.Go(func() error {
			n, err := exportOne(gctx, src, dst, name, path.Join(opts.Prefix, name), opts.Resources)
			if err != nil {
				return fmt.Errorf("export %s: %w", name, err)
			}
			files.Add(1)
			bytes.Add(n)
			logger.Debug("exported", "path", name, "bytes", n)
			return nil
		})
	}

	err = g.Wait()
	stats := ExportStats{Files: int(files.Load()), Bytes: bytes.Load()}
	return stats, err
}

func exportOne(ctx context.Context, src, dst blobstore.BlobStore, name, target string, rc *resource.Controller) (int64, error) {
	if err := rc.AcquireBackground(ctx); err != nil {
		return 0, err
	}
	defer rc.ReleaseBackground()

	blob, err := src.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	defer blob.Close()

	r, err := blobstore.NewReader(ctx, blob)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	return blobstore.Copy(ctx, dst, target, resource.NewRateLimitedReader(ctx, r, rc))
}
