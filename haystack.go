package haystack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/hupe1980/haystack/blobstore"
	"github.com/hupe1980/haystack/internal/conv"
	"github.com/hupe1980/haystack/internal/engine"
	"github.com/hupe1980/haystack/internal/fs"
	"github.com/hupe1980/haystack/internal/manifest"
	"github.com/hupe1980/haystack/internal/output"
	"github.com/hupe1980/haystack/internal/progress"
	"github.com/hupe1980/haystack/internal/resource"
	"github.com/hupe1980/haystack/internal/source"
	"github.com/hupe1980/haystack/needle"
	"github.com/hupe1980/haystack/record"
	"github.com/hupe1980/haystack/summary"
)

// State is a snapshot of a running or finished scan.
type State = engine.State

// Result is the outcome of one scan.
type Result struct {
	State

	// Events holds the first reported matches in report order, up to the
	// configured retention cap.
	Events          []record.Match
	EventsTruncated bool

	// PerNeedle holds the match count of every needle, indexed by ID.
	PerNeedle []uint64

	ScanID string

	// RunDir is the run directory, empty when no output directory is set.
	RunDir string
}

// Scanner searches haystacks for a fixed needle set. A Scanner may be
// reused for several haystacks but runs one scan at a time.
type Scanner struct {
	needles   *needle.Set
	opts      options
	carry     int
	resources *resource.Controller
}

// New validates the options against the needle set.
func New(needles *needle.Set, optFns ...Option) (*Scanner, error) {
	if needles == nil || needles.Len() == 0 {
		return nil, engine.Startup("new scanner", ErrNoNeedles)
	}

	o := applyOptions(optFns)

	carry := o.carry
	if carry <= 0 {
		var err error
		if carry, err = DefaultCarry(needles); err != nil {
			return nil, engine.Startup("new scanner", err)
		}
	}
	if o.chunkSize <= carry {
		return nil, engine.Startup("new scanner", &ErrChunkSize{ChunkSize: o.chunkSize, Carry: carry})
	}
	if err := engine.CheckCarry(needles, carry, o.logger.Logger); err != nil {
		return nil, err
	}

	s := &Scanner{
		needles: needles,
		opts:    o,
		carry:   carry,
	}
	if l := o.limits; l != (ResourceLimits{}) {
		s.resources = resource.NewController(resource.Config{
			MemoryLimitBytes:     l.MemoryLimitBytes,
			MaxBackgroundWorkers: l.ExportWorkers,
			IOLimitBytesPerSec:   l.IOLimitBytesPerSec,
		})
	}
	return s, nil
}

// DefaultCarry returns the carry used when none is configured: the longest
// pattern length minus one, or the largest before-context if that is longer.
func DefaultCarry(set *needle.Set) (int, error) {
	before, err := conv.Uint64ToInt(set.MaxContextBefore())
	if err != nil {
		return 0, fmt.Errorf("context_before: %w", err)
	}
	return max(set.MinCarry(), before), nil
}

// Carry returns the carry-forward length in effect.
func (s *Scanner) Carry() int { return s.carry }

// ChunkSize returns the chunk buffer size in effect.
func (s *Scanner) ChunkSize() int { return s.opts.chunkSize }

// ScanFile scans the file at path. Uncompressed regular files are mapped
// unless sequential access is requested.
func (s *Scanner) ScanFile(ctx context.Context, path string) (*Result, error) {
	return s.scan(ctx, path, func(ctx context.Context, opts source.Options) (source.Source, error) {
		return source.Open(ctx, path, opts)
	})
}

// ScanReader scans r sequentially. size is the input size for progress
// reports, -1 if unknown. If r is an io.Closer it is closed when the scan
// ends.
func (s *Scanner) ScanReader(ctx context.Context, name string, r io.Reader, size int64) (*Result, error) {
	if r == nil {
		return nil, engine.Startup("open haystack", ErrNoInput)
	}
	return s.scan(ctx, name, func(ctx context.Context, opts source.Options) (source.Source, error) {
		return source.OpenReader(ctx, r, size, opts)
	})
}

// ScanBytes scans an in-memory haystack. data is not copied and must not
// change during the scan.
func (s *Scanner) ScanBytes(ctx context.Context, name string, data []byte) (*Result, error) {
	return s.scan(ctx, name, func(context.Context, source.Options) (source.Source, error) {
		return source.NewBuffer(data), nil
	})
}

// ScanBlob scans the blob name from store. Uncompressed blobs that expose
// their bytes are scanned in place; all others are streamed.
func (s *Scanner) ScanBlob(ctx context.Context, store blobstore.BlobStore, name string) (*Result, error) {
	return s.scan(ctx, name, func(ctx context.Context, opts source.Options) (source.Source, error) {
		b, err := store.Open(ctx, name)
		if err != nil {
			return nil, err
		}
		if m, ok := b.(blobstore.Mappable); ok {
			if data, err := m.Bytes(); err == nil {
				if src, ok := source.OpenBytes(data, b, opts); ok {
					return src, nil
				}
			}
		}
		rd, err := blobstore.NewReader(ctx, b)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		src, err := source.OpenReader(ctx, &blobReader{ReadCloser: rd, blob: b}, b.Size(), opts)
		if err != nil {
			_ = rd.Close()
			_ = b.Close()
			return nil, err
		}
		return src, nil
	})
}

type blobReader struct {
	io.ReadCloser
	blob blobstore.Blob
}

func (r *blobReader) Close() error {
	return errors.Join(r.ReadCloser.Close(), r.blob.Close())
}

type opener func(ctx context.Context, opts source.Options) (source.Source, error)

// run holds the output side of one scan.
type run struct {
	dir       string
	sink      Sink
	dirSink   *output.DirSink
	manifests *manifest.Store
	manifest  *manifest.Manifest
}

func (s *Scanner) scan(ctx context.Context, input string, open opener) (*Result, error) {
	o := &s.opts
	if o.inputName != "" {
		input = o.inputName
	}

	started := o.clock()
	scanID := manifest.NewScanID()
	logger := o.logger.WithScanID(scanID).WithInput(input)

	r, err := s.prepare(input, scanID, started, logger)
	if err != nil {
		return nil, err
	}

	src, err := open(ctx, source.Options{
		Access:      o.access,
		Compression: o.compression,
		ChunkSize:   o.chunkSize,
		Carry:       s.carry,
		Resources:   s.resources,
		Logger:      logger.Logger,
	})
	if err != nil {
		err = engine.Startup("open haystack", err)
		_ = s.finish(ctx, r, nil, err, logger)
		logger.LogScanComplete(ctx, nil, err)
		return nil, err
	}
	if r.manifest != nil {
		r.manifest.InputSize = src.UpstreamSize()
	}
	s.saveManifest(ctx, r, logger)

	eng, err := engine.New(engine.Config{
		Needles:       s.needles,
		Sink:          r.sink,
		Logger:        logger.Logger,
		Metrics:       o.metrics,
		Observer:      s.reporter(r, logger),
		Clock:         o.clock,
		UniformSkip:   o.uniformSkip,
		RetainEvents:  o.retainEvents,
		StrictRecords: o.strict,
	})
	if err != nil {
		_ = src.Close()
		_ = s.finish(ctx, r, nil, err, logger)
		logger.LogScanComplete(ctx, nil, err)
		return nil, err
	}

	chunk := o.chunkSize
	if src.RandomAccess() {
		chunk = int(src.UpstreamSize())
	}
	logger.LogScanStart(ctx, s.needles, chunk, src.CarryLen(), s.resources.MemoryUsage())

	res, runErr := eng.Run(ctx, src)
	if err := src.Close(); err != nil {
		logger.WarnContext(ctx, "close haystack", "error", err)
	}

	closeErr := s.finish(ctx, r, res, runErr, logger)
	if runErr == nil && closeErr != nil {
		runErr = engine.Runtime("close output", closeErr)
	}

	if res == nil {
		logger.LogScanComplete(ctx, nil, runErr)
		return nil, runErr
	}

	out := &Result{
		State:           res.State,
		Events:          res.Events,
		EventsTruncated: res.EventsTruncated,
		PerNeedle:       res.PerNeedle,
		ScanID:          scanID,
		RunDir:          r.dir,
	}
	logger.LogScanComplete(ctx, out, runErr)
	return out, runErr
}

// prepare creates the run directory, its sink and the initial manifest.
func (s *Scanner) prepare(input, scanID string, started time.Time, logger *Logger) (*run, error) {
	o := &s.opts
	switch {
	case o.sink != nil:
		return &run{sink: o.sink}, nil
	case o.outputDir == "" && o.runDir == "":
		return &run{sink: engine.DiscardSink{}}, nil
	}

	dir := o.runDir
	if dir == "" {
		dir = filepath.Join(o.outputDir, output.RunDirName(input, started))
	}
	ds, err := output.NewDirSink(output.Config{
		Root:   dir,
		FS:     o.fs,
		Codec:  o.codec,
		Logger: logger.Logger,
	})
	if err != nil {
		return nil, engine.Startup("create output", err)
	}

	if o.needleConfig != nil {
		if err := fs.WriteFile(o.fs, filepath.Join(dir, output.NeedleConfigName), o.needleConfig, 0o644); err != nil {
			_ = ds.Close()
			return nil, engine.Startup("copy needle config", err)
		}
	}

	m := manifest.New(scanID, s.needles, started)
	m.Input = input
	m.Access = o.access.String()
	m.Compression = o.compression.String()
	m.ChunkSize = o.chunkSize
	m.Carry = s.carry

	return &run{
		dir:       dir,
		sink:      ds,
		dirSink:   ds,
		manifests: manifest.NewStore(o.fs, dir),
		manifest:  m,
	}, nil
}

func (s *Scanner) reporter(r *run, logger *Logger) *progress.Reporter {
	cfg := progress.Config{
		Interval:    s.opts.interval,
		Bytes:       s.opts.everyBytes,
		MemoryUsage: progress.ProcessRSS,
		Clock:       s.opts.clock,
		Logger:      logger.Logger,
	}
	if r.dir != "" {
		path := filepath.Join(r.dir, output.RecordLogName)
		sc := s.opts.summary
		if sc.Codec == nil {
			sc.Codec = s.opts.codec
		}
		cfg.Summarize = func(ctx context.Context) error {
			table, err := summary.Summarize(ctx, path, sc)
			if err != nil {
				return err
			}
			logger.LogSummary(ctx, table, nil)
			return nil
		}
	}
	return progress.New(cfg)
}

// finish closes the run directory's sink and records the outcome in the
// manifest. It returns the sink's close error.
func (s *Scanner) finish(ctx context.Context, r *run, res *engine.Result, runErr error, logger *Logger) error {
	var closeErr error
	if r.dirSink != nil {
		closeErr = r.dirSink.Close()
	}
	if r.manifest == nil {
		return closeErr
	}

	var (
		totals    manifest.Totals
		perNeedle []uint64
	)
	if res != nil {
		totals = manifest.Totals{
			LogicalBytes:    res.LogicalBytes,
			UpstreamBytes:   res.UpstreamBytes,
			Chunks:          res.Chunks,
			SkippedChunks:   res.SkippedChunks,
			PartialReads:    res.PartialReads,
			Matches:         res.Matches,
			Duplicates:      res.Duplicates,
			ContextFailures: res.ContextFailures,
			RecordFailures:  res.RecordFailures,
		}
		perNeedle = res.PerNeedle
	}
	if r.dirSink != nil {
		totals.RecordLogCRC32C = r.dirSink.RecordLogChecksum()
	}
	r.manifest.Finish(s.opts.clock(), totals, perNeedle, errors.Join(runErr, closeErr))
	s.saveManifest(ctx, r, logger)
	return closeErr
}

// saveManifest writes the manifest. A failure is logged and does not fail
// the scan.
func (s *Scanner) saveManifest(ctx context.Context, r *run, logger *Logger) {
	if r.manifests == nil {
		return
	}
	if err := r.manifests.Save(r.manifest); err != nil {
		logger.WarnContext(ctx, "save manifest", "path", r.manifests.Path(), "error", err)
	}
}
