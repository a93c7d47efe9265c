package output

import (
	"context"
	"errors"
	"fmt"
	gohash "hash"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/haystack/codec"
	"github.com/hupe1980/haystack/internal/engine"
	"github.com/hupe1980/haystack/internal/fs"
	"github.com/hupe1980/haystack/internal/hash"
	"github.com/hupe1980/haystack/needle"
	"github.com/hupe1980/haystack/record"
)

// Config configures a DirSink.
type Config struct {
	// Root is the run directory. It is created if missing.
	Root string
	// FS defaults to the local filesystem.
	FS fs.FileSystem
	// Codec encodes records. Defaults to codec.Default.
	Codec  codec.Codec
	Logger *slog.Logger
}

// DirSink writes context files and record logs below a run directory.
//
// Every log is truncated when first opened by a sink, so running the same
// scan into the same directory twice leaves identical files.
type DirSink struct {
	root   string
	fsys   fs.FileSystem
	codec  codec.Codec
	logger *slog.Logger

	mu      sync.Mutex
	global  fs.File
	crc     gohash.Hash32
	needles map[int]*needleOut
	line    []byte
	closed  bool
}

type needleOut struct {
	dir string
	log fs.File
	err error
}

// NewDirSink creates the run directory and the scan-wide record log.
func NewDirSink(cfg Config) (*DirSink, error) {
	if cfg.FS == nil {
		cfg.FS = fs.Default
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.Default
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	if err := cfg.FS.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	global, err := openLog(cfg.FS, filepath.Join(cfg.Root, RecordLogName))
	if err != nil {
		return nil, fmt.Errorf("open record log: %w", err)
	}

	return &DirSink{
		root:    cfg.Root,
		fsys:    cfg.FS,
		codec:   cfg.Codec,
		logger:  cfg.Logger,
		global:  global,
		crc:     hash.NewCRC32C(),
		needles: make(map[int]*needleOut),
	}, nil
}

func openLog(fsys fs.FileSystem, path string) (fs.File, error) {
	return fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

// Root returns the run directory.
func (s *DirSink) Root() string { return s.root }

// RecordLogChecksum returns the CRC32C of every line written to the
// scan-wide record log so far.
func (s *DirSink) RecordLogChecksum() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crc.Sum32()
}

// out lazily creates the needle's directory and log. A failure is kept so
// later matches of the same needle fail fast instead of retrying.
func (s *DirSink) out(n *needle.Needle) *needleOut {
	if o, ok := s.needles[n.ID]; ok {
		return o
	}

	o := &needleOut{dir: filepath.Join(s.root, n.DirName())}
	if err := s.fsys.MkdirAll(o.dir, 0o755); err != nil {
		o.err = err
	} else if f, err := openLog(s.fsys, filepath.Join(o.dir, NeedleLogName(n))); err != nil {
		o.err = err
	} else {
		o.log = f
		s.logger.Debug("needle output created", "needle", n.Name, "path", o.dir)
	}
	s.needles[n.ID] = o
	return o
}

// Emit persists the context window of m, when the needle asks for it, and
// appends the record to the scan-wide and the per-needle log.
func (s *DirSink) Emit(_ context.Context, n *needle.Needle, m *record.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return os.ErrClosed
	}

	o := s.out(n)

	var ctxErr error
	if n.PersistContext {
		ctxErr = s.writeContext(o, n, m)
	}

	line, err := codec.AppendLine(s.codec, s.line[:0], record.New(n, m))
	if err != nil {
		return errors.Join(ctxErr, err)
	}
	s.line = line

	var recErr error
	if _, err := s.global.Write(line); err != nil {
		recErr = fmt.Errorf("%w: %s: %w", engine.ErrRecordAppend, RecordLogName, err)
	} else {
		_, _ = s.crc.Write(line)
	}
	if o.err != nil {
		recErr = errors.Join(recErr, fmt.Errorf("%w: %s: %w", engine.ErrRecordAppend, n.DirName(), o.err))
	} else if _, err := o.log.Write(line); err != nil {
		recErr = errors.Join(recErr, fmt.Errorf("%w: %s: %w", engine.ErrRecordAppend, NeedleLogName(n), err))
	}

	return errors.Join(ctxErr, recErr)
}

func (s *DirSink) writeContext(o *needleOut, n *needle.Needle, m *record.Match) error {
	rel := ContextPath(n, m.Offset, m.WindowStart)
	if o.err != nil {
		return fmt.Errorf("%w: %s: %w", engine.ErrContextWrite, rel, o.err)
	}
	if err := fs.WriteFile(s.fsys, filepath.Join(s.root, filepath.FromSlash(rel)), m.Context, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", engine.ErrContextWrite, rel, err)
	}
	m.ContextPersisted = true
	m.ContextPath = rel
	m.ContextName = ContextFileName(m.Offset, m.WindowStart)
	s.logger.Debug("context written", "needle", n.Name, "path", rel,
		"window_start", m.WindowStart, "window_end", m.WindowEnd())
	return nil
}

// Close syncs and closes every log.
func (s *DirSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	errs := []error{closeLog(s.global)}
	for _, o := range s.needles {
		if o.log != nil {
			errs = append(errs, closeLog(o.log))
		}
	}
	return errors.Join(errs...)
}

func closeLog(f fs.File) error {
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
