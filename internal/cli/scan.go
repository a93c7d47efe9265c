package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/haystack"
	"github.com/hupe1980/haystack/blobstore"
	"github.com/hupe1980/haystack/internal/output"
	"github.com/hupe1980/haystack/needle"
	"github.com/hupe1980/haystack/summary"
)

func newScanCmd() *cobra.Command {
	f := &ScanFlags{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Search a haystack for the configured needles",
		Long: `Scans one haystack for every needle of the configuration file.

A run directory results__{input}__{timestamp} is created below --output. It
holds the record log of all matches, the general log, a copy of the needle
configuration, the scan manifest and one directory per matching needle.

Compressed input (gzip, zstd, lz4, s2, bzip2) is detected automatically and
always read sequentially. Match offsets refer to the decompressed bytes.

Examples:
  haystack scan -i disk.img -n needles.yaml
  zcat disk.img.gz | haystack scan -i - -n needles.yaml --chunk-size 64MiB
  haystack scan -i minio://evidence/disk.img -n needles.yaml --io-limit 100MiB`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runScan(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), f)
		},
	}

	f.AddFlags(cmd.Flags())
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("needles")

	return cmd
}

func runScan(ctx context.Context, stdin io.Reader, stdout io.Writer, f *ScanFlags) error {
	raw, err := os.ReadFile(f.Needles)
	if err != nil {
		return fmt.Errorf("failed to read needle file: %w", err)
	}
	set, err := needle.Load(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	level, err := f.Level()
	if err != nil {
		return err
	}
	opts, err := f.Options()
	if err != nil {
		return err
	}

	name := f.Input
	if name == "-" {
		name = "stdin"
	}

	runDir := filepath.Join(f.Output, output.RunDirName(name, time.Now()))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	logFile, err := os.Create(filepath.Join(runDir, output.GeneralLogName))
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	logger := newLogger(io.MultiWriter(stdout, logFile), f.LogFormat, level)

	opts = append(opts,
		haystack.WithRunDir(runDir),
		haystack.WithInputName(name),
		haystack.WithLogger(logger),
		haystack.WithNeedleConfig(raw),
		haystack.WithSummary(summary.Config{MaxRows: f.SummaryRows}),
	)

	s, err := haystack.New(set, opts...)
	if err == nil {
		_, err = scan(ctx, s, stdin, f.Input)
	}
	if cerr := logFile.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close log file: %w", cerr)
	}
	if err != nil {
		return err
	}

	if f.Export == "" {
		return nil
	}
	return exportRun(ctx, runDir, f, newLogger(stdout, f.LogFormat, level))
}

func scan(ctx context.Context, s *haystack.Scanner, stdin io.Reader, input string) (*haystack.Result, error) {
	switch {
	case input == "-":
		// Hide any Close method so the scanner leaves stdin open.
		return s.ScanReader(ctx, "stdin", struct{ io.Reader }{stdin}, -1)
	case blobstore.IsRemote(input):
		uri, err := blobstore.ParseURI(input)
		if err != nil {
			return nil, err
		}
		store, err := openStore(ctx, uri)
		if err != nil {
			return nil, err
		}
		return s.ScanBlob(ctx, store, uri.Key)
	default:
		return s.ScanFile(ctx, input)
	}
}

func exportRun(ctx context.Context, runDir string, f *ScanFlags, logger *haystack.Logger) error {
	uri, err := blobstore.ParseURI(f.Export)
	if err != nil {
		return fmt.Errorf("invalid --export: %w", err)
	}
	store, err := openStore(ctx, uri)
	if err != nil {
		return err
	}
	ioLimit, err := parseSize("io-limit", f.IOLimit)
	if err != nil {
		return err
	}

	_, err = haystack.Export(ctx, runDir, store, haystack.ExportOptions{
		Prefix:             path.Join(uri.Key, filepath.Base(runDir)),
		Workers:            f.ExportWorkers,
		IOLimitBytesPerSec: int64(ioLimit),
		Logger:             logger,
	})
	return err
}

func newLogger(w io.Writer, format string, level slog.Level) *haystack.Logger {
	if format == "json" {
		return haystack.NewJSONLoggerTo(w, level)
	}
	return haystack.NewTextLoggerTo(w, level)
}
