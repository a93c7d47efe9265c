package haystack

import (
	"bytes"
	"context"
	"errors"
	"hash/crc32"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/haystack/blobstore"
	"github.com/hupe1980/haystack/codec"
	"github.com/hupe1980/haystack/internal/fs"
	"github.com/hupe1980/haystack/internal/manifest"
	"github.com/hupe1980/haystack/internal/output"
	"github.com/hupe1980/haystack/needle"
	"github.com/hupe1980/haystack/record"
)

var startedAt = time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)

func fixedClock() time.Time { return startedAt }

// helloHaystack is 5000 zero bytes, "Hello", then 5000 zero bytes.
func helloHaystack() []byte {
	data := make([]byte, 10005)
	copy(data[5000:], "Hello")
	return data
}

func helloSet(t *testing.T) *needle.Set {
	t.Helper()
	set, err := needle.NewSet([]needle.Needle{needle.New("hello", []byte("Hello"), 5)})
	require.NoError(t, err)
	return set
}

func readRecords(t *testing.T, path string) []record.Record {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []record.Record
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var r record.Record
		require.NoError(t, codec.Default.Unmarshal([]byte(line), &r))
		out = append(out, r)
	}
	return out
}

func TestScanner_StreamEndToEnd(t *testing.T) {
	ctx := context.Background()
	outDir := t.TempDir()

	s, err := New(helloSet(t),
		WithOutputDir(outDir),
		WithChunkSize(4096),
		WithClock(fixedClock),
		WithNeedleConfig([]byte("- name: hello\n")),
	)
	require.NoError(t, err)
	assert.Equal(t, 1024, s.Carry())

	res, err := s.ScanReader(ctx, "haystack.bin", bytes.NewReader(helloHaystack()), 10005)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), res.Matches)
	assert.Equal(t, uint64(10005), res.LogicalBytes)
	assert.Equal(t, []uint64{1}, res.PerNeedle)
	require.Len(t, res.Events, 1)
	assert.Equal(t, uint64(5000), res.Events[0].Offset)
	assert.NotEmpty(t, res.ScanID)
	assert.Equal(t, filepath.Join(outDir, "results__haystack.bin__2024-03-01T12_30_45"), res.RunDir)

	const ctxName = "found_g_0x0000_0000_0000_0000_1388_startat_0xF88.bin"
	ctxData, err := os.ReadFile(filepath.Join(res.RunDir, "5_hello", ctxName))
	require.NoError(t, err)
	assert.Len(t, ctxData, 2053)
	assert.Equal(t, []byte("Hello"), ctxData[1024:1029])

	recs := readRecords(t, filepath.Join(res.RunDir, output.RecordLogName))
	require.Len(t, recs, 1)
	assert.Equal(t, "hello", recs[0].Name)
	assert.Equal(t, uint64(5000), recs[0].MatchStartGlobalOffset)
	assert.True(t, recs[0].HaystackWrittenToFile)
	require.NotNil(t, recs[0].HaystackFilePath)
	assert.Equal(t, "5_hello/"+ctxName, *recs[0].HaystackFilePath)
	assert.Equal(t, "2024-03-01T12:30:45", recs[0].FoundTimestampUTC)

	perNeedle := readRecords(t, filepath.Join(res.RunDir, "5_hello", "001_hello.jsonl"))
	assert.Equal(t, recs, perNeedle)

	cfg, err := os.ReadFile(filepath.Join(res.RunDir, output.NeedleConfigName))
	require.NoError(t, err)
	assert.Equal(t, "- name: hello\n", string(cfg))

	m, err := manifest.NewStore(fs.Default, res.RunDir).Load()
	require.NoError(t, err)
	assert.Equal(t, manifest.StatusCompleted, m.Status)
	assert.Equal(t, res.ScanID, m.ScanID)
	assert.Equal(t, "haystack.bin", m.Input)
	assert.Equal(t, int64(10005), m.InputSize)
	assert.Equal(t, 4096, m.ChunkSize)
	assert.Equal(t, 1024, m.Carry)
	assert.Equal(t, uint64(1), m.Totals.Matches)
	assert.Equal(t, uint64(1), m.Needles[0].Matches)

	logData, err := os.ReadFile(filepath.Join(res.RunDir, output.RecordLogName))
	require.NoError(t, err)
	assert.Equal(t, crc32.Checksum(logData, crc32.MakeTable(crc32.Castagnoli)), m.Totals.RecordLogCRC32C)
}

func TestScanner_IdempotentRerun(t *testing.T) {
	ctx := context.Background()
	outDir := t.TempDir()

	s, err := New(helloSet(t), WithOutputDir(outDir), WithChunkSize(4096), WithClock(fixedClock))
	require.NoError(t, err)

	snapshot := func(dir string) map[string]string {
		files := map[string]string{}
		require.NoError(t, filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || d.Name() == output.ManifestName {
				return err
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			rel, _ := filepath.Rel(dir, p)
			files[rel] = string(data)
			return nil
		}))
		return files
	}

	first, err := s.ScanReader(ctx, "haystack.bin", bytes.NewReader(helloHaystack()), -1)
	require.NoError(t, err)
	before := snapshot(first.RunDir)

	second, err := s.ScanReader(ctx, "haystack.bin", bytes.NewReader(helloHaystack()), -1)
	require.NoError(t, err)
	assert.Equal(t, first.RunDir, second.RunDir)
	assert.NotEqual(t, first.ScanID, second.ScanID)
	assert.Equal(t, before, snapshot(second.RunDir))
	assert.Len(t, before, 3)
}

func TestScanner_ScanBytes(t *testing.T) {
	s, err := New(helloSet(t), WithClock(fixedClock))
	require.NoError(t, err)

	res, err := s.ScanBytes(context.Background(), "mem", helloHaystack())
	require.NoError(t, err)
	assert.Empty(t, res.RunDir)
	assert.Equal(t, 1, res.Chunks)
	require.Len(t, res.Events, 1)
	assert.Equal(t, uint64(5000), res.Events[0].Offset)
	assert.Equal(t, startedAt, res.Events[0].FoundAt)
}

func TestScanner_ScanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, os.WriteFile(path, helloHaystack(), 0o600))

	for _, access := range []Access{AccessMmap, AccessStream} {
		t.Run(access.String(), func(t *testing.T) {
			s, err := New(helloSet(t), WithAccess(access), WithChunkSize(4096))
			require.NoError(t, err)

			res, err := s.ScanFile(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), res.Matches)
			assert.Equal(t, uint64(10005), res.LogicalBytes)
			if access == AccessMmap {
				assert.Equal(t, 1, res.Chunks)
			} else {
				assert.Greater(t, res.Chunks, 1)
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		s, err := New(helloSet(t))
		require.NoError(t, err)

		_, err = s.ScanFile(context.Background(), filepath.Join(t.TempDir(), "missing"))
		require.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, KindStartup, KindOf(err))
	})
}

func TestScanner_ScanBlobCompressed(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(helloHaystack())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "images/disk.img.gz", buf.Bytes()))

	s, err := New(helloSet(t), WithChunkSize(4096))
	require.NoError(t, err)

	res, err := s.ScanBlob(ctx, store, "images/disk.img.gz")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Matches)
	assert.Equal(t, uint64(10005), res.LogicalBytes)
	assert.Equal(t, uint64(buf.Len()), res.UpstreamBytes)
	require.Len(t, res.Events, 1)
	assert.Equal(t, uint64(5000), res.Events[0].Offset)

	_, err = s.ScanBlob(ctx, store, "missing")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.Equal(t, KindStartup, KindOf(err))
}

func TestScanner_ScanBlobInPlace(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "disk.img", helloHaystack()))

	s, err := New(helloSet(t), WithChunkSize(4096))
	require.NoError(t, err)

	res, err := s.ScanBlob(ctx, store, "disk.img")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, uint64(1), res.Matches)

	s, err = New(helloSet(t), WithChunkSize(4096), WithAccess(AccessStream))
	require.NoError(t, err)

	res, err = s.ScanBlob(ctx, store, "disk.img")
	require.NoError(t, err)
	assert.Greater(t, res.Chunks, 1)
	assert.Equal(t, uint64(1), res.Matches)
}

func TestScanner_ChunkBoundary(t *testing.T) {
	set, err := needle.NewSet([]needle.Needle{
		needle.New("magic", []byte("ABCDEFGH"), 3),
		needle.New("pair", []byte("aa"), 1),
	})
	require.NoError(t, err)

	data := make([]byte, 9000)
	copy(data[4092:], "ABCDEFGH") // spans the first chunk end at 4096
	copy(data[8000:], "aaaa")

	s, err := New(set, WithChunkSize(4096), WithCarry(16), WithRetainEvents(-1))
	require.NoError(t, err)

	res, err := s.ScanReader(context.Background(), "boundary", bytes.NewReader(data), -1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, res.PerNeedle)

	offsets := map[string][]uint64{}
	for _, ev := range res.Events {
		name := set.At(ev.NeedleID).Name
		offsets[name] = append(offsets[name], ev.Offset)
	}
	assert.Equal(t, []uint64{4092}, offsets["magic"])
	assert.Equal(t, []uint64{8000, 8001, 8002}, offsets["pair"])
}

func TestScanner_Metrics(t *testing.T) {
	mc := &BasicMetricsCollector{}
	s, err := New(helloSet(t), WithChunkSize(4096), WithMetricsCollector(mc))
	require.NoError(t, err)

	res, err := s.ScanReader(context.Background(), "zeros", bytes.NewReader(helloHaystack()), -1)
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(res.Chunks), stats.ChunkCount)
	assert.Equal(t, int64(res.SkippedChunks), stats.SkippedChunks)
	assert.GreaterOrEqual(t, stats.SkippedChunks, int64(1))
	assert.Equal(t, int64(1), stats.MatchCount)
	assert.Zero(t, stats.FatalFailures)
}

func TestScanner_SummaryLogged(t *testing.T) {
	var logs bytes.Buffer
	s, err := New(helloSet(t),
		WithOutputDir(t.TempDir()),
		WithChunkSize(4096),
		WithLogger(NewTextLoggerTo(&logs, slog.LevelInfo)),
	)
	require.NoError(t, err)

	_, err = s.ScanReader(context.Background(), "haystack.bin", bytes.NewReader(helloHaystack()), -1)
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "needle found")
	assert.Contains(t, out, "summary")
	assert.Contains(t, out, "happiness_level")
	assert.Contains(t, out, "scan completed")
}

func TestScanner_StartLogged(t *testing.T) {
	var logs bytes.Buffer
	s, err := New(helloSet(t),
		WithChunkSize(4096),
		WithResources(ResourceLimits{MemoryLimitBytes: 1 << 20}),
		WithLogger(NewTextLoggerTo(&logs, slog.LevelInfo)),
	)
	require.NoError(t, err)

	_, err = s.ScanReader(context.Background(), "haystack.bin", bytes.NewReader(helloHaystack()), -1)
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "scan started")
	assert.Contains(t, out, "context_before=1024")
	assert.Contains(t, out, "context_after=1024")
	assert.Contains(t, out, `memory_reserved="4.0 KiB"`)
}

func TestScanner_Export(t *testing.T) {
	ctx := context.Background()
	s, err := New(helloSet(t),
		WithOutputDir(t.TempDir()),
		WithChunkSize(4096),
		WithNeedleConfig([]byte("- name: hello\n")),
		WithResources(ResourceLimits{ExportWorkers: 2}),
	)
	require.NoError(t, err)

	res, err := s.ScanReader(ctx, "haystack.bin", bytes.NewReader(helloHaystack()), -1)
	require.NoError(t, err)

	dst := blobstore.NewMemoryStore()
	stats, err := s.Export(ctx, res.RunDir, dst, "runs/1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Files)

	names, err := dst.List(ctx, "runs/1/")
	require.NoError(t, err)
	assert.Contains(t, names, "runs/1/"+output.RecordLogName)
	assert.Contains(t, names, "runs/1/"+output.ManifestName)
	assert.Contains(t, names, "runs/1/5_hello/001_hello.jsonl")
}

func TestNew_Errors(t *testing.T) {
	t.Run("no needles", func(t *testing.T) {
		_, err := New(nil)
		require.ErrorIs(t, err, ErrNoNeedles)
		assert.Equal(t, KindStartup, KindOf(err))
		assert.True(t, IsFatal(err))
	})

	t.Run("chunk not larger than carry", func(t *testing.T) {
		_, err := New(helloSet(t), WithChunkSize(1024))
		require.ErrorIs(t, err, ErrInvalidChunkSize)

		var cs *ErrChunkSize
		require.True(t, errors.As(err, &cs))
		assert.Equal(t, 1024, cs.ChunkSize)
		assert.Equal(t, 1024, cs.Carry)
	})

	t.Run("carry too small", func(t *testing.T) {
		_, err := New(helloSet(t), WithCarry(2))
		require.ErrorIs(t, err, ErrCarryTooSmall)
		assert.Equal(t, KindStartup, KindOf(err))
	})
}

func TestDefaultCarry(t *testing.T) {
	long := needle.New("long", bytes.Repeat([]byte{'x'}, 40), 1)
	long.ContextBefore = 10
	set, err := needle.NewSet([]needle.Needle{long})
	require.NoError(t, err)

	carry, err := DefaultCarry(set)
	require.NoError(t, err)
	assert.Equal(t, 39, carry)

	huge := needle.New("huge", []byte("x"), 1)
	huge.ContextBefore = math.MaxUint64
	set, err = needle.NewSet([]needle.Needle{huge})
	require.NoError(t, err)

	_, err = DefaultCarry(set)
	require.Error(t, err)

	_, err = New(set)
	require.Error(t, err)
	assert.Equal(t, KindStartup, KindOf(err))
}

func TestScanner_OutputRootFailure(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	ffs.FailMkdir("results__", fs.ErrInjected)

	s, err := New(helloSet(t), WithOutputDir(t.TempDir()), withFileSystem(ffs))
	require.NoError(t, err)

	_, err = s.ScanBytes(context.Background(), "haystack.bin", helloHaystack())
	require.ErrorIs(t, err, fs.ErrInjected)
	assert.Equal(t, KindStartup, KindOf(err))
}

func TestScanner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := New(helloSet(t), WithOutputDir(t.TempDir()), WithChunkSize(4096))
	require.NoError(t, err)

	res, err := s.ScanReader(ctx, "haystack.bin", bytes.NewReader(helloHaystack()), -1)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)

	m, err := manifest.NewStore(fs.Default, res.RunDir).Load()
	require.NoError(t, err)
	assert.Equal(t, manifest.StatusFailed, m.Status)
}

func TestScanReader_Nil(t *testing.T) {
	s, err := New(helloSet(t))
	require.NoError(t, err)

	_, err = s.ScanReader(context.Background(), "x", nil, -1)
	require.ErrorIs(t, err, ErrNoInput)
}

var _ io.Closer = (*blobReader)(nil)
