package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/haystack/internal/fs"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)

	ctx := context.Background()

	blobName := "run/00_all_output_record.jsonl"
	data := []byte("hello world, this is a test blob for haystack")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Close(), os.ErrClosed)

	_, err = os.Stat(filepath.Join(tmpDir, "run", "00_all_output_record.jsonl"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	rangeReader, err := blob.ReadRange(ctx, 13, 4)
	require.NoError(t, err)
	defer rangeReader.Close()

	rangeContent, err := io.ReadAll(rangeReader)
	require.NoError(t, err)
	require.Equal(t, "this", string(rangeContent))

	m, ok := blob.(Mappable)
	require.True(t, ok)
	b, err := m.Bytes()
	require.NoError(t, err)
	require.Equal(t, data, b)

	require.NoError(t, store.Put(ctx, "run/5_hello/001_hello.jsonl", []byte("{}\n")))

	blobs, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"run/00_all_output_record.jsonl", "run/5_hello/001_hello.jsonl"}, blobs)

	blobs, err = store.List(ctx, "run/5_")
	require.NoError(t, err)
	require.Equal(t, []string{"run/5_hello/001_hello.jsonl"}, blobs)

	require.NoError(t, store.Delete(ctx, blobName))
	require.NoError(t, store.Delete(ctx, blobName))

	blobsAfter, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"run/5_hello/001_hello.jsonl"}, blobsAfter)

	_, err = store.Open(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBlobStore_ReadRange_Boundaries(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	data := []byte("0123456789")
	require.NoError(t, store.Put(ctx, "boundary.bin", data))

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)
	defer blob.Close()

	r, err := blob.ReadRange(ctx, 0, 10)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, data, content)

	r, err = blob.ReadRange(ctx, 8, 5)
	require.NoError(t, err)
	content, err = io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "89", string(content))

	r, err = blob.ReadRange(ctx, 10, 5)
	require.NoError(t, err)
	content, err = io.ReadAll(r)
	require.NoError(t, err)
	require.Empty(t, content)

	_, err = blob.ReadRange(ctx, 20, 5)
	require.ErrorIs(t, err, io.EOF)

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 8)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, n)
}

func TestLocalBlobStore_EmptyRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestLocalBlobStore_NewReader(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "empty.bin", nil))
	require.NoError(t, store.Put(ctx, "full.bin", []byte("needle")))

	for name, want := range map[string]string{"empty.bin": "", "full.bin": "needle"} {
		blob, err := store.Open(ctx, name)
		require.NoError(t, err)
		r, err := NewReader(ctx, blob)
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		require.Equal(t, want, string(got))
		require.NoError(t, r.Close())
		require.NoError(t, blob.Close())
	}
}

func TestLocalBlobStore_FailedWriteLeavesNoBlob(t *testing.T) {
	dir := t.TempDir()
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("broken.bin", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	store := NewLocalStore(dir, WithFileSystem(faulty))
	ctx := context.Background()

	err := store.Put(ctx, "broken.bin", []byte("data"))
	require.ErrorIs(t, err, fs.ErrInjected)

	_, err = os.Stat(filepath.Join(dir, "broken.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(dir, "broken.bin.tmp"))
	require.ErrorIs(t, err, os.ErrNotExist)

	faulty.FailMkdir("nested", nil)
	_, err = store.Create(ctx, "nested/x.bin")
	require.ErrorIs(t, err, fs.ErrInjected)
}

func TestLocalBlobStore_Canceled(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Create(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
	_, err = store.List(ctx, "")
	require.ErrorIs(t, err, context.Canceled)
}
