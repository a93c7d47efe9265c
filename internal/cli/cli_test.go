package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/haystack"
	"github.com/hupe1980/haystack/codec"
	"github.com/hupe1980/haystack/internal/output"
	"github.com/hupe1980/haystack/needle"
	"github.com/hupe1980/haystack/record"
)

const needleYAML = `
- name: hello
  val: "48 65 6c 6c 6f"
  val_format: hex
  description_notes: greeting
  happiness_level: 5
- name: world
  val: World
  val_format: ascii
  happiness_level: 2
  write_to_file: false
`

func writeFixtures(t *testing.T) (dir, needles, input string) {
	t.Helper()
	dir = t.TempDir()

	needles = filepath.Join(dir, "needles.yaml")
	require.NoError(t, os.WriteFile(needles, []byte(needleYAML), 0o644))

	data := make([]byte, 20000)
	copy(data[5000:], "Hello")
	copy(data[12000:], "World")
	input = filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(input, data, 0o644))
	return dir, needles, input
}

func execute(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(bytes.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func findRunDir(t *testing.T, outDir, input string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(outDir, "results__"+input+"__*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	return matches[0]
}

func TestScanCmd_File(t *testing.T) {
	dir, needles, input := writeFixtures(t)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, nil, "scan",
		"-i", input,
		"-n", needles,
		"-o", outDir,
		"--access", "stream",
		"--chunk-size", "4KiB",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "needle found")
	assert.Contains(t, out, "scan completed")

	runDir := findRunDir(t, outDir, "disk.img")
	for _, name := range []string{
		output.RecordLogName,
		output.GeneralLogName,
		output.NeedleConfigName,
		output.ManifestName,
		filepath.Join("5_hello", "001_hello.jsonl"),
		filepath.Join("2_world", "001_world.jsonl"),
	} {
		assert.FileExists(t, filepath.Join(runDir, name))
	}

	cfg, err := os.ReadFile(filepath.Join(runDir, output.NeedleConfigName))
	require.NoError(t, err)
	assert.Equal(t, needleYAML, string(cfg))

	generalLog, err := os.ReadFile(filepath.Join(runDir, output.GeneralLogName))
	require.NoError(t, err)
	assert.Contains(t, string(generalLog), "needle found")

	ctxFiles, err := filepath.Glob(filepath.Join(runDir, "5_hello", "found_g_*.bin"))
	require.NoError(t, err)
	assert.Len(t, ctxFiles, 1)
	ctxFiles, err = filepath.Glob(filepath.Join(runDir, "2_world", "found_g_*.bin"))
	require.NoError(t, err)
	assert.Empty(t, ctxFiles)
}

func TestScanCmd_Stdin(t *testing.T) {
	dir, needles, input := writeFixtures(t)
	data, err := os.ReadFile(input)
	require.NoError(t, err)

	_, err = execute(t, data, "scan", "-i", "-", "-n", needles, "-o", dir, "--chunk-size", "8KiB")
	require.NoError(t, err)

	runDir := findRunDir(t, dir, "stdin")
	assert.FileExists(t, filepath.Join(runDir, output.RecordLogName))
}

func TestScanCmd_Errors(t *testing.T) {
	dir, needles, input := writeFixtures(t)

	_, err := execute(t, nil, "scan", "-i", input, "-n", needles, "-o", dir, "--compression", "rar")
	require.ErrorIs(t, err, haystack.ErrUnknownCompression)

	_, err = execute(t, nil, "scan", "-i", input, "-n", needles, "-o", dir, "--chunk-size", "lots")
	require.ErrorContains(t, err, "--chunk-size")

	_, err = execute(t, nil, "scan", "-i", input, "-n", filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, nil, "scan", "-n", needles)
	require.ErrorContains(t, err, "input")

	_, err = execute(t, nil, "scan", "-i", input, "-n", needles, "-o", dir, "--chunk-size", "1KiB", "--access", "stream")
	require.ErrorIs(t, err, haystack.ErrInvalidChunkSize)
}

func TestSummaryCmd(t *testing.T) {
	set, err := needle.NewSet([]needle.Needle{
		needle.New("alpha", []byte("a"), 3),
		needle.New("beta", []byte("b"), 7),
	})
	require.NoError(t, err)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var buf []byte
	for _, m := range []struct {
		id  int
		off uint64
	}{{0, 10}, {1, 20}, {0, 30}} {
		n := set.At(m.id)
		buf, err = codec.AppendLine(codec.Default, buf, record.New(n, &record.Match{
			NeedleID: m.id,
			Offset:   m.off,
			Value:    n.Pattern,
			FoundAt:  at,
		}))
		require.NoError(t, err)
	}
	path := filepath.Join(t.TempDir(), output.RecordLogName)
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	out, err := execute(t, nil, "summary", "--plain", path)
	require.NoError(t, err)
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
	assert.Less(t, bytes.Index([]byte(out), []byte("beta")), bytes.Index([]byte(out), []byte("alpha")))

	_, err = execute(t, nil, "summary", filepath.Join(t.TempDir(), "missing.jsonl"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Haystack version dev")
}

func TestScanFlags_Level(t *testing.T) {
	f := &ScanFlags{LogLevel: "debug"}
	_, err := f.Level()
	require.NoError(t, err)

	f.LogLevel = "loud"
	_, err = f.Level()
	require.Error(t, err)
}

func TestParseSize(t *testing.T) {
	n, err := parseSize("chunk-size", "16MiB")
	require.NoError(t, err)
	assert.Equal(t, uint64(16<<20), n)

	n, err = parseSize("io-limit", "")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = parseSize("io-limit", "fast")
	require.ErrorContains(t, err, "--io-limit")
}
