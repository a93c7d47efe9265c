package output

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/haystack/needle"
	"github.com/hupe1980/haystack/record"
)

const (
	// RecordLogName is the scan-wide record log.
	RecordLogName = "00_all_output_record.jsonl"
	// GeneralLogName receives a copy of the text log.
	GeneralLogName = "01_general_log.log"
	// NeedleConfigName is the copy of the needle file.
	NeedleConfigName = "02_needle_config.yaml"
	// ManifestName is the scan manifest.
	ManifestName = "03_scan_manifest.json"

	runDirTimeLayout = "2006-01-02T15_04_05"
)

// RunDirName returns "results__{input}__{timestamp}" for a scan of input
// started at t. Only the base name of input is used.
func RunDirName(input string, t time.Time) string {
	base := filepath.Base(input)
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if base == "." || base == "" || base == "/" {
		base = "stdin"
	}
	return "results__" + needle.SanitizeName(base) + "__" + t.UTC().Format(runDirTimeLayout)
}

// NeedleLogName returns the per-needle record log name.
func NeedleLogName(n *needle.Needle) string {
	return "001_" + needle.SanitizeName(n.Name) + ".jsonl"
}

// ContextFileName names the context file of a match at off whose clipped
// window starts at windowStart.
func ContextFileName(off, windowStart uint64) string {
	return "found_g_0x" + record.FormatOffset(off, record.OffsetWidth) +
		"_startat_0x" + record.FormatOffset(windowStart, 1) + ".bin"
}

// ContextPath returns the context file path relative to the run directory,
// using forward slashes.
func ContextPath(n *needle.Needle, off, windowStart uint64) string {
	return path.Join(n.DirName(), ContextFileName(off, windowStart))
}
