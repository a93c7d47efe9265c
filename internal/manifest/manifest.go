package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hupe1980/haystack/internal/fs"
	"github.com/hupe1980/haystack/needle"
)

const (
	// FileName is the manifest's name inside the run directory.
	FileName = "03_scan_manifest.json"
	// CurrentVersion is the version of the manifest format.
	CurrentVersion = 1
)

var (
	// ErrNotFound is returned by Load when the run directory has no manifest.
	ErrNotFound = errors.New("manifest: not found")

	// ErrIncompatibleVersion is returned by Load for a manifest of another
	// format version.
	ErrIncompatibleVersion = errors.New("manifest: unsupported version")
)

// Status is the lifecycle state of a scan.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Manifest describes one scan.
type Manifest struct {
	Version int    `json:"version"`
	ScanID  string `json:"scan_id"`

	Input       string `json:"input"`
	InputSize   int64  `json:"input_size"` // -1 if unknown
	Access      string `json:"access"`
	Compression string `json:"compression"`
	ChunkSize   int    `json:"chunk_size"`
	Carry       int    `json:"carry"`

	NeedleFingerprint string       `json:"needle_fingerprint"`
	Needles           []NeedleInfo `json:"needles"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`

	Totals Totals `json:"totals"`
}

// NeedleInfo describes a needle without its pattern bytes.
type NeedleInfo struct {
	Name           string `json:"name"`
	HappinessLevel uint8  `json:"happiness_level"`
	PatternLen     int    `json:"pattern_len"`
	PersistContext bool   `json:"persist_context"`
	Matches        uint64 `json:"matches"`
}

// Totals are the scan counters at the time of the last save.
type Totals struct {
	LogicalBytes    uint64 `json:"logical_bytes"`
	UpstreamBytes   uint64 `json:"upstream_bytes"`
	Chunks          int    `json:"chunks"`
	SkippedChunks   int    `json:"skipped_chunks"`
	PartialReads    int    `json:"partial_reads"`
	Matches         uint64 `json:"matches"`
	Duplicates      uint64 `json:"duplicates"`
	ContextFailures uint64 `json:"context_failures"`
	RecordFailures  uint64 `json:"record_failures"`

	// RecordLogCRC32C is the CRC32C of the scan-wide record log, zero when
	// the scan wrote no run directory.
	RecordLogCRC32C uint32 `json:"record_log_crc32c,omitempty"`
}

// NewScanID returns a fresh random scan identifier.
func NewScanID() string {
	return uuid.NewString()
}

// New creates a running manifest for a scan of set.
func New(scanID string, set *needle.Set, started time.Time) *Manifest {
	m := &Manifest{
		Version:           CurrentVersion,
		ScanID:            scanID,
		InputSize:         -1,
		NeedleFingerprint: set.Fingerprint(),
		Needles:           make([]NeedleInfo, set.Len()),
		StartedAt:         started.UTC(),
		Status:            StatusRunning,
	}
	for i, n := range set.Needles() {
		m.Needles[i] = NeedleInfo{
			Name:           n.Name,
			HappinessLevel: n.HappinessLevel,
			PatternLen:     n.Len(),
			PersistContext: n.PersistContext,
		}
	}
	return m
}

// Finish marks the scan as ended at t. A nil err means it completed.
// perNeedle holds match counts in needle order and may be nil.
func (m *Manifest) Finish(t time.Time, totals Totals, perNeedle []uint64, err error) {
	ft := t.UTC()
	m.FinishedAt = &ft
	m.Totals = totals
	for i := range m.Needles {
		if i < len(perNeedle) {
			m.Needles[i].Matches = perNeedle[i]
		}
	}
	if err != nil {
		m.Status = StatusFailed
		m.Error = err.Error()
		return
	}
	m.Status = StatusCompleted
	m.Error = ""
}

// Store reads and writes the manifest of one run directory.
type Store struct {
	fs  fs.FileSystem
	dir string
	mu  sync.Mutex
}

// NewStore creates a manifest store for dir. A nil fsys uses the local
// filesystem.
func NewStore(fsys fs.FileSystem, dir string) *Store {
	if fsys == nil {
		fsys = fs.Default
	}
	return &Store{
		fs:  fsys,
		dir: dir,
	}
}

// Path returns the manifest path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Load reads the manifest.
func (s *Store) Load() (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fs.OpenFile(s.Path(), os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := gojson.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d (expected %d)", ErrIncompatibleVersion, m.Version, CurrentVersion)
	}
	return &m, nil
}

// Save atomically replaces the manifest.
func (s *Store) Save(m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = CurrentVersion
	data, err := gojson.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	path := s.Path()
	tmpPath := path + ".tmp"
	f, err := s.fs.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmpPath)
		return err
	}

	if err := s.fs.Rename(tmpPath, path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return err
	}
	return nil
}
