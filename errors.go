package haystack

import (
	"errors"
	"fmt"

	"github.com/hupe1980/haystack/internal/engine"
	"github.com/hupe1980/haystack/internal/resource"
	"github.com/hupe1980/haystack/internal/source"
	"github.com/hupe1980/haystack/needle"
)

// Kind classifies an error by its effect on a scan.
type Kind = engine.Kind

const (
	// KindStartup errors are reported before the first chunk is read.
	KindStartup = engine.KindStartup
	// KindRuntime errors abort a running scan. Records already written stay.
	KindRuntime = engine.KindRuntime
	// KindRecoverable errors are logged and counted; the scan continues.
	KindRecoverable = engine.KindRecoverable
)

// Error is a classified scan error. Use errors.As to inspect it.
type Error = engine.Error

var (
	ErrEmptyPattern     = needle.ErrEmptyPattern
	ErrInvalidHappiness = needle.ErrInvalidHappiness
	ErrDuplicateName    = needle.ErrDuplicateName
	ErrInvalidHex       = needle.ErrInvalidHex

	ErrUnknownCompression = source.ErrUnknownCompression
	ErrUnknownAccess      = source.ErrUnknownAccess
	ErrInvalidChunkSize   = source.ErrInvalidChunkSize
	ErrProtocolViolation  = source.ErrProtocolViolation

	ErrCarryTooSmall = engine.ErrCarryTooSmall
	ErrContextWrite  = engine.ErrContextWrite
	ErrRecordAppend  = engine.ErrRecordAppend
	ErrNoNeedles     = engine.ErrNoNeedles

	ErrMemoryLimit = resource.ErrMemoryLimitExceeded

	// ErrNoInput is returned when a scan is started without a haystack.
	ErrNoInput = errors.New("no haystack input")
)

// ErrChunkSize indicates a chunk buffer that cannot hold the carry-forward
// region plus at least one fresh byte.
//
// errors.Is(err, ErrInvalidChunkSize) holds for it.
type ErrChunkSize struct {
	ChunkSize int
	Carry     int
}

func (e *ErrChunkSize) Error() string {
	return fmt.Sprintf("chunk size %d must exceed carry %d", e.ChunkSize, e.Carry)
}

func (e *ErrChunkSize) Unwrap() error { return ErrInvalidChunkSize }

// IsFatal reports whether err stops a scan. Errors without a kind are fatal.
func IsFatal(err error) bool { return engine.IsFatal(err) }

// KindOf returns the kind of err, or 0 if it has none.
func KindOf(err error) Kind { return engine.KindOf(err) }
