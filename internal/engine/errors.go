package engine

import (
	"errors"
	"fmt"
)

// Kind classifies a scan error by its effect on the scan.
type Kind int

const (
	// KindStartup errors prevent the scan from starting.
	KindStartup Kind = iota + 1
	// KindRuntime errors abort a running scan. Records already written stay.
	KindRuntime
	// KindRecoverable errors affect one match and the scan continues.
	KindRecoverable
)

func (k Kind) String() string {
	switch k {
	case KindStartup:
		return "startup"
	case KindRuntime:
		return "runtime"
	case KindRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

var (
	// ErrCarryTooSmall is returned when the carry-forward length cannot hold
	// the longest needle minus one byte.
	ErrCarryTooSmall = errors.New("carry shorter than longest needle minus one")

	// ErrContextWrite marks a failed context file write.
	ErrContextWrite = errors.New("context write failed")

	// ErrRecordAppend marks a failed record log append.
	ErrRecordAppend = errors.New("record append failed")

	// ErrNoNeedles is returned when the engine is built without a needle set.
	ErrNoNeedles = errors.New("no needle set")
)

// Error is a classified scan error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Startup wraps err as a startup error. Errors that already carry a kind are
// returned unchanged.
func Startup(op string, err error) error { return wrap(KindStartup, op, err) }

// Runtime wraps err as a runtime error.
func Runtime(op string, err error) error { return wrap(KindRuntime, op, err) }

// Recoverable wraps err as a recoverable error.
func Recoverable(op string, err error) error { return wrap(KindRecoverable, op, err) }

func wrap(k Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: k, Op: op, Err: err}
}

// KindOf returns the kind of err, or 0 if it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsFatal reports whether err stops a scan. Unclassified errors are fatal.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) != KindRecoverable
}
