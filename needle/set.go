package needle

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"
)

// ErrDuplicateName is returned when two needles share a name.
var ErrDuplicateName = errors.New("needle: duplicate name")

// Set is an immutable, ordered collection of validated needles.
// A needle's ID is its index in the set.
type Set struct {
	needles   []Needle
	maxLen    int
	maxBefore uint64
	maxAfter  uint64
}

// NewSet validates the needles and assigns their IDs in order.
// The input slice is copied; pattern bytes are copied as well so later
// mutation by the caller cannot change a running scan.
func NewSet(needles []Needle) (*Set, error) {
	s := &Set{needles: make([]Needle, len(needles))}
	seen := make(map[string]struct{}, len(needles))
	dirs := make(map[string]string, len(needles))

	for i, n := range needles {
		if err := n.Validate(); err != nil {
			return nil, fmt.Errorf("needle %d: %w", i, err)
		}
		if _, dup := seen[n.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, n.Name)
		}
		seen[n.Name] = struct{}{}
		if other, dup := dirs[n.DirName()]; dup {
			return nil, fmt.Errorf("%w: %q and %q share output directory %q", ErrDuplicateName, other, n.Name, n.DirName())
		}
		dirs[n.DirName()] = n.Name

		n.ID = i
		n.Pattern = append([]byte(nil), n.Pattern...)
		s.needles[i] = n

		s.maxLen = max(s.maxLen, len(n.Pattern))
		s.maxBefore = max(s.maxBefore, n.ContextBefore)
		s.maxAfter = max(s.maxAfter, n.ContextAfter)
	}
	return s, nil
}

// Len returns the number of needles.
func (s *Set) Len() int { return len(s.needles) }

// At returns the needle with the given ID.
func (s *Set) At(id int) *Needle { return &s.needles[id] }

// Needles returns the needles in ID order. The slice must not be modified.
func (s *Set) Needles() []Needle { return s.needles }

// Patterns returns the byte patterns in ID order.
func (s *Set) Patterns() [][]byte {
	out := make([][]byte, len(s.needles))
	for i := range s.needles {
		out[i] = s.needles[i].Pattern
	}
	return out
}

// MaxPatternLen returns the length of the longest pattern.
func (s *Set) MaxPatternLen() int { return s.maxLen }

// MaxContextBefore returns the largest before-context size of any needle.
func (s *Set) MaxContextBefore() uint64 { return s.maxBefore }

// MaxContextAfter returns the largest after-context size of any needle.
func (s *Set) MaxContextAfter() uint64 { return s.maxAfter }

// MinCarry is the smallest carry-forward length that keeps every pattern
// visible across a chunk boundary.
func (s *Set) MinCarry() int {
	if s.maxLen == 0 {
		return 0
	}
	return s.maxLen - 1
}

// Fingerprint identifies the set's patterns and policies. Two sets with the
// same needles in the same order share a fingerprint.
func (s *Set) Fingerprint() string {
	h := xxh3.New()
	var buf [8]byte
	for i := range s.needles {
		n := &s.needles[i]
		_, _ = h.WriteString(n.Name)
		_, _ = h.Write([]byte{0, n.HappinessLevel})
		if n.PersistContext {
			_, _ = h.Write([]byte{1})
		} else {
			_, _ = h.Write([]byte{0})
		}
		binary.LittleEndian.PutUint64(buf[:], n.ContextBefore)
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], n.ContextAfter)
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(len(n.Pattern)))
		_, _ = h.Write(buf[:])
		_, _ = h.Write(n.Pattern)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
