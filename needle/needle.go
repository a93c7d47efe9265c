package needle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultContextBefore is the number of bytes captured before a match.
	DefaultContextBefore uint64 = 1024
	// DefaultContextAfter is the number of bytes captured after a match.
	DefaultContextAfter uint64 = 1024

	// MaxHappinessLevel is the highest accepted happiness level.
	MaxHappinessLevel = 9
)

var (
	// ErrEmptyPattern is returned when a needle has a zero-length pattern.
	ErrEmptyPattern = errors.New("needle: empty pattern")

	// ErrInvalidHappiness is returned when a happiness level is outside 0-9.
	ErrInvalidHappiness = errors.New("needle: happiness level out of range")

	// ErrEmptyName is returned when a needle has no name.
	ErrEmptyName = errors.New("needle: empty name")
)

// Needle is a named exact byte pattern plus its capture policy.
type Needle struct {
	// ID is the position of the needle in its Set. Assigned by NewSet.
	ID int

	Name             string
	Pattern          []byte
	DescriptionNotes string

	// HappinessLevel is the significance from 0 to 9, where 9 is "very happy".
	HappinessLevel uint8

	// PersistContext writes the bytes surrounding each match to a file.
	PersistContext bool

	ContextBefore uint64
	ContextAfter  uint64
}

// New returns a needle with the default context window and context
// persistence enabled.
func New(name string, pattern []byte, happiness uint8) Needle {
	return Needle{
		Name:           name,
		Pattern:        pattern,
		HappinessLevel: happiness,
		PersistContext: true,
		ContextBefore:  DefaultContextBefore,
		ContextAfter:   DefaultContextAfter,
	}
}

// Validate reports whether the needle can take part in a scan.
func (n *Needle) Validate() error {
	if n.Name == "" {
		return ErrEmptyName
	}
	if len(n.Pattern) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyPattern, n.Name)
	}
	if n.HappinessLevel > MaxHappinessLevel {
		return fmt.Errorf("%w: %q has %d", ErrInvalidHappiness, n.Name, n.HappinessLevel)
	}
	return nil
}

// Len returns the pattern length.
func (n *Needle) Len() int { return len(n.Pattern) }

// IsPrintable reports whether every pattern byte is a graphic ASCII character.
// Space is not graphic.
func (n *Needle) IsPrintable() bool {
	for _, b := range n.Pattern {
		if b < 0x21 || b > 0x7e {
			return false
		}
	}
	return true
}

// ValueString renders the pattern as a decimal byte list, followed by the
// text form when the pattern is printable:
//
//	[72, 101, 108, 108, 111] ('Hello')
func (n *Needle) ValueString() string {
	var sb strings.Builder
	sb.Grow(len(n.Pattern)*5 + 2)
	sb.WriteByte('[')
	for i, b := range n.Pattern {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(int(b)))
	}
	sb.WriteByte(']')
	if n.IsPrintable() {
		sb.WriteString(" ('")
		sb.Write(n.Pattern)
		sb.WriteString("')")
	}
	return sb.String()
}

var happinessEmojis = []rune("😶😐🙂🙃😊😁😄😃😆😂")

// HappinessString renders the happiness level for log lines, e.g. "😊😊 (4)".
func (n *Needle) HappinessString() string {
	level := int(n.HappinessLevel)
	if level >= len(happinessEmojis) {
		return fmt.Sprintf("(%d)", level)
	}
	e := string(happinessEmojis[level])
	return fmt.Sprintf("%s%s (%d)", e, e, level)
}

// UniformByte reports whether the pattern consists of a single repeated byte
// value and returns that value.
func (n *Needle) UniformByte() (byte, bool) {
	if len(n.Pattern) == 0 {
		return 0, false
	}
	first := n.Pattern[0]
	for _, b := range n.Pattern[1:] {
		if b != first {
			return 0, false
		}
	}
	return first, true
}

// DirName returns the per-needle output directory name "{level}_{name}".
// Path separators in the name are replaced so the result is a single path
// element.
func (n *Needle) DirName() string {
	return fmt.Sprintf("%d_%s", n.HappinessLevel, SanitizeName(n.Name))
}

// SanitizeName replaces characters that cannot appear in a file name.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
}
