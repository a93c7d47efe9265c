package needle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for a val_format other than hex or ascii.
var ErrUnknownFormat = errors.New("needle: unknown value format")

// ValueFormat selects how a configured needle value is turned into bytes.
type ValueFormat int

const (
	// FormatHex decodes the value with ParseHex.
	FormatHex ValueFormat = iota
	// FormatASCII uses the value's bytes as they are.
	FormatASCII
)

// ParseValueFormat parses "hex" or "ascii", ignoring case.
func ParseValueFormat(s string) (ValueFormat, error) {
	switch strings.ToLower(s) {
	case "hex":
		return FormatHex, nil
	case "ascii":
		return FormatASCII, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// String returns the configuration spelling.
func (f ValueFormat) String() string {
	if f == FormatASCII {
		return "ascii"
	}
	return "hex"
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *ValueFormat) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := ParseValueFormat(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Config is one entry of a needle file.
type Config struct {
	Name             string      `yaml:"name"`
	Val              string      `yaml:"val"`
	ValFormat        ValueFormat `yaml:"val_format"`
	DescriptionNotes string      `yaml:"description_notes"`
	HappinessLevel   uint8       `yaml:"happiness_level"`

	// WriteToFile defaults to true when absent.
	WriteToFile *bool `yaml:"write_to_file"`

	ByteCountBeforeMatch *uint64 `yaml:"byte_count_before_match"`
	ByteCountAfterMatch  *uint64 `yaml:"byte_count_after_match"`
}

// Needle converts the entry into a Needle.
func (c *Config) Needle() (Needle, error) {
	var pattern []byte
	switch c.ValFormat {
	case FormatASCII:
		pattern = []byte(c.Val)
	default:
		v, err := ParseHex(c.Val)
		if err != nil {
			return Needle{}, fmt.Errorf("needle %q: %w", c.Name, err)
		}
		pattern = v
	}

	n := New(c.Name, pattern, c.HappinessLevel)
	n.DescriptionNotes = c.DescriptionNotes
	if c.WriteToFile != nil {
		n.PersistContext = *c.WriteToFile
	}
	if c.ByteCountBeforeMatch != nil {
		n.ContextBefore = *c.ByteCountBeforeMatch
	}
	if c.ByteCountAfterMatch != nil {
		n.ContextAfter = *c.ByteCountAfterMatch
	}
	return n, nil
}

// Load decodes a YAML needle list and builds a Set from it.
func Load(r io.Reader) (*Set, error) {
	var entries []Config
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return NewSet(nil)
		}
		return nil, fmt.Errorf("needle: decode config: %w", err)
	}

	needles := make([]Needle, 0, len(entries))
	for i := range entries {
		n, err := entries[i].Needle()
		if err != nil {
			return nil, err
		}
		needles = append(needles, n)
	}
	return NewSet(needles)
}

// LoadFile reads a YAML needle file.
func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}
