// Package record defines the match event produced by a scan and the
// line-oriented record written for it.
//
// The Record JSON layout is a stable contract: the summary step groups
// records by name and aggregates counts and offsets, and older record logs
// must keep decoding.
package record

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hupe1980/haystack/codec"
	"github.com/hupe1980/haystack/needle"
)

// TimestampLayout is the layout of found_timestamp_utc (UTC, no zone suffix).
const TimestampLayout = "2006-01-02T15:04:05"

// OffsetWidth is the minimum hex width used when rendering global offsets in
// logs and file names.
const OffsetWidth = 20

// Match is one occurrence of a needle in the haystack.
type Match struct {
	NeedleID int

	// Offset is the absolute offset of the first matched byte in the logical
	// (decompressed) byte stream.
	Offset uint64

	// Value is the matched bytes. It aliases the needle pattern.
	Value       []byte
	ValueString string
	FoundAt     time.Time

	// Context holds the clipped context window. It aliases the chunk buffer
	// and is only valid until the next chunk is requested.
	Context     []byte
	WindowStart uint64

	ContextPersisted bool
	// ContextPath is the context file path relative to the output root.
	ContextPath string
	ContextName string
}

// WindowEnd returns the exclusive end offset of the context window.
func (m *Match) WindowEnd() uint64 { return m.WindowStart + uint64(len(m.Context)) }

// Record is the persisted form of a Match.
type Record struct {
	Name                   string    `json:"name"`
	MatchStartGlobalOffset uint64    `json:"match_start_global_offset"`
	Val                    ByteArray `json:"val"`
	ValAsStr               string    `json:"val_as_str"`
	DescriptionNotes       string    `json:"description_notes"`
	HappinessLevel         uint8     `json:"happiness_level"`
	FoundTimestampUTC      string    `json:"found_timestamp_utc"`

	HaystackWrittenToFile bool    `json:"haystack_written_to_file"`
	HaystackFilePath      *string `json:"haystack_file_path"`
	HaystackFileName      *string `json:"haystack_file_name"`
}

// New builds the record for m found by n.
func New(n *needle.Needle, m *Match) Record {
	r := Record{
		Name:                   n.Name,
		MatchStartGlobalOffset: m.Offset,
		Val:                    ByteArray(m.Value),
		ValAsStr:               m.ValueString,
		DescriptionNotes:       n.DescriptionNotes,
		HappinessLevel:         n.HappinessLevel,
		FoundTimestampUTC:      m.FoundAt.UTC().Format(TimestampLayout),
		HaystackWrittenToFile:  m.ContextPersisted,
	}
	if m.ContextPersisted {
		path, name := m.ContextPath, m.ContextName
		r.HaystackFilePath = &path
		r.HaystackFileName = &name
	}
	return r
}

// ByteArray marshals as a JSON array of integers rather than base64, so the
// log stays readable and matches the array-of-u8 layout.
type ByteArray []byte

// MarshalJSON implements json.Marshaler.
func (b ByteArray) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	out := make([]byte, 0, len(b)*4+2)
	out = append(out, '[')
	for i, v := range b {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(v), 10)
	}
	return append(out, ']'), nil
}

// UnmarshalJSON decodes a JSON array of byte values.
func (b *ByteArray) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}
	var wide []uint16
	if err := codec.Default.Unmarshal(data, &wide); err != nil {
		return err
	}
	out := make([]byte, len(wide))
	for i, v := range wide {
		if v > 255 {
			return fmt.Errorf("record: byte value %d out of range", v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
