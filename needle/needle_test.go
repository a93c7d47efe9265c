package needle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	hello := []byte{0x72, 0x65, 0x6c, 0x6c, 0x6f}

	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{name: "concatenated", in: "72656c6c6f", want: hello},
		{name: "concatenated with prefix", in: "0x72656c6c6f", want: hello},
		{name: "space separated", in: "72 65 6c 6c 6f", want: hello},
		{name: "multiple spaces", in: "72    65 6c  6c 6f", want: hello},
		{name: "0x prefixed", in: "0x72 0x65 0x6c 0x6c 0x6f", want: hello},
		{name: "one character", in: "f", want: []byte{0x0f}},
		{name: "empty", in: "", want: []byte{}},
		{name: "odd characters", in: "123", wantErr: true},
		{name: "odd characters spaced", in: "12 123", wantErr: true},
		{name: "non hex spaced", in: "72 65 6g 6c 6f", wantErr: true},
		{name: "all non hex", in: "xyz", wantErr: true},
		{name: "mixed", in: "72 65 6z 6c 6f", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidHex)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNeedle_ValueString(t *testing.T) {
	n := New("hello", []byte("Hello"), 5)
	assert.Equal(t, "[72, 101, 108, 108, 111] ('Hello')", n.ValueString())

	n = New("spaced", []byte("a b"), 5)
	assert.Equal(t, "[97, 32, 98]", n.ValueString())

	n = New("binary", []byte{0xde, 0xad}, 1)
	assert.Equal(t, "[222, 173]", n.ValueString())
}

func TestNeedle_HappinessString(t *testing.T) {
	n := New("x", []byte("x"), 4)
	assert.Equal(t, "😊😊 (4)", n.HappinessString())

	n.HappinessLevel = 0
	assert.Equal(t, "😶😶 (0)", n.HappinessString())
}

func TestNeedle_UniformByte(t *testing.T) {
	n := New("zeros", []byte{0, 0, 0}, 1)
	b, ok := n.UniformByte()
	assert.True(t, ok)
	assert.Equal(t, byte(0), b)

	n = New("mixed", []byte{0, 1}, 1)
	_, ok = n.UniformByte()
	assert.False(t, ok)
}

func TestNeedle_DirName(t *testing.T) {
	n := New("a/b", []byte("x"), 7)
	assert.Equal(t, "7_a_b", n.DirName())
}

func TestNewSet(t *testing.T) {
	t.Run("assigns ids in order", func(t *testing.T) {
		s, err := NewSet([]Needle{
			New("first", []byte("abc"), 1),
			New("second", []byte("de"), 2),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, 0, s.At(0).ID)
		assert.Equal(t, 1, s.At(1).ID)
		assert.Equal(t, 3, s.MaxPatternLen())
		assert.Equal(t, 2, s.MinCarry())
		assert.Equal(t, DefaultContextBefore, s.MaxContextBefore())
	})

	t.Run("rejects empty pattern", func(t *testing.T) {
		_, err := NewSet([]Needle{New("empty", nil, 1)})
		require.ErrorIs(t, err, ErrEmptyPattern)
	})

	t.Run("rejects happiness above nine", func(t *testing.T) {
		_, err := NewSet([]Needle{New("loud", []byte("x"), 10)})
		require.ErrorIs(t, err, ErrInvalidHappiness)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := NewSet([]Needle{New("a", []byte("x"), 1), New("a", []byte("y"), 1)})
		require.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("rejects names equal after sanitising", func(t *testing.T) {
		_, err := NewSet([]Needle{New("a/b", []byte("x"), 1), New("a_b", []byte("y"), 1)})
		require.ErrorIs(t, err, ErrDuplicateName)

		s, err := NewSet([]Needle{New("a/b", []byte("x"), 1), New("a_b", []byte("y"), 2)})
		require.NoError(t, err)
		assert.NotEqual(t, s.At(0).DirName(), s.At(1).DirName())
	})

	t.Run("copies patterns", func(t *testing.T) {
		p := []byte("abc")
		s, err := NewSet([]Needle{New("a", p, 1)})
		require.NoError(t, err)
		p[0] = 'z'
		assert.Equal(t, []byte("abc"), s.At(0).Pattern)
	})
}

func TestSet_Fingerprint(t *testing.T) {
	a, err := NewSet([]Needle{New("a", []byte("x"), 1)})
	require.NoError(t, err)
	b, err := NewSet([]Needle{New("a", []byte("x"), 1)})
	require.NoError(t, err)
	c, err := NewSet([]Needle{New("a", []byte("y"), 1)})
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 16)
}

const sampleConfig = `
- name: "Example Needle 1"
  val: "48 65 6c 6c 6f"
  val_format: hex
  description_notes: "hello in hex"
  happiness_level: 5
- name: "Example Needle 2"
  val: "World"
  val_format: ASCII
  description_notes: "plain text"
  happiness_level: 3
  write_to_file: false
- name: "Example Needle 3"
  val: "0xde 0xad 0xbe 0xef"
  val_format: hex
  description_notes: "magic"
  happiness_level: 9
  byte_count_before_match: 16
  byte_count_after_match: 32
`

func TestLoad(t *testing.T) {
	s, err := Load(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	n1 := s.At(0)
	assert.Equal(t, "Example Needle 1", n1.Name)
	assert.Equal(t, []byte("Hello"), n1.Pattern)
	assert.True(t, n1.PersistContext)
	assert.Equal(t, DefaultContextBefore, n1.ContextBefore)

	n2 := s.At(1)
	assert.Equal(t, []byte("World"), n2.Pattern)
	assert.False(t, n2.PersistContext)

	n3 := s.At(2)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, n3.Pattern)
	assert.Equal(t, uint64(16), n3.ContextBefore)
	assert.Equal(t, uint64(32), n3.ContextAfter)
	assert.Equal(t, uint8(9), n3.HappinessLevel)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(strings.NewReader(`- {name: a, val: "zz zz", val_format: hex, happiness_level: 1}`))
	require.ErrorIs(t, err, ErrInvalidHex)

	_, err = Load(strings.NewReader(`- {name: a, val: "x", val_format: base64, happiness_level: 1}`))
	require.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Load(strings.NewReader(`- {name: a, val: "", val_format: ascii, happiness_level: 1}`))
	require.ErrorIs(t, err, ErrEmptyPattern)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "needles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
