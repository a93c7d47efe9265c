package record

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidOffset is returned when a rendered offset cannot be parsed.
var ErrInvalidOffset = errors.New("record: invalid hex offset")

// FormatOffset renders v as uppercase hexadecimal, zero-padded to at least
// width digits and grouped in fours from the right with '_':
//
//	FormatOffset(0xFFFFFFFF, 8) == "FFFF_FFFF"
//	FormatOffset(15, 8)         == "0000_000F"
//	FormatOffset(16, 1)         == "10"
func FormatOffset(v uint64, width int) string {
	digits := strings.ToUpper(strconv.FormatUint(v, 16))
	if pad := width - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	if len(digits) <= 4 {
		return digits
	}

	var sb strings.Builder
	sb.Grow(len(digits) + len(digits)/4)
	head := len(digits) % 4
	if head > 0 {
		sb.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 4 {
		if sb.Len() > 0 {
			sb.WriteByte('_')
		}
		sb.WriteString(digits[i : i+4])
	}
	return sb.String()
}

// ParseOffset parses a FormatOffset rendering. Separators and an optional
// "0x" prefix are ignored.
func ParseOffset(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.ReplaceAll(s, "_", "")
	if s == "" {
		return 0, ErrInvalidOffset
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, errors.Join(ErrInvalidOffset, err)
	}
	return v, nil
}
