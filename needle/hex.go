package needle

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidHex is returned when a hex needle value cannot be decoded.
var ErrInvalidHex = errors.New("needle: invalid hex value")

// ParseHex decodes a hex byte string. Three layouts are accepted:
//
//	"48656c6c6f"             contiguous pairs, optional leading "0x"
//	"48 65 6c 6c 6f"         whitespace separated bytes
//	"0x48 0x65 0x6c"         whitespace separated, "0x" prefixed
//
// A single digit ("f") is read as one byte. The empty string decodes to an
// empty slice; rejecting empty patterns is left to the Set.
func ParseHex(s string) ([]byte, error) {
	if strings.ContainsAny(s, " \t") || len(s) == 1 {
		fields := strings.Fields(s)
		out := make([]byte, 0, len(fields))
		for _, f := range fields {
			f = strings.TrimPrefix(f, "0x")
			if f == "" {
				continue
			}
			v, err := strconv.ParseUint(f, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidHex, f)
			}
			out = append(out, byte(v))
		}
		return out, nil
	}

	out, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidHex, s, err)
	}
	return out, nil
}
