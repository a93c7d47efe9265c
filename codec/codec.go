// Package codec centralizes the encoding of match records.
//
// Records are written one per line and read back by the summary step, so a
// codec change is a format boundary: logs written by one codec must still
// decode with the codec that reads them. Both built-in codecs produce plain
// JSON and are interchangeable for that reason.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// AppendLine encodes v with c and appends it to dst followed by a newline.
func AppendLine(c Codec, dst []byte, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec %s marshal failed: %w", c.Name(), err)
	}
	dst = append(dst, b...)
	return append(dst, '\n'), nil
}
