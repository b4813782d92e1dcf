package lines

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns the raw bytes of one line into text.
type Decoder interface {
	Decode(raw []byte) (string, error)
}

// DecodeError reports a line that could not be decoded.
type DecodeError struct {
	Line   int    // 1-based physical line number
	Offset int64  // byte offset of the start of the line
	Prev   string // last line decoded successfully
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error on line %d after %q: %v", e.Line, e.Prev, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NewDecoder returns a decoder for the named encoding. Empty, "utf-8" and
// "utf8" select strict UTF-8; anything else is looked up as a WHATWG label.
// Lines are split on the byte 0x0A, so encodings that do not write '\n' as
// that single byte (UTF-16) are rejected.
func NewDecoder(name string) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return utf8Decoder{}, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == unicode.UTF8 {
		return utf8Decoder{}, nil
	}
	if !newlineCompatible(enc) {
		return nil, fmt.Errorf("encoding %q does not encode newline as a single 0x0A byte", name)
	}
	return &charsetDecoder{enc: enc}, nil
}

func newlineCompatible(enc encoding.Encoding) bool {
	nl, err := enc.NewEncoder().Bytes([]byte("\n"))
	return err == nil && bytes.Equal(nl, []byte("\n"))
}

type utf8Decoder struct{}

func (utf8Decoder) Decode(raw []byte) (string, error) {
	if _, _, err := transform.Bytes(encoding.UTF8Validator, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

type charsetDecoder struct {
	enc encoding.Encoding
}

func (d *charsetDecoder) Decode(raw []byte) (string, error) {
	out, err := d.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
