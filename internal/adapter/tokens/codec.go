// Package tokens converts token id sequences to and from headerless
// fixed-width little-endian binary. Stride 2 stores uint16 values and
// stride 4 stores int32 values; the stride is not recorded in the data and
// must be the same on both sides.
package tokens

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Stride is the number of bytes per serialized token.
type Stride int

const (
	Stride16 Stride = 2
	Stride32 Stride = 4
)

var (
	ErrInvalidStride = errors.New("tokens: stride must be 2 or 4")
	ErrTokenRange    = errors.New("tokens: token does not fit stride")
	ErrBufferLength  = errors.New("tokens: buffer length is not a multiple of stride")
)

// Validate returns ErrInvalidStride unless s is 2 or 4.
func (s Stride) Validate() error {
	if s != Stride16 && s != Stride32 {
		return fmt.Errorf("%w: got %d", ErrInvalidStride, int(s))
	}
	return nil
}

// Fits reports whether v can be stored with stride s.
func (s Stride) Fits(v int) bool {
	switch s {
	case Stride16:
		return v >= 0 && v <= math.MaxUint16
	case Stride32:
		return v >= math.MinInt32 && v <= math.MaxInt32
	}
	return false
}

// Width returns the narrowest stride that holds every id below vocabSize.
func Width(vocabSize int) Stride {
	if vocabSize <= math.MaxUint16+1 {
		return Stride16
	}
	return Stride32
}

// ToBuffer serializes tokens with stride s.
func ToBuffer(tokens []int, s Stride) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, len(tokens)*int(s))
	if err := put(buf, tokens, s); err != nil {
		return nil, err
	}
	return buf, nil
}

// FromBuffer deserializes data written with stride s.
func FromBuffer(data []byte, s Stride) ([]int, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(data)%int(s) != 0 {
		return nil, fmt.Errorf("%w: %d bytes, stride %d", ErrBufferLength, len(data), int(s))
	}
	out := make([]int, len(data)/int(s))
	for i := range out {
		off := i * int(s)
		if s == Stride16 {
			out[i] = int(binary.LittleEndian.Uint16(data[off:]))
		} else {
			out[i] = int(int32(binary.LittleEndian.Uint32(data[off:])))
		}
	}
	return out, nil
}

// ToFile writes tokens to w with stride s. Nothing is written if the stride
// is invalid or any token is out of range.
func ToFile(w io.Writer, tokens []int, s Stride) error {
	buf, err := ToBuffer(tokens, s)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("tokens: write: %w", err)
	}
	return nil
}

// FromFile reads all of r as tokens with stride s.
func FromFile(r io.Reader, s Stride) ([]int, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tokens: read: %w", err)
	}
	return FromBuffer(data, s)
}

// Reader streams tokens from r without loading the whole input.
type Reader struct {
	br  *bufio.Reader
	s   Stride
	buf []byte
	n   int64
}

// NewReader returns a Reader for stride s.
func NewReader(r io.Reader, s Stride) (*Reader, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Reader{br: bufio.NewReaderSize(r, 64*1024), s: s, buf: make([]byte, int(s))}, nil
}

// Next returns the next token. It returns io.EOF at a clean end of input
// and ErrBufferLength when the input ends inside a token.
func (r *Reader) Next() (int, error) {
	_, err := io.ReadFull(r.br, r.buf)
	switch {
	case err == io.EOF:
		return 0, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return 0, fmt.Errorf("%w: trailing bytes after token %d", ErrBufferLength, r.n)
	case err != nil:
		return 0, fmt.Errorf("tokens: read: %w", err)
	}
	r.n++
	if r.s == Stride16 {
		return int(binary.LittleEndian.Uint16(r.buf)), nil
	}
	return int(int32(binary.LittleEndian.Uint32(r.buf))), nil
}

// Count returns the number of tokens read so far.
func (r *Reader) Count() int64 { return r.n }

func put(buf []byte, tokens []int, s Stride) error {
	for i, v := range tokens {
		if !s.Fits(v) {
			return fmt.Errorf("%w: token %d at index %d, stride %d", ErrTokenRange, v, i, int(s))
		}
		off := i * int(s)
		if s == Stride16 {
			binary.LittleEndian.PutUint16(buf[off:], uint16(v))
		} else {
			binary.LittleEndian.PutUint32(buf[off:], uint32(int32(v)))
		}
	}
	return nil
}
