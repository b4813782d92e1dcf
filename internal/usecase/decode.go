package usecase

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"

	"tokenprep/internal/adapter/tokens"
)

// DecodeUseCase prints binary token files as text.
type DecodeUseCase struct {
	open OpenFunc
}

func NewDecodeUseCase(open OpenFunc) *DecodeUseCase {
	return &DecodeUseCase{open: open}
}

// Decode writes the tokens of in to w as space separated ids, perLine ids
// per line. perLine <= 0 puts every id on one line. It returns the number
// of tokens written.
func (u *DecodeUseCase) Decode(ctx context.Context, in string, stride tokens.Stride, perLine int, w io.Writer) (int64, error) {
	if err := stride.Validate(); err != nil {
		return 0, err
	}

	src, err := u.open(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("failed to open input: %w", err)
	}
	defer src.Close()

	r, err := tokens.NewReader(src, stride)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	var buf []byte
	for {
		v, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return r.Count(), err
		}
		n := r.Count()
		if n > 1 {
			if perLine > 0 && (n-1)%int64(perLine) == 0 {
				buf = append(buf, '\n')
			} else {
				buf = append(buf, ' ')
			}
		}
		buf = strconv.AppendInt(buf, int64(v), 10)
		if len(buf) > 32*1024 {
			if _, err := bw.Write(buf); err != nil {
				return n, err
			}
			buf = buf[:0]
		}
	}
	if r.Count() > 0 {
		buf = append(buf, '\n')
	}
	if _, err := bw.Write(buf); err != nil {
		return r.Count(), err
	}
	return r.Count(), bw.Flush()
}
