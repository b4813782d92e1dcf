package usecase

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"tokenprep/internal/adapter/lines"
	"tokenprep/internal/adapter/tokens"
	"tokenprep/internal/domain"
	"tokenprep/internal/logging"
	"tokenprep/internal/port"
)

// OpenFunc opens a file for reading.
type OpenFunc func(ctx context.Context, name string) (port.File, error)

// EncodeUseCase converts text files of token ids into binary token files.
type EncodeUseCase struct {
	fsys         port.FileSystem
	open         OpenFunc
	logger       *slog.Logger
	ignoreErrors bool
	opts         []lines.Option
}

// NewEncodeUseCase creates an encode use case. open defaults to a plain
// read-only open on fsys.
func NewEncodeUseCase(fsys port.FileSystem, open OpenFunc, logger *slog.Logger, ignoreErrors bool, opts ...lines.Option) *EncodeUseCase {
	if open == nil {
		open = func(ctx context.Context, name string) (port.File, error) {
			return fsys.OpenFile(ctx, name, os.O_RDONLY, 0)
		}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &EncodeUseCase{
		fsys:         fsys,
		open:         open,
		logger:       logger,
		ignoreErrors: ignoreErrors,
		opts:         opts,
	}
}

// Encode reads whitespace separated token ids, one sequence per line, from
// in and appends them to out with the given stride.
func (u *EncodeUseCase) Encode(ctx context.Context, in, out string, stride tokens.Stride) (*domain.EncodeSummary, error) {
	if err := stride.Validate(); err != nil {
		return nil, err
	}

	src, err := u.open(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer src.Close()

	dst, err := u.fsys.OpenFile(ctx, out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}

	summary, err := u.encode(src, dst, stride)
	if err != nil {
		u.discard(dst, out)
		return nil, err
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output: %w", err)
	}
	return summary, nil
}

func (u *EncodeUseCase) encode(src io.ReadSeeker, dst io.Writer, stride tokens.Stride) (*domain.EncodeSummary, error) {
	opts := append([]lines.Option{lines.WithMessage("Encoding tokens"), lines.WithIgnoreErrors(u.ignoreErrors)}, u.opts...)
	it, err := lines.ForEachLine(src, opts...)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	bw := bufio.NewWriterSize(dst, 1<<20)
	summary := &domain.EncodeSummary{}
	for it.Next() {
		summary.Lines++
		ids, err := parseIDs(it.Line(), stride)
		if err != nil {
			if !u.ignoreErrors {
				return nil, fmt.Errorf("line %d: %w", it.Index()+1, err)
			}
			u.logger.Warn("skipping line", "line", it.Index()+1, "err", err)
			summary.Skipped++
			continue
		}
		if err := tokens.ToFile(bw, ids, stride); err != nil {
			return nil, err
		}
		summary.Tokens += len(ids)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	summary.Skipped += it.Skipped()
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	summary.Bytes = int64(summary.Tokens) * int64(stride)
	return summary, nil
}

// discard drops a partially written output. Files that cannot abort are
// closed, which for remote files still commits them.
func (u *EncodeUseCase) discard(dst port.File, name string) {
	a, ok := dst.(port.Aborter)
	if !ok {
		dst.Close()
		u.logger.Warn("partial output left in place", "path", name)
		return
	}
	if err := a.Abort(); err != nil {
		u.logger.Warn("failed to discard partial output", "path", name, "err", err)
	}
}

func parseIDs(line string, stride tokens.Stride) ([]int, error) {
	fields := strings.Fields(line)
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid token id %q", f)
		}
		if !stride.Fits(v) {
			return nil, fmt.Errorf("%w: %d", tokens.ErrTokenRange, v)
		}
		ids = append(ids, v)
	}
	return ids, nil
}
