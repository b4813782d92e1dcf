package lines

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"tokenprep/internal/port"
)

const countMessage = "Counting lines in text file..."

// CountResult is the outcome of counting one file.
type CountResult struct {
	Lines   int   // lines decoded successfully
	Skipped int   // undecodable lines skipped
	Bytes   int64 // bytes consumed
}

// CountLines returns the number of decodable lines in f. The read position
// is reset to the start of f on return.
func CountLines(f io.ReadSeeker, opts ...Option) (int, error) {
	res, err := Count(f, opts...)
	return res.Lines, err
}

// CountLinesPath opens name through fsys and counts its lines.
func CountLinesPath(ctx context.Context, fsys port.FileSystem, name string, opts ...Option) (int, error) {
	f, err := fsys.OpenFile(ctx, name, os.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return CountLines(f, opts...)
}

// Count is CountLines with the skipped line and byte totals.
func Count(f io.ReadSeeker, opts ...Option) (res CountResult, err error) {
	c := newConfig(opts)

	size, err := FileSize(f)
	if err != nil {
		return res, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return res, fmt.Errorf("count lines: %w", err)
	}
	// later callers re-read from the beginning
	defer func() {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("count lines: rewind: %w", serr)
		}
	}()

	total := size
	if c.total >= 0 {
		total = c.total
	}
	msg := c.message
	if msg == "" {
		msg = countMessage
	}
	bar := c.progress.NewProgress(total, msg, true)
	defer bar.Finish()

	r := newLineReader(f)
	th := newThrottle(c.clock, c.interval)
	var reported int64
	var prev string
	for {
		raw, ok, err := r.next()
		if err != nil {
			return res, fmt.Errorf("count lines: %w", err)
		}
		if !ok {
			break
		}
		start := res.Bytes
		res.Bytes += int64(len(raw))
		if th.ready() {
			_ = bar.Add64(res.Bytes - reported)
			reported = res.Bytes
		}

		text, derr := c.decoder.Decode(trimEOL(raw))
		if derr != nil {
			res.Skipped++
			de := &DecodeError{Line: res.Lines + res.Skipped, Offset: start, Prev: prev, Err: derr}
			if err := c.reject(de); err != nil {
				return res, err
			}
			continue
		}
		res.Lines++
		prev = text
	}
	_ = bar.Add64(res.Bytes - reported)
	return res, nil
}

// reject reports a decode error and returns it unless errors are ignored.
func (c *config) reject(de *DecodeError) error {
	if c.verbose {
		c.logger.Warn("undecodable line",
			"line", de.Line,
			"offset", de.Offset,
			"after", fmt.Sprintf("%q", de.Prev),
			"err", de.Err)
	}
	if !c.ignoreErrors {
		return de
	}
	return nil
}

// lineReader yields raw lines including their terminator. Every call
// consumes the bytes it returns, so a rejected line is never read twice.
type lineReader struct {
	br   *bufio.Reader
	done bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, 64*1024)}
}

func (r *lineReader) next() ([]byte, bool, error) {
	if r.done {
		return nil, false, nil
	}
	raw, err := r.br.ReadBytes('\n')
	if err == io.EOF {
		r.done = true
		return raw, len(raw) > 0, nil
	}
	if err != nil {
		r.done = true
		return nil, false, err
	}
	return raw, true, nil
}

func trimEOL(raw []byte) []byte {
	raw = bytes.TrimSuffix(raw, []byte("\n"))
	return bytes.TrimSuffix(raw, []byte("\r"))
}
