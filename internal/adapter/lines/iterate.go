package lines

import (
	"context"
	"fmt"
	"io"
	"os"

	"tokenprep/internal/port"
)

// Iterator yields (index, line) pairs lazily. It is not restartable.
//
//	it, err := lines.ForEachLine(f)
//	if err != nil { ... }
//	defer it.Close()
//	for it.Next() {
//		use(it.Index(), it.Line())
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	cfg    *config
	bar    port.Progress
	th     *throttle
	closer io.Closer

	// list input
	list    []string
	listPos int
	isList  bool

	// reader input
	r    *lineReader
	pos  int64
	prev string
	bad  int

	index    int
	line     string
	err      error
	closeErr error
	done     bool
}

// ForEachLine iterates the lines of f from its current position. Lines are
// returned without their terminator.
func ForEachLine(f io.ReadSeeker, opts ...Option) (*Iterator, error) {
	c := newConfig(opts)

	total := c.total
	if total < 0 {
		size, err := FileSize(f)
		if err != nil {
			return nil, err
		}
		total = size
	}
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("for each line: %w", err)
	}

	return &Iterator{
		cfg:   c,
		bar:   c.progress.NewProgress(total, c.message, true),
		th:    newThrottle(c.clock, c.interval),
		r:     newLineReader(f),
		pos:   pos,
		index: -1,
	}, nil
}

// ForEachLinePath opens name through fsys and iterates its lines. The
// iterator closes the file once it is exhausted or closed.
func ForEachLinePath(ctx context.Context, fsys port.FileSystem, name string, opts ...Option) (*Iterator, error) {
	f, err := fsys.OpenFile(ctx, name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	it, err := ForEachLine(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	it.closer = f
	return it, nil
}

// ForEachString iterates an in-memory list. No decoding takes place.
func ForEachString(list []string, opts ...Option) *Iterator {
	c := newConfig(opts)
	total := c.total
	if total < 0 {
		total = int64(len(list))
	}
	return &Iterator{
		cfg:    c,
		bar:    c.progress.NewProgress(total, c.message, false),
		list:   list,
		isList: true,
		index:  -1,
	}
}

// Next advances to the next line. It returns false when the input is
// exhausted or an error stopped the iteration.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if it.isList {
		if it.listPos >= len(it.list) {
			it.finish()
			return false
		}
		it.line = it.list[it.listPos]
		it.listPos++
		it.index++
		_ = it.bar.Add64(1)
		return true
	}

	for {
		raw, ok, err := it.r.next()
		if err != nil {
			it.err = fmt.Errorf("for each line: %w", err)
			it.finish()
			return false
		}
		if !ok {
			_ = it.bar.Set64(it.pos)
			it.finish()
			return false
		}
		start := it.pos
		it.pos += int64(len(raw))
		if it.th.ready() {
			_ = it.bar.Set64(it.pos)
		}

		text, derr := it.cfg.decoder.Decode(trimEOL(raw))
		if derr != nil {
			it.bad++
			de := &DecodeError{Line: it.index + 1 + it.bad, Offset: start, Prev: it.prev, Err: derr}
			if err := it.cfg.reject(de); err != nil {
				it.err = err
				it.finish()
				return false
			}
			continue
		}
		it.index++
		it.line = text
		it.prev = text
		return true
	}
}

// Index returns the zero-based index of the current line.
func (it *Iterator) Index() int { return it.index }

// Line returns the current line.
func (it *Iterator) Line() string { return it.line }

// Skipped returns the number of undecodable lines skipped so far.
func (it *Iterator) Skipped() int { return it.bad }

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error { return it.err }

// Close stops the iteration and releases the underlying file, if the
// iterator owns one.
func (it *Iterator) Close() error {
	it.finish()
	return it.closeErr
}

func (it *Iterator) finish() {
	if it.done {
		return
	}
	it.done = true
	_ = it.bar.Finish()
	if it.closer != nil {
		it.closeErr = it.closer.Close()
	}
}
