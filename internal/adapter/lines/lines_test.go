package lines

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/japanese"
	"tokenprep/internal/adapter/fs"
	"tokenprep/internal/port"
)

type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

type recordingProgress struct {
	total    int64
	desc     string
	bytes    bool
	adds     []int64
	sets     []int64
	finished int
}

func (p *recordingProgress) Add64(n int64) error { p.adds = append(p.adds, n); return nil }
func (p *recordingProgress) Set64(n int64) error { p.sets = append(p.sets, n); return nil }
func (p *recordingProgress) Finish() error       { p.finished++; return nil }

type recordingFactory struct {
	bars []*recordingProgress
}

func (f *recordingFactory) NewProgress(total int64, desc string, showBytes bool) port.Progress {
	p := &recordingProgress{total: total, desc: desc, bytes: showBytes}
	f.bars = append(f.bars, p)
	return p
}

// sizedReader reports its size through port.Sizer.
type sizedReader struct {
	*bytes.Reader
	size int64
}

func (s sizedReader) Size() (int64, error) { return s.size, nil }

func sum(xs []int64) int64 {
	var n int64
	for _, x := range xs {
		n += x
	}
	return n
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileSizeKeepsOffset(t *testing.T) {
	path := writeTemp(t, "hello world")
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for _, offset := range []int64{0, 3, 11} {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			t.Fatal(err)
		}
		size, err := FileSize(f)
		if err != nil {
			t.Fatalf("FileSize: %v", err)
		}
		if size != 11 {
			t.Errorf("expected size 11, got %d", size)
		}
		pos, _ := f.Seek(0, io.SeekCurrent)
		if pos != offset {
			t.Errorf("expected offset %d after FileSize, got %d", offset, pos)
		}
	}
}

func TestFileSizeUsesSizer(t *testing.T) {
	r := sizedReader{Reader: bytes.NewReader([]byte("abc")), size: 42}
	size, err := FileSize(r)
	if err != nil {
		t.Fatal(err)
	}
	if size != 42 {
		t.Errorf("expected size from Size(), got %d", size)
	}
}

func TestFileSizePath(t *testing.T) {
	path := writeTemp(t, "0123456789")
	size, err := FileSizePath(context.Background(), fs.NewRouter(fs.LocalFS{}), path)
	if err != nil {
		t.Fatal(err)
	}
	if size != 10 {
		t.Errorf("expected 10, got %d", size)
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"three lines", "a\nb\nc\n", 3},
		{"no trailing newline", "a\nb", 2},
		{"empty", "", 0},
		{"blank lines", "\n\n\n", 3},
		{"crlf", "a\r\nb\r\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader([]byte(tt.content))
			if _, err := r.Seek(1, io.SeekStart); err != nil {
				t.Fatal(err)
			}
			n, err := CountLines(r)
			if err != nil {
				t.Fatalf("CountLines: %v", err)
			}
			if n != tt.want {
				t.Errorf("expected %d lines, got %d", tt.want, n)
			}
			if pos, _ := r.Seek(0, io.SeekCurrent); pos != 0 {
				t.Errorf("expected reader rewound to 0, got %d", pos)
			}
		})
	}
}

func TestCountLinesPath(t *testing.T) {
	path := writeTemp(t, "a\nb\nc\n")
	n, err := CountLinesPath(context.Background(), fs.NewRouter(fs.LocalFS{}), path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
}

func TestCountLinesSkipsUndecodable(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	r := bytes.NewReader([]byte("a\n\xff\xfe\nc\n"))

	res, err := Count(r, WithLogger(logger))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Lines != 2 {
		t.Errorf("expected 2 decodable lines, got %d", res.Lines)
	}
	if res.Skipped != 1 {
		t.Errorf("expected 1 skipped line, got %d", res.Skipped)
	}
	if res.Bytes != 7 {
		t.Errorf("expected 7 bytes consumed, got %d", res.Bytes)
	}
	if !strings.Contains(logs.String(), "line=2") {
		t.Errorf("expected error report for line 2, got %q", logs.String())
	}
}

func TestCountLinesQuietDoesNotLog(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	r := bytes.NewReader([]byte("\xff\nok\n"))

	n, err := CountLines(r, WithLogger(logger), WithVerbose(false))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1, got %d", n)
	}
	if logs.Len() != 0 {
		t.Errorf("expected no output when not verbose, got %q", logs.String())
	}
}

func TestCountLinesStrict(t *testing.T) {
	r := bytes.NewReader([]byte("a\n\xff\xfe\nc\n"))

	_, err := CountLines(r, WithIgnoreErrors(false))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if de.Line != 2 {
		t.Errorf("expected line 2, got %d", de.Line)
	}
	if de.Prev != "a" {
		t.Errorf("expected previous line %q, got %q", "a", de.Prev)
	}
	if de.Offset != 2 {
		t.Errorf("expected offset 2, got %d", de.Offset)
	}
	if pos, _ := r.Seek(0, io.SeekCurrent); pos != 0 {
		t.Errorf("expected reader rewound after error, got %d", pos)
	}
}

func TestCountLinesProgressThrottled(t *testing.T) {
	content := strings.Repeat("line\n", 10)

	t.Run("frozen clock", func(t *testing.T) {
		pf := &recordingFactory{}
		clk := &fakeClock{now: time.Unix(0, 0)}
		if _, err := CountLines(strings.NewReader(content), WithProgress(pf), WithClock(clk)); err != nil {
			t.Fatal(err)
		}
		bar := pf.bars[0]
		if bar.total != int64(len(content)) {
			t.Errorf("expected total %d, got %d", len(content), bar.total)
		}
		if len(bar.adds) != 1 || bar.adds[0] != int64(len(content)) {
			t.Errorf("expected a single final update, got %v", bar.adds)
		}
		if bar.finished != 1 {
			t.Errorf("expected Finish once, got %d", bar.finished)
		}
	})

	t.Run("fast clock", func(t *testing.T) {
		pf := &recordingFactory{}
		clk := &fakeClock{now: time.Unix(0, 0), step: 2 * time.Second}
		if _, err := CountLines(strings.NewReader(content), WithProgress(pf), WithClock(clk)); err != nil {
			t.Fatal(err)
		}
		bar := pf.bars[0]
		if len(bar.adds) < 10 {
			t.Errorf("expected an update per line, got %v", bar.adds)
		}
		if sum(bar.adds) != int64(len(content)) {
			t.Errorf("expected deltas to sum to %d, got %d", len(content), sum(bar.adds))
		}
	})

	t.Run("not verbose", func(t *testing.T) {
		pf := &recordingFactory{}
		if _, err := CountLines(strings.NewReader(content), WithProgress(pf), WithVerbose(false)); err != nil {
			t.Fatal(err)
		}
		if len(pf.bars) != 0 {
			t.Errorf("expected no progress display, got %d", len(pf.bars))
		}
	})
}

func TestForEachLine(t *testing.T) {
	pf := &recordingFactory{}
	clk := &fakeClock{now: time.Unix(0, 0), step: 2 * time.Second}
	content := "alpha\nbeta\r\n\xff\ngamma"

	it, err := ForEachLine(strings.NewReader(content), WithProgress(pf), WithClock(clk), WithMessage("reading"))
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	var got []string
	for it.Next() {
		if it.Index() != len(got) {
			t.Errorf("expected index %d, got %d", len(got), it.Index())
		}
		got = append(got, it.Line())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"alpha", "beta", "gamma"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
	if it.Skipped() != 1 {
		t.Errorf("expected 1 skipped line, got %d", it.Skipped())
	}

	bar := pf.bars[0]
	if bar.desc != "reading" {
		t.Errorf("expected description %q, got %q", "reading", bar.desc)
	}
	if len(bar.sets) == 0 || bar.sets[len(bar.sets)-1] != int64(len(content)) {
		t.Errorf("expected final position %d, got %v", len(content), bar.sets)
	}
	if it.Next() {
		t.Error("expected exhausted iterator to stay exhausted")
	}
}

func TestForEachLineStrict(t *testing.T) {
	it, err := ForEachLine(strings.NewReader("ok\n\xff\nlater\n"), WithIgnoreErrors(false))
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	n := 0
	for it.Next() {
		n++
	}
	if n != 1 {
		t.Errorf("expected 1 line before the error, got %d", n)
	}
	var de *DecodeError
	if !errors.As(it.Err(), &de) {
		t.Fatalf("expected *DecodeError, got %v", it.Err())
	}
	if de.Line != 2 || de.Prev != "ok" {
		t.Errorf("unexpected decode error %+v", de)
	}
}

func TestForEachLineTotalOverride(t *testing.T) {
	pf := &recordingFactory{}
	it, err := ForEachLine(strings.NewReader("a\nb\n"), WithProgress(pf), WithTotal(2))
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()
	if pf.bars[0].total != 2 {
		t.Errorf("expected total 2, got %d", pf.bars[0].total)
	}
}

func TestForEachLinePathClosesFile(t *testing.T) {
	path := writeTemp(t, "x\ny\n")
	it, err := ForEachLinePath(context.Background(), fs.NewRouter(fs.LocalFS{}), path)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for it.Next() {
		n++
	}
	if n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}
	f, ok := it.closer.(*os.File)
	if !ok {
		t.Fatalf("expected iterator to own an *os.File, got %T", it.closer)
	}
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		t.Error("expected file to be closed after exhaustion")
	}
	if err := it.Close(); err != nil {
		t.Errorf("expected idempotent Close, got %v", err)
	}
}

func TestForEachString(t *testing.T) {
	pf := &recordingFactory{}
	it := ForEachString([]string{"x", "\xff", "z"}, WithProgress(pf))

	var got []string
	for it.Next() {
		got = append(got, it.Line())
	}
	if len(got) != 3 || got[1] != "\xff" {
		t.Errorf("expected list passed through untouched, got %q", got)
	}
	bar := pf.bars[0]
	if bar.bytes {
		t.Error("expected count-based progress for list input")
	}
	if bar.total != 3 || sum(bar.adds) != 3 {
		t.Errorf("expected 3 of 3, got total=%d adds=%v", bar.total, bar.adds)
	}
}

func TestNewDecoder(t *testing.T) {
	d, err := NewDecoder("latin1")
	if err != nil {
		t.Fatal(err)
	}
	got, err := d.Decode([]byte("caf\xe9"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "café" {
		t.Errorf("expected café, got %q", got)
	}

	if _, err := NewDecoder("no-such-charset"); err == nil {
		t.Error("expected error for unknown encoding")
	}

	d, err = NewDecoder("UTF-8")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Decode([]byte("\xc3\x28")); err == nil {
		t.Error("expected strict UTF-8 decoder to reject invalid bytes")
	}

	// Aliases of UTF-8 stay strict instead of replacing bad bytes.
	d, err = NewDecoder("unicode-1-1-utf-8")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Decode([]byte("\xc3\x28")); err == nil {
		t.Error("expected UTF-8 alias to reject invalid bytes")
	}
}

func TestNewDecoderRejectsWideNewline(t *testing.T) {
	for _, name := range []string{"utf-16le", "utf-16be", "UTF-16"} {
		if _, err := NewDecoder(name); err == nil {
			t.Errorf("expected %s to be rejected", name)
		}
	}
}

func TestMultiByteCharset(t *testing.T) {
	raw, err := japanese.ShiftJIS.NewEncoder().String("日本\n語です\n")
	if err != nil {
		t.Fatal(err)
	}
	d, err := NewDecoder("shift_jis")
	if err != nil {
		t.Fatal(err)
	}

	n, err := CountLines(strings.NewReader(raw), WithDecoder(d), WithIgnoreErrors(false))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}

	it, err := ForEachLine(strings.NewReader(raw), WithDecoder(d), WithIgnoreErrors(false))
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, it.Line())
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "|") != "日本|語です" {
		t.Errorf("unexpected lines %q", got)
	}
}

func TestCountLinesWithCharset(t *testing.T) {
	d, err := NewDecoder("latin1")
	if err != nil {
		t.Fatal(err)
	}
	n, err := CountLines(bytes.NewReader([]byte("caf\xe9\n\xff\n")), WithDecoder(d), WithIgnoreErrors(false))
	if err != nil {
		t.Fatalf("latin1 accepts every byte, got %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
}
