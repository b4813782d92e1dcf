package fs

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

	"tokenprep/internal/port"
)

type fakeFS struct {
	name  string
	calls []string
	errs  []error
}

func (f *fakeFS) OpenFile(_ context.Context, name string, flag int, perm os.FileMode) (port.File, error) {
	f.calls = append(f.calls, name)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return nil, nil
}

func TestWalkerIncludesAndExcludes(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.txt":              "a\n",
		"nested/b.txt":       "b\n",
		"nested/c.bin":       "c",
		".git/objects/d.txt": "d\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	w := NewWalker([]string{"**/*.txt"}, []string{"**/.git/**"})
	got, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(got), got)
	}
	for _, fi := range got {
		if !strings.HasSuffix(fi.Path, ".txt") || strings.Contains(fi.Path, ".git") {
			t.Errorf("unexpected file %s", fi.Path)
		}
		if fi.Size != 2 {
			t.Errorf("expected size 2 for %s, got %d", fi.Path, fi.Size)
		}
	}
}

func TestRouterDispatchesByPrefix(t *testing.T) {
	local := &fakeFS{name: "local"}
	s3 := &fakeFS{name: "s3"}
	gs := &fakeFS{name: "gs"}

	r := NewRouter(local)
	r.Register("s3://", s3)
	r.Register("gs://", gs)

	ctx := context.Background()
	for _, name := range []string{"s3://bucket/key", "gs://bucket/key", "/tmp/data.txt", "relative/s3://x"} {
		if _, err := r.Open(ctx, name); err != nil {
			t.Fatal(err)
		}
	}

	if len(s3.calls) != 1 || s3.calls[0] != "s3://bucket/key" {
		t.Errorf("unexpected s3 calls %v", s3.calls)
	}
	if len(gs.calls) != 1 {
		t.Errorf("unexpected gs calls %v", gs.calls)
	}
	if len(local.calls) != 2 {
		t.Errorf("expected 2 local calls, got %v", local.calls)
	}
	if !r.IsRemote("s3://bucket/key") || r.IsRemote("/tmp/data.txt") {
		t.Error("IsRemote disagrees with routing")
	}
}

func TestRouterLongestPrefixWins(t *testing.T) {
	general := &fakeFS{}
	special := &fakeFS{}

	r := NewRouter(&fakeFS{})
	r.Register("s3://", general)
	r.Register("s3://archive/", special)

	if _, err := r.Open(context.Background(), "s3://archive/file"); err != nil {
		t.Fatal(err)
	}
	if len(special.calls) != 1 || len(general.calls) != 0 {
		t.Errorf("expected the longer prefix to win, special=%v general=%v", special.calls, general.calls)
	}
}

func TestLocalFSForwardsFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	r := NewRouter(LocalFS{})

	f, err := r.Create(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	f.Close()

	f, err = r.OpenFile(context.Background(), path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("def")); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "abcdef" {
		t.Errorf("expected abcdef, got %q", data)
	}
}

func TestLocalAbortRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.bin")
	f, err := NewRouter(LocalFS{}).Create(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	a, ok := f.(port.Aborter)
	if !ok {
		t.Fatalf("expected writable local file to support Abort, got %T", f)
	}
	if err := a.Abort(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected file removed, got %v", err)
	}
}

func TestEnsureOpenWaitsForFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")
	var logs bytes.Buffer

	sleeps := 0
	r := NewRetrier(NewRouter(LocalFS{}), time.Second, slog.New(slog.NewTextHandler(&logs, nil)))
	r.Sleep = func(_ context.Context, d time.Duration) error {
		if d != time.Second {
			t.Errorf("expected 1s interval, got %v", d)
		}
		sleeps++
		if sleeps == 2 {
			return os.WriteFile(path, []byte("ready\n"), 0644)
		}
		return nil
	}

	f, err := r.EnsureOpenRead(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ready\n" {
		t.Errorf("unexpected content %q", data)
	}
	if sleeps != 2 {
		t.Errorf("expected two retry cycles, got %d", sleeps)
	}
	out := logs.String()
	if strings.Count(out, "Trying again") != 2 {
		t.Errorf("expected two retry notices, got %q", out)
	}
	if strings.Contains(out, "level=ERROR") {
		t.Errorf("not-found should be logged tersely, got %q", out)
	}
}

func TestEnsureOpenLogsUnexpectedErrors(t *testing.T) {
	var logs bytes.Buffer
	fsys := &fakeFS{errs: []error{errors.New("permission denied"), os.ErrNotExist}}

	r := NewRetrier(fsys, 0, slog.New(slog.NewTextHandler(&logs, nil)))
	r.Sleep = func(context.Context, time.Duration) error { return nil }

	if _, err := r.EnsureOpen(context.Background(), "x", os.O_RDONLY, 0); err != nil {
		t.Fatal(err)
	}
	if len(fsys.calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(fsys.calls))
	}
	if strings.Count(logs.String(), "level=ERROR") != 1 {
		t.Errorf("expected one full error report, got %q", logs.String())
	}
}

func TestEnsureOpenStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetrier(&fakeFS{errs: []error{os.ErrNotExist}}, time.Hour, nil)
	_, err := r.EnsureOpenRead(ctx, "never")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
