package fs

import (
	"context"
	"errors"
	"os"

	"tokenprep/internal/port"
)

// LocalFS opens files on the local filesystem.
type LocalFS struct{}

func (LocalFS) OpenFile(_ context.Context, name string, flag int, perm os.FileMode) (port.File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		return &localWriter{File: f}, nil
	}
	return f, nil
}

// localWriter is a writable local file that can be aborted.
type localWriter struct {
	*os.File
}

// Abort closes and removes the file.
func (w *localWriter) Abort() error {
	cerr := w.File.Close()
	if err := os.Remove(w.File.Name()); err != nil {
		return err
	}
	if errors.Is(cerr, os.ErrClosed) {
		return nil
	}
	return cerr
}
