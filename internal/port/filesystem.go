package port

import (
	"context"
	"io"
	"os"
)

// File is an open local or remote file.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Name() string
}

// Aborter is implemented by writable files that can discard what was
// written instead of committing it. After Abort the file is closed.
type Aborter interface {
	Abort() error
}

// Sizer is implemented by files that know their size without seeking.
type Sizer interface {
	Size() (int64, error)
}

// FileSystem opens files. flag and perm follow os.OpenFile.
type FileSystem interface {
	OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (File, error)
}
