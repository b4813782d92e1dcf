package lines

import (
	"context"
	"fmt"
	"io"
	"os"

	"tokenprep/internal/port"
)

// FileSize returns the byte length of f without moving its read position.
// Files that implement port.Sizer are asked directly.
func FileSize(f io.Seeker) (size int64, err error) {
	if s, ok := f.(port.Sizer); ok {
		return s.Size()
	}

	was, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("file size: %w", err)
	}
	defer func() {
		if _, serr := f.Seek(was, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("file size: restore offset: %w", serr)
		}
	}()

	size, err = f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("file size: %w", err)
	}
	return size, nil
}

// FileSizePath opens name through fsys and returns its size.
func FileSizePath(ctx context.Context, fsys port.FileSystem, name string) (int64, error) {
	f, err := fsys.OpenFile(ctx, name, os.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return FileSize(f)
}
