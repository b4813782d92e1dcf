package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"time"

	"tokenprep/internal/logging"
	"tokenprep/internal/port"
)

// DefaultRetryInterval is the pause between attempts of EnsureOpen.
const DefaultRetryInterval = time.Second

// Retrier opens files, retrying until they can be opened. It is meant for
// long-running batch jobs that wait for an input to appear.
type Retrier struct {
	FS       port.FileSystem
	Interval time.Duration
	Logger   *slog.Logger
	// Sleep waits between attempts. It defaults to a timer that also
	// honours ctx cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewRetrier(fsys port.FileSystem, interval time.Duration, logger *slog.Logger) *Retrier {
	return &Retrier{FS: fsys, Interval: interval, Logger: logger}
}

// EnsureOpen calls OpenFile until it succeeds. There is no retry cap; the
// loop ends only on success or when ctx is done.
func (r *Retrier) EnsureOpen(ctx context.Context, name string, flag int, perm os.FileMode) (port.File, error) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; ; attempt++ {
		f, err := r.FS.OpenFile(ctx, name, flag, perm)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, iofs.ErrNotExist) {
			logger.Error("open failed", "path", name, "attempt", attempt, "err", fmt.Sprintf("%+v", err))
		}
		logger.Warn(fmt.Sprintf("Failed to open file: %s. Trying again in %s...", name, interval), "attempt", attempt)

		if err := sleep(ctx, interval); err != nil {
			return nil, fmt.Errorf("ensure open %s: %w", name, err)
		}
	}
}

// EnsureOpenRead is EnsureOpen for reading.
func (r *Retrier) EnsureOpenRead(ctx context.Context, name string) (port.File, error) {
	return r.EnsureOpen(ctx, name, os.O_RDONLY, 0)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
