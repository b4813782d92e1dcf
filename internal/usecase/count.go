package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tokenprep/internal/adapter/lines"
	"tokenprep/internal/domain"
	"tokenprep/internal/port"
)

// ProgressCallback is called after each file with the files processed so far.
type ProgressCallback func(processed, total int, currentFile string)

// CountUseCase counts lines across many files, reusing cached counts for
// local files whose size and modification time are unchanged.
type CountUseCase struct {
	store  port.CountStore
	walker port.FileWalker
	fsys   port.FileSystem
	opts   []lines.Option
	now    func() time.Time
}

// NewCountUseCase creates a count use case. store may be nil to disable
// caching.
func NewCountUseCase(store port.CountStore, walker port.FileWalker, fsys port.FileSystem, opts ...lines.Option) *CountUseCase {
	return &CountUseCase{
		store:  store,
		walker: walker,
		fsys:   fsys,
		opts:   opts,
		now:    time.Now,
	}
}

// CountTree counts every file the walker finds under root and forgets cached
// counts of files under root that no longer exist.
func (u *CountUseCase) CountTree(ctx context.Context, root string, progress ProgressCallback) (*domain.CountSummary, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	summary := &domain.CountSummary{}
	seen := make(map[string]bool, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seen[file.Path] = true
		u.countLocal(ctx, file.Path, file.Size, file.ModTime, summary)
		if progress != nil {
			progress(i+1, len(files), file.Path)
		}
	}

	if u.store != nil {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		cached, err := u.store.ListCounts()
		if err != nil {
			return nil, fmt.Errorf("failed to list cached counts: %w", err)
		}
		for _, c := range cached {
			if seen[c.Path] || !within(absRoot, c.Path) {
				continue
			}
			if err := u.store.DeleteCount(c.Path); err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("failed to forget %s: %v", c.Path, err))
				continue
			}
			summary.Deleted++
		}
	}

	sortFiles(summary)
	return summary, nil
}

// CountPaths counts the given local or remote paths in order. Only local
// files take part in caching.
func (u *CountUseCase) CountPaths(ctx context.Context, paths []string, progress ProgressCallback) (*domain.CountSummary, error) {
	summary := &domain.CountSummary{}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			u.countLocal(ctx, abs, info.Size(), info.ModTime(), summary)
		} else {
			u.record(summary, u.countFile(ctx, path, 0, time.Time{}))
		}
		if progress != nil {
			progress(i+1, len(paths), path)
		}
	}
	return summary, nil
}

type countOutcome struct {
	path   string
	count  domain.FileCount
	cached bool
	err    error
}

func (u *CountUseCase) countLocal(ctx context.Context, path string, size int64, modTime time.Time, summary *domain.CountSummary) {
	if u.store != nil {
		cached, ok, err := u.store.GetCount(path)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("failed to read cache for %s: %v", path, err))
		} else if ok && cached.Fresh(size, modTime) {
			u.record(summary, countOutcome{path: path, count: cached, cached: true})
			return
		}
	}

	out := u.countFile(ctx, path, size, modTime)
	if out.err == nil && u.store != nil {
		if err := u.store.PutCount(out.count); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("failed to cache %s: %v", path, err))
		}
	}
	u.record(summary, out)
}

func (u *CountUseCase) countFile(ctx context.Context, path string, size int64, modTime time.Time) countOutcome {
	f, err := u.fsys.OpenFile(ctx, path, os.O_RDONLY, 0)
	if err != nil {
		return countOutcome{path: path, err: err}
	}
	defer f.Close()

	opts := append([]lines.Option{lines.WithMessage(filepath.Base(path))}, u.opts...)
	res, err := lines.Count(f, opts...)
	if err != nil {
		return countOutcome{path: path, err: err}
	}
	if size == 0 {
		size = res.Bytes
	}
	return countOutcome{path: path, count: domain.FileCount{
		Path:      path,
		Size:      size,
		ModTime:   modTime,
		Lines:     res.Lines,
		Skipped:   res.Skipped,
		CountedAt: u.now(),
	}}
}

func (u *CountUseCase) record(summary *domain.CountSummary, out countOutcome) {
	if out.err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("failed to count %s: %v", out.path, out.err))
		return
	}
	summary.Files = append(summary.Files, out.count)
	summary.TotalLines += out.count.Lines
	if out.cached {
		summary.Cached++
	} else {
		summary.Counted++
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func sortFiles(summary *domain.CountSummary) {
	sort.Slice(summary.Files, func(i, j int) bool {
		return summary.Files[i].Path < summary.Files[j].Path
	})
}
