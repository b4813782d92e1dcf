package domain

import "time"

// FileCount is the line count of one file, as cached between runs.
type FileCount struct {
	Path      string
	Size      int64
	ModTime   time.Time
	Lines     int
	Skipped   int
	CountedAt time.Time
}

// Fresh reports whether the cached count still describes a file with the
// given size and modification time. Times are compared to the nanosecond.
func (c FileCount) Fresh(size int64, modTime time.Time) bool {
	return c.Size == size && c.ModTime.UnixNano() == modTime.UnixNano()
}

type CountSummary struct {
	Files      []FileCount
	TotalLines int
	Counted    int
	Cached     int
	Deleted    int
	Errors     []string
}

type EncodeSummary struct {
	Lines   int
	Tokens  int
	Skipped int
	Bytes   int64
}
