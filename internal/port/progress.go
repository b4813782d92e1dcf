package port

import "time"

// Progress receives updates for a single long-running read.
type Progress interface {
	Add64(n int64) error
	Set64(n int64) error
	Finish() error
}

// ProgressFactory creates a Progress for a read of total units.
// showBytes reports whether units are bytes rather than items.
type ProgressFactory interface {
	NewProgress(total int64, description string, showBytes bool) Progress
}

// Clock abstracts wall-clock time for progress throttling.
type Clock interface {
	Now() time.Time
}
