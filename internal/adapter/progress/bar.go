package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"tokenprep/internal/port"
)

// Bars renders progress with schollz/progressbar.
type Bars struct {
	Writer io.Writer
	Width  int
}

func NewBars(w io.Writer) *Bars {
	return &Bars{Writer: w, Width: 40}
}

func (b *Bars) NewProgress(total int64, description string, showBytes bool) port.Progress {
	w := b.Writer
	if w == nil {
		w = os.Stderr
	}
	if description == "" {
		description = "Reading"
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(showBytes),
		progressbar.OptionSetWidth(b.Width),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", description)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// Nop discards progress.
type Nop struct{}

func (Nop) NewProgress(int64, string, bool) port.Progress { return nopProgress{} }

type nopProgress struct{}

func (nopProgress) Add64(int64) error { return nil }
func (nopProgress) Set64(int64) error { return nil }
func (nopProgress) Finish() error     { return nil }

// Select picks a progress display for mode "always", "never" or "auto".
// Auto shows bars only when w is a terminal.
func Select(mode string, w io.Writer) port.ProgressFactory {
	switch mode {
	case "always":
		return NewBars(w)
	case "never":
		return Nop{}
	}
	if IsTerminal(w) {
		return NewBars(w)
	}
	return Nop{}
}

func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
