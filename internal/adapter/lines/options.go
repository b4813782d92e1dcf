package lines

import (
	"log/slog"
	"time"

	"tokenprep/internal/adapter/progress"
	"tokenprep/internal/logging"
	"tokenprep/internal/port"
)

// Option configures CountLines and ForEachLine.
type Option func(*config)

type config struct {
	verbose      bool
	ignoreErrors bool
	total        int64
	message      string
	interval     time.Duration
	logger       *slog.Logger
	progress     port.ProgressFactory
	clock        port.Clock
	decoder      Decoder
}

func newConfig(opts []Option) *config {
	c := &config{
		verbose:      true,
		ignoreErrors: true,
		total:        -1,
		interval:     time.Second,
		logger:       logging.NewNop(),
		progress:     progress.Nop{},
		clock:        progress.SystemClock{},
		decoder:      utf8Decoder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.verbose {
		c.progress = progress.Nop{}
	}
	return c
}

// WithVerbose controls decode error reporting and progress display.
// Defaults to true.
func WithVerbose(v bool) Option {
	return func(c *config) { c.verbose = v }
}

// WithIgnoreErrors controls whether undecodable lines are skipped (true, the
// default) or abort the read with a *DecodeError.
func WithIgnoreErrors(v bool) Option {
	return func(c *config) { c.ignoreErrors = v }
}

// WithTotal overrides the progress total. ForEachLine otherwise uses the
// file size, and ForEachString the number of lines.
func WithTotal(n int64) Option {
	return func(c *config) { c.total = n }
}

// WithMessage sets the progress description.
func WithMessage(msg string) Option {
	return func(c *config) { c.message = msg }
}

// WithUpdateInterval sets the minimum time between progress updates.
func WithUpdateInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the sink for decode error reports.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProgress sets the progress display.
func WithProgress(f port.ProgressFactory) Option {
	return func(c *config) {
		if f != nil {
			c.progress = f
		}
	}
}

// WithClock sets the clock used to throttle progress updates.
func WithClock(clk port.Clock) Option {
	return func(c *config) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithDecoder sets the text decoder. Defaults to strict UTF-8.
func WithDecoder(d Decoder) Option {
	return func(c *config) {
		if d != nil {
			c.decoder = d
		}
	}
}

// throttle admits at most one update per interval.
type throttle struct {
	clock    port.Clock
	interval time.Duration
	next     time.Time
}

func newThrottle(clk port.Clock, interval time.Duration) *throttle {
	return &throttle{clock: clk, interval: interval, next: clk.Now().Add(interval)}
}

func (t *throttle) ready() bool {
	now := t.clock.Now()
	if !now.After(t.next) {
		return false
	}
	t.next = now.Add(t.interval)
	return true
}
