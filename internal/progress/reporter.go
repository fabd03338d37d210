package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Options configures the progress reporter.
type Options struct {
	// Description prefixes the bar.
	// Default: "downloading"
	Description string

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// Hidden suppresses the bar while still tracking counters.
	Hidden bool

	// Throttle limits how often the bar is redrawn.
	// Default: 250ms
	Throttle time.Duration
}

// Stats is a snapshot of the reporter counters.
type Stats struct {
	TotalFiles     int
	CompletedFiles int
	FailedFiles    int
	InProgress     int
	Bytes          int64
}

// Reporter tracks downloaded files and bytes and renders a progress bar.
// All methods are safe for concurrent use and on a nil *Reporter.
type Reporter struct {
	bar *progressbar.ProgressBar

	totalFiles     atomic.Int64
	completedFiles atomic.Int64
	failedFiles    atomic.Int64
	inProgress     atomic.Int64
	bytes          atomic.Int64
	startTime      time.Time
}

// NewReporter creates a new progress reporter. The file total starts at zero
// and grows with AddFiles as pages are listed.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Description == "" {
		opts.Description = "downloading"
	}
	if opts.Throttle == 0 {
		opts.Throttle = 250 * time.Millisecond
	}

	bar := progressbar.NewOptions(0,
		progressbar.OptionSetWriter(opts.Output),
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionSetVisibility(!opts.Hidden),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionThrottle(opts.Throttle),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(opts.Output)
		}),
	)

	return &Reporter{
		bar:       bar,
		startTime: time.Now(),
	}
}

// AddFiles grows the expected file count.
func (r *Reporter) AddFiles(n int) {
	if r == nil || n <= 0 {
		return
	}
	total := r.totalFiles.Add(int64(n))
	r.bar.ChangeMax64(total)
}

// FileStarted marks a file as in progress.
func (r *Reporter) FileStarted() {
	if r == nil {
		return
	}
	r.inProgress.Add(1)
}

// ChunkWritten records n bytes written to disk.
func (r *Reporter) ChunkWritten(n int64) {
	if r == nil {
		return
	}
	r.bytes.Add(n)
}

// FileCompleted marks a file as downloaded.
func (r *Reporter) FileCompleted() {
	if r == nil {
		return
	}
	r.completedFiles.Add(1)
	r.inProgress.Add(-1)
	r.bar.Describe(r.describe())
	_ = r.bar.Add(1)
}

// FileFailed removes a file from in-progress.
func (r *Reporter) FileFailed() {
	if r == nil {
		return
	}
	r.failedFiles.Add(1)
	r.inProgress.Add(-1)
}

// Stats returns the current counters.
func (r *Reporter) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	return Stats{
		TotalFiles:     int(r.totalFiles.Load()),
		CompletedFiles: int(r.completedFiles.Load()),
		FailedFiles:    int(r.failedFiles.Load()),
		InProgress:     int(r.inProgress.Load()),
		Bytes:          r.bytes.Load(),
	}
}

// Finish completes the bar.
func (r *Reporter) Finish() {
	if r == nil {
		return
	}
	_ = r.bar.Finish()
}

// Elapsed returns the time since the reporter was created.
func (r *Reporter) Elapsed() time.Duration {
	if r == nil {
		return 0
	}
	return time.Since(r.startTime)
}

func (r *Reporter) describe() string {
	return fmt.Sprintf("downloading %s", FormatBytes(r.bytes.Load()))
}

// FormatBytes formats bytes using binary units (KiB, MiB, ...).
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	v := float64(b) / float64(div)
	suffix := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}[exp]
	if v >= 100 {
		return fmt.Sprintf("%.0f %s", v, suffix)
	}
	return fmt.Sprintf("%.1f %s", v, suffix)
}

// ParseBytes parses a human-readable byte string. Binary suffixes (KiB,
// MiB, GiB, TiB) are powers of 1024; SI suffixes (KB, MB, GB, TB) are
// powers of 1000.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	units := []struct {
		suffix string
		mult   float64
	}{
		{"TiB", 1 << 40},
		{"GiB", 1 << 30},
		{"MiB", 1 << 20},
		{"KiB", 1 << 10},
		{"TB", 1e12},
		{"GB", 1e9},
		{"MB", 1e6},
		{"KB", 1e3},
		{"B", 1},
	}

	mult := 1.0
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			mult = u.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	var value float64
	if _, err := fmt.Sscanf(s, "%f", &value); err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative byte string: %s", s)
	}
	return int64(value * mult), nil
}
