package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// scanProgress shows a progress bar while a directory scan runs.
// A quiet or single-file scan shows nothing.
type scanProgress struct {
	w     io.Writer
	quiet bool
	bar   *progressbar.ProgressBar
}

func newScanProgress(w io.Writer, quiet bool) *scanProgress {
	return &scanProgress{w: w, quiet: quiet}
}

// Start begins a bar over totalFiles files.
func (p *scanProgress) Start(totalFiles int) {
	if p == nil || p.quiet || totalFiles < 2 {
		return
	}
	p.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.w)
		}),
	)
}

// FileDone advances the bar by one file. Safe for concurrent use.
func (p *scanProgress) FileDone() {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

// Finish completes and drops the current bar.
func (p *scanProgress) Finish() {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
