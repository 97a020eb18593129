package output

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress renders a progress bar for the enumeration stage. A quiet Progress
// renders nothing.
type Progress struct {
	w     io.Writer
	quiet bool
	total int
	bar   *progressbar.ProgressBar
}

// NewProgress creates a progress display writing to w.
func NewProgress(w io.Writer, quiet bool) *Progress {
	return &Progress{w: w, quiet: quiet}
}

// Start shows a bar for total units.
func (p *Progress) Start(total int) {
	p.total = total
	if p.quiet || total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription("[cyan]Enumerating[reset]"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("req"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// Set moves the bar to fraction of the total.
func (p *Progress) Set(fraction float64) {
	if p.bar == nil {
		return
	}
	_ = p.bar.Set(int(fraction*float64(p.total) + 0.5))
}

// Clear erases the bar so a result line can be printed.
func (p *Progress) Clear() {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
}

// Finish completes and removes the bar.
func (p *Progress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	_ = p.bar.Clear()
	p.bar = nil
}
