// Package progress renders transfer events on the command line: a single
// progressbar for the active download and one mpb bar per concurrent upload.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/easyfiletransfer/eft/internal/events"
)

// DownloadBar renders the one active download.
type DownloadBar struct {
	w          io.Writer
	isTerminal bool

	taskID    string
	bar       *progressbar.ProgressBar
	total     int64
	start     time.Time
	announced bool
}

// NewDownloadBar creates a download renderer writing to w.
// Bars are drawn only when w is a terminal; otherwise one line is printed
// when the download starts and one when it ends.
func NewDownloadBar(w io.Writer) *DownloadBar {
	return &DownloadBar{w: w, isTerminal: prepareTerminal(w)}
}

// Handle implements Renderer. Upload events are ignored.
func (d *DownloadBar) Handle(ev *events.TransferEvent) {
	if ev.TaskType != "download" {
		return
	}
	if d.taskID != "" && ev.TaskID != d.taskID {
		// A newer download replaced the one being drawn.
		if ev.Type() != events.EventTransferQueued {
			return
		}
		d.abandon()
	}

	switch ev.Type() {
	case events.EventTransferQueued:
		d.taskID = ev.TaskID
		d.start = time.Now()
	case events.EventTransferStarted, events.EventTransferProgress:
		if d.taskID == "" {
			d.taskID = ev.TaskID
			d.start = time.Now()
		}
		d.ensureBar(ev)
		d.setBytes(ev.BytesTransferred)
	case events.EventTransferCompleted:
		d.ensureBar(ev)
		if d.bar != nil {
			_ = d.bar.Finish()
		}
		fmt.Fprintf(d.w, "✓ %s (%.1f MiB, %s)\n", ev.Name, mib(ev.BytesTransferred), time.Since(d.start).Round(time.Second))
		d.reset()
	case events.EventTransferFailed:
		d.abandon()
		fmt.Fprintf(d.w, "✗ %s: %v\n", ev.Name, ev.Error)
	case events.EventTransferCancelled:
		d.abandon()
		fmt.Fprintf(d.w, "✗ %s: cancelled\n", ev.Name)
	}
}

// ensureBar creates the bar once the size is known, or a spinner if the
// server did not report one. A size learned later turns a spinner into a bar.
func (d *DownloadBar) ensureBar(ev *events.TransferEvent) {
	if !d.isTerminal {
		if !d.announced {
			fmt.Fprintf(d.w, "Downloading: %s (%s)\n", ev.Name, sizeLabel(ev.BytesExpected))
			d.announced = true
		}
		return
	}
	if d.bar != nil && (d.total > 0 || ev.BytesExpected <= 0) {
		return
	}
	if d.bar != nil {
		_ = d.bar.Exit()
	}

	d.total = ev.BytesExpected
	max := ev.BytesExpected
	if max <= 0 {
		max = -1
	}
	d.bar = progressbar.NewOptions64(max,
		progressbar.OptionSetDescription(truncatePath(ev.Name, 1)),
		progressbar.OptionSetWriter(d.w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(d.w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (d *DownloadBar) setBytes(n int64) {
	if d.bar != nil {
		_ = d.bar.Set64(n)
	}
}

func (d *DownloadBar) abandon() {
	if d.bar != nil {
		_ = d.bar.Exit()
		fmt.Fprint(d.w, "\n")
	}
	d.reset()
}

func (d *DownloadBar) reset() {
	d.taskID = ""
	d.bar = nil
	d.total = 0
	d.announced = false
}

// Close implements Renderer.
func (d *DownloadBar) Close() {
	if d.taskID != "" {
		d.abandon()
	}
}

func sizeLabel(n int64) string {
	if n <= 0 {
		return "size unknown"
	}
	return fmt.Sprintf("%.1f MiB", mib(n))
}
