package progress

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/easyfiletransfer/eft/internal/events"
)

// UploadUI manages concurrent upload progress bars using mpb, one per task.
type UploadUI struct {
	w          io.Writer
	progress   *mpb.Progress
	isTerminal bool
	totalFiles int
	started    int32 // file index counter (1, 2, 3, ...)
	completed  int32
	failed     int32

	mu   sync.Mutex
	bars map[string]*FileBar // task ID -> bar
}

// FileBar is a single file's upload bar.
type FileBar struct {
	bar        *mpb.Bar
	index      int
	name       string
	size       int64
	startTime  time.Time
	lastUpdate time.Time
	done       bool
}

// NewUploadUI creates an upload UI for totalFiles uploads writing to w.
func NewUploadUI(w io.Writer, totalFiles int) *UploadUI {
	isTerminal := prepareTerminal(w)

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(w),
			mpb.WithRefreshRate(300*time.Millisecond), // ~3 times per second
			mpb.WithWidth(100),
		)
	}

	return &UploadUI{
		w:          w,
		progress:   p,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
		bars:       make(map[string]*FileBar),
	}
}

// Handle implements Renderer. Download events are ignored.
func (u *UploadUI) Handle(ev *events.TransferEvent) {
	if ev.TaskType != "upload" {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	fb := u.bars[ev.TaskID]
	if fb == nil {
		fb = u.addBar(ev)
		u.bars[ev.TaskID] = fb
	}
	if fb.done {
		return
	}

	switch ev.Type() {
	case events.EventTransferProgress:
		u.update(fb, ev)
	case events.EventTransferCompleted:
		u.update(fb, ev)
		u.complete(fb, nil)
	case events.EventTransferFailed:
		u.complete(fb, ev.Error)
	case events.EventTransferCancelled:
		u.complete(fb, errCancelled)
	}
}

var errCancelled = errors.New("cancelled")

func (u *UploadUI) addBar(ev *events.TransferEvent) *FileBar {
	fb := &FileBar{
		index:      int(atomic.AddInt32(&u.started, 1)),
		name:       ev.Name,
		startTime:  time.Now(),
		lastUpdate: time.Now(),
	}
	if !u.isTerminal {
		fmt.Fprintf(u.w, "Uploading [%d/%d]: %s\n", fb.index, u.totalFiles, truncatePath(fb.name, 2))
		return fb
	}

	fb.bar = u.progress.New(0,
		mpb.BarStyle().
			Lbound("[").
			Filler("█").
			Tip("█").
			Padding("░").
			Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(s decor.Statistics) string {
				return fmt.Sprintf("[%d/%d] %s", fb.index, u.totalFiles, truncatePath(fb.name, 2))
			}, decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.Percentage(decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
			decor.Name("  "),
			decor.Name("ETA ", decor.WCSyncWidth),
			decor.EwmaETA(decor.ET_STYLE_GO, 30),
		),
		mpb.BarRemoveOnComplete(),
	)
	return fb
}

// update moves the bar to the event's byte count. Expected size arrives
// with the first progress event.
func (u *UploadUI) update(fb *FileBar, ev *events.TransferEvent) {
	if ev.BytesExpected > 0 {
		fb.size = ev.BytesExpected
	}
	if fb.bar == nil {
		return
	}
	if ev.BytesExpected > 0 {
		fb.bar.SetTotal(ev.BytesExpected, false)
	}
	now := time.Now()
	fb.bar.EwmaSetCurrent(ev.BytesTransferred, now.Sub(fb.lastUpdate))
	fb.lastUpdate = now
}

func (u *UploadUI) complete(fb *FileBar, err error) {
	fb.done = true
	elapsed := time.Since(fb.startTime)

	var msg string
	if err == nil {
		atomic.AddInt32(&u.completed, 1)
		if fb.bar != nil {
			fb.bar.SetTotal(-1, true) // mark done at current, triggers BarRemoveOnComplete
		}
		msg = fmt.Sprintf("✓ %s (%.1f MiB, %s)\n", fb.name, mib(fb.size), elapsed.Round(time.Second))
	} else {
		atomic.AddInt32(&u.failed, 1)
		if fb.bar != nil {
			fb.bar.Abort(false) // keep the failed bar visible
		}
		msg = fmt.Sprintf("✗ %s: %v\n", fb.name, err)
	}

	// Write through mpb so the bars are redrawn below the message.
	if u.isTerminal {
		_, _ = u.progress.Write([]byte(msg))
	} else {
		_, _ = io.WriteString(u.w, msg)
	}
}

// Close aborts bars still open and waits for mpb to finish drawing.
func (u *UploadUI) Close() {
	u.mu.Lock()
	for _, fb := range u.bars {
		if !fb.done && fb.bar != nil {
			fb.done = true
			fb.bar.Abort(false)
		}
	}
	u.mu.Unlock()

	if u.progress != nil {
		u.progress.Wait()
	}
}

// Writer returns an io.Writer that prints above the bars.
func (u *UploadUI) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return u.w
}

// Completed returns the number of successful uploads drawn.
func (u *UploadUI) Completed() int {
	return int(atomic.LoadInt32(&u.completed))
}

// Failed returns the number of failed or cancelled uploads drawn.
func (u *UploadUI) Failed() int {
	return int(atomic.LoadInt32(&u.failed))
}

// IsTerminal returns true if output is to a terminal (progress bars are active).
func (u *UploadUI) IsTerminal() bool {
	return u.isTerminal
}
