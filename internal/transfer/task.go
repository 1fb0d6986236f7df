// Package transfer runs uploads and downloads against the file server and
// tracks each one as a TransferTask.
package transfer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskKind indicates whether a task is an upload or download.
type TaskKind string

const (
	KindUpload   TaskKind = "upload"
	KindDownload TaskKind = "download"
)

// TaskState represents the current state of a transfer task.
type TaskState string

const (
	TaskPending   TaskState = "pending"   // Created, request not yet sent
	TaskActive    TaskState = "active"    // Request dispatched
	TaskCompleted TaskState = "completed" // Successfully completed
	TaskFailed    TaskState = "failed"    // Failed with error
	TaskCancelled TaskState = "cancelled" // Cancelled or superseded
)

// TransferTask is one in-flight upload or download.
// Thread-safe: use the provided methods to read and update it.
type TransferTask struct {
	ID       string
	Kind     TaskKind
	FileName string

	mu          sync.RWMutex
	state       TaskState
	transferred int64 // raw byte count, may overshoot a stale expected size
	expected    int64 // <= 0 when unknown
	err         error

	speed      float64 // bytes/sec, EMA smoothed
	lastBytes  int64
	lastUpdate time.Time

	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewTransferTask creates a pending task whose context derives from parent.
// expected is the byte count to move, or <= 0 if unknown.
func NewTransferTask(parent context.Context, kind TaskKind, fileName string, expected int64) *TransferTask {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &TransferTask{
		ID:        uuid.NewString(),
		Kind:      kind,
		FileName:  fileName,
		state:     TaskPending,
		expected:  expected,
		createdAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// State returns the current state.
func (t *TransferTask) State() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Err returns the failure cause, if any.
func (t *TransferTask) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Context returns the task's context. It is done once the task is cancelled
// or reaches a terminal state.
func (t *TransferTask) Context() context.Context {
	return t.ctx
}

// BytesExpected returns the expected byte count, or 0 when unknown.
func (t *TransferTask) BytesExpected() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.expected < 0 {
		return 0
	}
	return t.expected
}

// BytesTransferred returns bytes moved so far, never more than the expected
// size once that is known.
func (t *TransferTask) BytesTransferred() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clampedLocked()
}

func (t *TransferTask) clampedLocked() int64 {
	if t.expected > 0 && t.transferred > t.expected {
		return t.expected
	}
	return t.transferred
}

// Progress returns the fractional progress in [0,1] and whether it is known.
//
// Upload progress drops back to 0 once everything is sent: a sustained 1.0
// never means "done", callers watch the completion event for that.
// A completed download reports exactly 1.0. A download with no positive
// expected size reports unknown progress.
func (t *TransferTask) Progress() (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progressLocked()
}

func (t *TransferTask) progressLocked() (float64, bool) {
	if t.Kind == KindDownload && t.state == TaskCompleted {
		return 1.0, true
	}
	if t.expected <= 0 {
		return 0, false
	}
	if t.Kind == KindUpload && t.transferred >= t.expected {
		return 0, true
	}
	return clamp01(float64(t.transferred) / float64(t.expected)), true
}

func clamp01(f float64) float64 {
	switch {
	case f != f || f < 0: // NaN
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// Speed returns the smoothed transfer rate in bytes/sec.
func (t *TransferTask) Speed() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.speed
}

// setExpected replaces the expected size. Downloads learn it from the
// response headers.
func (t *TransferTask) setExpected(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expected = n
}

// start moves a pending task to active. Returns false if the task already
// left pending (for instance it was cancelled before the request went out).
func (t *TransferTask) start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TaskPending {
		return false
	}
	t.state = TaskActive
	t.startedAt = time.Now()
	t.lastUpdate = t.startedAt
	return true
}

// update records the cumulative byte count and refreshes the speed estimate.
func (t *TransferTask) update(transferred int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TaskActive {
		return
	}

	now := time.Now()
	if elapsed := now.Sub(t.lastUpdate).Seconds(); elapsed > 0.1 && transferred > t.lastBytes {
		instantRate := float64(transferred-t.lastBytes) / elapsed
		// EMA smoothing (alpha=0.25): 25% weight to new value, 75% to previous
		const speedSmoothingAlpha = 0.25
		if t.speed > 0 {
			t.speed = speedSmoothingAlpha*instantRate + (1-speedSmoothingAlpha)*t.speed
		} else {
			t.speed = instantRate
		}
		t.lastBytes = transferred
		t.lastUpdate = now
	}
	t.transferred = transferred
}

// finish moves a non-terminal task to state and releases its context.
// Returns false if the task was already terminal.
func (t *TransferTask) finish(state TaskState, err error) bool {
	t.mu.Lock()
	if t.isTerminalLocked() {
		t.mu.Unlock()
		return false
	}
	t.state = state
	t.err = err
	t.completedAt = time.Now()
	t.mu.Unlock()

	t.cancel()
	return true
}

// Cancel aborts the task's in-flight request. Returns false if the task had
// already finished.
func (t *TransferTask) Cancel() bool {
	return t.finish(TaskCancelled, nil)
}

// IsTerminal returns true if the task is completed, failed or cancelled.
func (t *TransferTask) IsTerminal() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isTerminalLocked()
}

func (t *TransferTask) isTerminalLocked() bool {
	return t.state == TaskCompleted || t.state == TaskFailed || t.state == TaskCancelled
}

// TaskSnapshot is a point-in-time copy of a task for display.
type TaskSnapshot struct {
	ID               string
	Kind             TaskKind
	FileName         string
	State            TaskState
	BytesTransferred int64
	BytesExpected    int64
	Progress         float64
	ProgressKnown    bool
	Speed            float64
	Err              error
	CreatedAt        time.Time
	StartedAt        time.Time
	CompletedAt      time.Time
}

// Snapshot returns a consistent copy of the task's state.
func (t *TransferTask) Snapshot() TaskSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	progress, known := t.progressLocked()
	expected := t.expected
	if expected < 0 {
		expected = 0
	}
	return TaskSnapshot{
		ID:               t.ID,
		Kind:             t.Kind,
		FileName:         t.FileName,
		State:            t.state,
		BytesTransferred: t.clampedLocked(),
		BytesExpected:    expected,
		Progress:         progress,
		ProgressKnown:    known,
		Speed:            t.speed,
		Err:              t.err,
		CreatedAt:        t.createdAt,
		StartedAt:        t.startedAt,
		CompletedAt:      t.completedAt,
	}
}
