package transfer

import (
	"context"
	"sync"
	"time"

	"github.com/easyfiletransfer/eft/internal/constants"
	"github.com/easyfiletransfer/eft/internal/events"
)

// QueueStats holds statistics about tracked tasks.
type QueueStats struct {
	Pending   int
	Active    int
	Completed int
	Failed    int
	Cancelled int
}

// Total returns total number of tracked tasks.
func (s QueueStats) Total() int {
	return s.Pending + s.Active + s.Completed + s.Failed + s.Cancelled
}

// Queue tracks transfer tasks and publishes their lifecycle on the event bus.
// It does not execute transfers; the coordinators do, and report every state
// change through it:
//   - Track() when a transfer is requested
//   - Start() when its request goes out
//   - UpdateProgress() as bytes move
//   - Complete()/Fail() when it ends
//   - Remove() once the owner no longer needs it
type Queue struct {
	tasks     []*TransferTask
	tasksByID map[string]*TransferTask
	mu        sync.RWMutex

	// last progress event per task, for throttling
	lastPublished map[string]time.Time

	eventBus *events.EventBus
}

// NewQueue creates a queue publishing on eventBus (may be nil).
func NewQueue(eventBus *events.EventBus) *Queue {
	return &Queue{
		tasksByID:     make(map[string]*TransferTask),
		lastPublished: make(map[string]time.Time),
		eventBus:      eventBus,
	}
}

// Track registers a new pending task.
func (q *Queue) Track(ctx context.Context, kind TaskKind, fileName string, expected int64) *TransferTask {
	task := NewTransferTask(ctx, kind, fileName, expected)

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.tasksByID[task.ID] = task
	q.mu.Unlock()

	q.publishTransferEvent(events.EventTransferQueued, task)
	return task
}

// Start marks a pending task active. Returns false if the task was cancelled
// before it could start.
func (q *Queue) Start(task *TransferTask) bool {
	if !task.start() {
		return false
	}
	q.publishTransferEvent(events.EventTransferStarted, task)
	return true
}

// SetExpected updates the expected size of a task.
func (q *Queue) SetExpected(task *TransferTask, expected int64) {
	task.setExpected(expected)
}

// UpdateProgress records bytes moved. Progress events are throttled to one
// per ProgressUpdateInterval per task, except when the transfer reaches its
// expected size.
func (q *Queue) UpdateProgress(task *TransferTask, transferred int64) {
	task.update(transferred)

	now := time.Now()
	expected := task.BytesExpected()
	q.mu.Lock()
	last := q.lastPublished[task.ID]
	due := now.Sub(last) >= constants.ProgressUpdateInterval || (expected > 0 && transferred >= expected)
	if due {
		q.lastPublished[task.ID] = now
	}
	q.mu.Unlock()

	if due {
		q.publishTransferEvent(events.EventTransferProgress, task)
	}
}

// Complete marks a task as successfully completed.
func (q *Queue) Complete(task *TransferTask) {
	if task.finish(TaskCompleted, nil) {
		q.publishTransferEvent(events.EventTransferCompleted, task)
	}
}

// Fail marks a task as failed with an error. A task that was cancelled
// stays cancelled.
func (q *Queue) Fail(task *TransferTask, err error) {
	if task.finish(TaskFailed, err) {
		q.publishTransferEvent(events.EventTransferFailed, task)
	}
}

// Cancel cancels a tracked task by ID. Returns false if it is unknown or
// already finished.
func (q *Queue) Cancel(taskID string) bool {
	q.mu.RLock()
	task := q.tasksByID[taskID]
	q.mu.RUnlock()

	if task == nil {
		return false
	}
	return q.CancelTask(task)
}

// CancelTask cancels task. Returns false if it already finished.
func (q *Queue) CancelTask(task *TransferTask) bool {
	if !task.Cancel() {
		return false
	}
	q.publishTransferEvent(events.EventTransferCancelled, task)
	return true
}

// CancelAll cancels every non-terminal task.
func (q *Queue) CancelAll() {
	q.mu.RLock()
	tasks := make([]*TransferTask, len(q.tasks))
	copy(tasks, q.tasks)
	q.mu.RUnlock()

	for _, task := range tasks {
		q.CancelTask(task)
	}
}

// Remove stops tracking task.
func (q *Queue) Remove(task *TransferTask) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.tasksByID[task.ID]; !ok {
		return
	}
	delete(q.tasksByID, task.ID)
	delete(q.lastPublished, task.ID)
	for i, t := range q.tasks {
		if t == task {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			break
		}
	}
}

// ClearCompleted removes all completed, failed and cancelled tasks.
func (q *Queue) ClearCompleted() {
	q.mu.Lock()
	defer q.mu.Unlock()

	filtered := make([]*TransferTask, 0, len(q.tasks))
	for _, task := range q.tasks {
		if !task.IsTerminal() {
			filtered = append(filtered, task)
		} else {
			delete(q.tasksByID, task.ID)
			delete(q.lastPublished, task.ID)
		}
	}
	q.tasks = filtered
}

// Stats returns current queue statistics.
func (q *Queue) Stats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := QueueStats{}
	for _, task := range q.tasks {
		switch task.State() {
		case TaskPending:
			stats.Pending++
		case TaskActive:
			stats.Active++
		case TaskCompleted:
			stats.Completed++
		case TaskFailed:
			stats.Failed++
		case TaskCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// Tasks returns snapshots of all tracked tasks in creation order.
func (q *Queue) Tasks() []TaskSnapshot {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]TaskSnapshot, len(q.tasks))
	for i, task := range q.tasks {
		result[i] = task.Snapshot()
	}
	return result
}

// Task returns a snapshot of a specific task by ID.
func (q *Queue) Task(taskID string) (TaskSnapshot, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	task, exists := q.tasksByID[taskID]
	if !exists {
		return TaskSnapshot{}, false
	}
	return task.Snapshot(), true
}

// active returns the non-terminal tasks of kind.
func (q *Queue) active(kind TaskKind) []*TransferTask {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var out []*TransferTask
	for _, task := range q.tasks {
		if task.Kind == kind && !task.IsTerminal() {
			out = append(out, task)
		}
	}
	return out
}

// publishTransferEvent publishes a transfer event to the event bus.
func (q *Queue) publishTransferEvent(eventType events.EventType, task *TransferTask) {
	if q.eventBus == nil {
		return
	}

	snap := task.Snapshot()
	q.eventBus.Publish(&events.TransferEvent{
		BaseEvent:        events.NewBase(eventType),
		TaskID:           snap.ID,
		TaskType:         string(snap.Kind),
		Name:             snap.FileName,
		BytesTransferred: snap.BytesTransferred,
		BytesExpected:    snap.BytesExpected,
		Progress:         snap.Progress,
		ProgressKnown:    snap.ProgressKnown,
		Error:            snap.Err,
	})
}
