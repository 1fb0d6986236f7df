package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/easyfiletransfer/eft/internal/events"
)

// Task tests

func TestNewTransferTask(t *testing.T) {
	task := NewTransferTask(context.Background(), KindUpload, "test.dat", 1024)

	if task.ID == "" {
		t.Error("Task ID should not be empty")
	}
	if task.Kind != KindUpload {
		t.Errorf("Expected KindUpload, got %v", task.Kind)
	}
	if task.FileName != "test.dat" {
		t.Errorf("Expected name 'test.dat', got %s", task.FileName)
	}
	if task.State() != TaskPending {
		t.Errorf("Expected TaskPending, got %v", task.State())
	}
	if p, known := task.Progress(); p != 0 || !known {
		t.Errorf("Expected known progress 0, got %f (known=%v)", p, known)
	}
}

func TestUploadProgressResetsWhenSent(t *testing.T) {
	task := NewTransferTask(context.Background(), KindUpload, "a.bin", 1000)
	task.start()

	steps := []struct {
		sent int64
		want float64
	}{
		{0, 0},
		{250, 0.25},
		{999, 0.999},
		{1000, 0}, // everything sent: back to "nothing in progress"
		{1500, 0},
	}
	for _, s := range steps {
		task.update(s.sent)
		p, known := task.Progress()
		if !known {
			t.Fatalf("sent=%d: progress should be known", s.sent)
		}
		if p < 0 || p > 1 {
			t.Fatalf("sent=%d: progress %f out of range", s.sent, p)
		}
		if p != s.want {
			t.Errorf("sent=%d: expected %f, got %f", s.sent, s.want, p)
		}
	}
}

func TestDownloadProgress(t *testing.T) {
	t.Run("known size clamps", func(t *testing.T) {
		task := NewTransferTask(context.Background(), KindDownload, "a.bin", 100)
		task.start()

		task.update(50)
		if p, known := task.Progress(); !known || p != 0.5 {
			t.Errorf("Expected 0.5, got %f (known=%v)", p, known)
		}

		// Stale catalog size: more bytes than expected
		task.update(250)
		if p, _ := task.Progress(); p != 1.0 {
			t.Errorf("Expected clamp to 1.0, got %f", p)
		}
		if got := task.BytesTransferred(); got != 100 {
			t.Errorf("BytesTransferred should not exceed expected, got %d", got)
		}
	})

	t.Run("unknown size", func(t *testing.T) {
		for _, expected := range []int64{0, -1} {
			task := NewTransferTask(context.Background(), KindDownload, "a.bin", expected)
			task.start()
			task.update(4096)
			if p, known := task.Progress(); known || p != 0 {
				t.Errorf("expected=%d: want unknown progress, got %f (known=%v)", expected, p, known)
			}
		}
	})

	t.Run("completed forces one", func(t *testing.T) {
		task := NewTransferTask(context.Background(), KindDownload, "a.bin", 0)
		task.start()
		task.update(10)
		task.finish(TaskCompleted, nil)
		if p, known := task.Progress(); !known || p != 1.0 {
			t.Errorf("Expected 1.0 after completion, got %f (known=%v)", p, known)
		}
	})
}

func TestTransferTaskCancel(t *testing.T) {
	task := NewTransferTask(context.Background(), KindUpload, "test.dat", 100)

	select {
	case <-task.Context().Done():
		t.Error("Context should not be cancelled initially")
	default:
	}

	if !task.Cancel() {
		t.Error("First Cancel should report true")
	}
	if task.State() != TaskCancelled {
		t.Errorf("Expected TaskCancelled, got %v", task.State())
	}

	select {
	case <-task.Context().Done():
	default:
		t.Error("Context should be cancelled after Cancel()")
	}

	if task.Cancel() {
		t.Error("Second Cancel should report false")
	}
	if task.start() {
		t.Error("Cancelled task should not start")
	}
}

func TestTransferTaskParentContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	task := NewTransferTask(parent, KindDownload, "x", 0)
	cancel()

	select {
	case <-task.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("Task context should follow its parent")
	}
}

func TestTransferTaskFailKeepsFirstTerminalState(t *testing.T) {
	task := NewTransferTask(context.Background(), KindDownload, "fail.dat", 500)
	task.Cancel()

	if task.finish(TaskFailed, errors.New("late failure")) {
		t.Error("finish should not override a terminal state")
	}
	if task.State() != TaskCancelled {
		t.Errorf("Expected TaskCancelled, got %v", task.State())
	}
	if task.Err() != nil {
		t.Errorf("Expected no error, got %v", task.Err())
	}
}

func TestTransferTaskIsTerminal(t *testing.T) {
	tests := []struct {
		state    TaskState
		terminal bool
	}{
		{TaskPending, false},
		{TaskActive, false},
		{TaskCompleted, true},
		{TaskFailed, true},
		{TaskCancelled, true},
	}

	for _, tt := range tests {
		task := NewTransferTask(context.Background(), KindUpload, "test", 100)
		switch tt.state {
		case TaskActive:
			task.start()
		case TaskCompleted, TaskFailed, TaskCancelled:
			task.finish(tt.state, nil)
		}
		if task.IsTerminal() != tt.terminal {
			t.Errorf("State %v: expected terminal=%v, got %v", tt.state, tt.terminal, task.IsTerminal())
		}
	}
}

// Queue tests

func collect(ch <-chan events.Event, n int, timeout time.Duration) []*events.TransferEvent {
	var out []*events.TransferEvent
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case ev := <-ch:
			if te, ok := ev.(*events.TransferEvent); ok {
				out = append(out, te)
			}
		case <-deadline:
			return out
		}
	}
	return out
}

func TestQueueLifecycleEvents(t *testing.T) {
	eventBus := events.NewEventBus(100)
	defer eventBus.Close()
	ch := eventBus.SubscribeAll()

	queue := NewQueue(eventBus)
	task := queue.Track(context.Background(), KindUpload, "upload.dat", 10)
	queue.Start(task)
	queue.UpdateProgress(task, 10) // reaching expected is never throttled
	queue.Complete(task)

	got := collect(ch, 4, time.Second)
	want := []events.EventType{
		events.EventTransferQueued,
		events.EventTransferStarted,
		events.EventTransferProgress,
		events.EventTransferCompleted,
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(got))
	}
	for i, ev := range got {
		if ev.Type() != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], ev.Type())
		}
		if ev.TaskID != task.ID || ev.Name != "upload.dat" || ev.TaskType != "upload" {
			t.Errorf("Event %d carries wrong task: %+v", i, ev)
		}
	}
	if got[2].BytesTransferred != 10 || got[2].BytesExpected != 10 {
		t.Errorf("Progress event bytes = %d/%d", got[2].BytesTransferred, got[2].BytesExpected)
	}
}

func TestQueueProgressThrottled(t *testing.T) {
	eventBus := events.NewEventBus(100)
	defer eventBus.Close()
	ch := eventBus.Subscribe(events.EventTransferProgress)

	queue := NewQueue(eventBus)
	task := queue.Track(context.Background(), KindDownload, "big.bin", 1000)
	queue.Start(task)
	for i := int64(1); i < 50; i++ {
		queue.UpdateProgress(task, i)
	}

	got := collect(ch, 50, 200*time.Millisecond)
	if len(got) == 0 || len(got) > 2 {
		t.Errorf("Expected 1 or 2 throttled progress events, got %d", len(got))
	}
	if task.BytesTransferred() != 49 {
		t.Errorf("Task should still record every update, got %d", task.BytesTransferred())
	}
}

func TestQueueFailAfterCancelStaysCancelled(t *testing.T) {
	eventBus := events.NewEventBus(100)
	defer eventBus.Close()
	ch := eventBus.SubscribeAll()

	queue := NewQueue(eventBus)
	task := queue.Track(context.Background(), KindUpload, "x", 1)
	queue.Start(task)

	if !queue.Cancel(task.ID) {
		t.Fatal("Cancel should succeed for an active task")
	}
	queue.Fail(task, errors.New("connection reset"))

	got := collect(ch, 4, 200*time.Millisecond)
	if len(got) != 3 {
		t.Fatalf("Expected queued, started, cancelled; got %d events", len(got))
	}
	if got[2].Type() != events.EventTransferCancelled {
		t.Errorf("Expected cancelled event, got %s", got[2].Type())
	}
	if queue.Cancel("missing") {
		t.Error("Cancel of unknown task should fail")
	}
}

func TestQueueStatsAndRemove(t *testing.T) {
	queue := NewQueue(nil)

	a := queue.Track(context.Background(), KindUpload, "a", 1)
	b := queue.Track(context.Background(), KindUpload, "b", 1)
	c := queue.Track(context.Background(), KindDownload, "c", 1)
	queue.Start(b)
	queue.Complete(c)

	stats := queue.Stats()
	if stats.Pending != 1 || stats.Active != 1 || stats.Completed != 1 || stats.Total() != 3 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	queue.ClearCompleted()
	if got := len(queue.Tasks()); got != 2 {
		t.Errorf("Expected 2 tasks after ClearCompleted, got %d", got)
	}

	queue.Remove(a)
	queue.Remove(a)
	if _, ok := queue.Task(a.ID); ok {
		t.Error("Removed task should not be found")
	}
	if snap, ok := queue.Task(b.ID); !ok || snap.State != TaskActive {
		t.Errorf("Expected active task b, got %+v (found=%v)", snap, ok)
	}

	queue.CancelAll()
	if b.State() != TaskCancelled {
		t.Errorf("CancelAll should cancel b, got %v", b.State())
	}
}
