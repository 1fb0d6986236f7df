package transfer

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/easyfiletransfer/eft/internal/api"
	"github.com/easyfiletransfer/eft/internal/logging"
)

// Uploader sends one file per request. *api.Client implements it.
type Uploader interface {
	UploadFile(ctx context.Context, fileName string, content io.Reader, length int64, onProgress api.ProgressFunc) error
}

// UploadResult is the outcome for one file.
type UploadResult struct {
	TaskID   string
	FileName string
	Err      error // nil on success; an *api.UploadError otherwise
}

// UploadCoordinator runs uploads, one independent request per file. All
// requests of a batch are in flight together; one failing never stops the
// others.
type UploadCoordinator struct {
	client Uploader
	queue  *Queue
	logger *logging.Logger

	mu        sync.RWMutex
	onSuccess func(fileName string)
}

// NewUploadCoordinator creates a coordinator tracking its tasks in queue.
func NewUploadCoordinator(client Uploader, queue *Queue, logger *logging.Logger) *UploadCoordinator {
	return &UploadCoordinator{
		client: client,
		queue:  queue,
		logger: logging.OrNop(logger).Component("upload"),
	}
}

// OnSuccess sets the hook called after every upload the server accepted.
// It runs on the upload's goroutine.
func (c *UploadCoordinator) OnSuccess(fn func(fileName string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSuccess = fn
}

// UploadBatch is a set of uploads started together.
type UploadBatch struct {
	tasks   []*TransferTask
	results []UploadResult
	done    chan struct{}
}

// Tasks returns the batch's tasks in source order.
func (b *UploadBatch) Tasks() []*TransferTask {
	return b.tasks
}

// Done is closed when every upload of the batch has finished.
func (b *UploadBatch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the batch finishes and returns one result per source,
// in source order.
func (b *UploadBatch) Wait() []UploadResult {
	<-b.done
	return b.results
}

// Start begins uploading every source and returns immediately.
func (c *UploadCoordinator) Start(ctx context.Context, sources []Source) *UploadBatch {
	batch := &UploadBatch{
		tasks:   make([]*TransferTask, len(sources)),
		results: make([]UploadResult, len(sources)),
		done:    make(chan struct{}),
	}
	for i, src := range sources {
		batch.tasks[i] = c.queue.Track(ctx, KindUpload, src.Name(), -1)
	}

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			task := batch.tasks[i]
			batch.results[i] = UploadResult{
				TaskID:   task.ID,
				FileName: src.Name(),
				Err:      c.uploadOne(task, src),
			}
		}(i, src)
	}

	go func() {
		wg.Wait()
		close(batch.done)
	}()
	return batch
}

// Upload uploads every source and waits for all of them.
func (c *UploadCoordinator) Upload(ctx context.Context, sources []Source) []UploadResult {
	return c.Start(ctx, sources).Wait()
}

func (c *UploadCoordinator) uploadOne(task *TransferTask, src Source) error {
	defer c.queue.Remove(task)
	name := src.Name()

	if !c.queue.Start(task) {
		return &api.UploadError{FileName: name, Kind: api.UploadCancelled, Err: task.Context().Err()}
	}

	content, length, err := src.Open()
	if err != nil {
		uerr := &api.UploadError{FileName: name, Kind: api.UploadSource, Err: err}
		c.logger.Error().Err(err).Str("file", name).Msg("Cannot read file for upload")
		c.queue.Fail(task, uerr)
		return uerr
	}
	defer content.Close()

	err = c.client.UploadFile(task.Context(), name, content, length, func(sent, expected int64) {
		if expected > 0 && task.BytesExpected() != expected {
			c.queue.SetExpected(task, expected)
		}
		c.queue.UpdateProgress(task, sent)
	})

	if err != nil {
		if task.Context().Err() != nil {
			c.queue.CancelTask(task)
			var uerr *api.UploadError
			if !errors.As(err, &uerr) || uerr.Kind != api.UploadCancelled {
				err = &api.UploadError{FileName: name, Kind: api.UploadCancelled, Err: task.Context().Err()}
			}
			c.logger.Warn().Str("file", name).Msg("Upload cancelled")
			return err
		}
		c.logger.Error().Err(err).Str("file", name).Msg("Upload failed")
		c.queue.Fail(task, err)
		return err
	}

	c.queue.Complete(task)
	c.logger.Info().Str("file", name).Int64("bytes", task.BytesExpected()).Msg("Upload complete")

	c.mu.RLock()
	hook := c.onSuccess
	c.mu.RUnlock()
	if hook != nil {
		hook(name)
	}
	return nil
}

// AggregateProgress returns sent/expected summed over the uploads in flight
// with a known size, clamped to [0,1]. It is 0 when nothing is uploading.
func (c *UploadCoordinator) AggregateProgress() float64 {
	var sent, expected int64
	for _, task := range c.queue.active(KindUpload) {
		exp := task.BytesExpected()
		if exp <= 0 {
			continue
		}
		sent += task.BytesTransferred()
		expected += exp
	}
	if expected == 0 {
		return 0
	}
	return clamp01(float64(sent) / float64(expected))
}

// Active returns snapshots of the uploads in flight.
func (c *UploadCoordinator) Active() []TaskSnapshot {
	tasks := c.queue.active(KindUpload)
	out := make([]TaskSnapshot, len(tasks))
	for i, task := range tasks {
		out[i] = task.Snapshot()
	}
	return out
}

// CancelAll aborts every upload in flight.
func (c *UploadCoordinator) CancelAll() {
	for _, task := range c.queue.active(KindUpload) {
		c.queue.CancelTask(task)
	}
}
