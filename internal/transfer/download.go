package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/easyfiletransfer/eft/internal/api"
	"github.com/easyfiletransfer/eft/internal/constants"
	"github.com/easyfiletransfer/eft/internal/diskspace"
	"github.com/easyfiletransfer/eft/internal/logging"
	"github.com/easyfiletransfer/eft/internal/util/buffers"
)

// Downloader opens a download stream. *api.Client implements it.
type Downloader interface {
	OpenDownload(ctx context.Context, name string) (*api.DownloadStream, error)
}

// DownloadResult is a completed download handed off from the staging area.
type DownloadResult struct {
	FileName string
	Path     string // staged file
	Bytes    int64
}

// DownloadCoordinator runs one download at a time. Starting a new download
// cancels the one in flight and clears the previous result.
type DownloadCoordinator struct {
	client     Downloader
	queue      *Queue
	stagingDir string
	logger     *logging.Logger

	// CheckSpace is consulted before streaming when the size is known.
	CheckSpace func(targetPath string, requiredBytes int64) error

	mu      sync.Mutex
	current *TransferTask
	result  *DownloadResult
}

// NewDownloadCoordinator creates a coordinator staging files in stagingDir.
func NewDownloadCoordinator(client Downloader, queue *Queue, stagingDir string, logger *logging.Logger) *DownloadCoordinator {
	return &DownloadCoordinator{
		client:     client,
		queue:      queue,
		stagingDir: stagingDir,
		logger:     logging.OrNop(logger).Component("download"),
		CheckSpace: func(targetPath string, requiredBytes int64) error {
			return diskspace.CheckAvailableSpace(targetPath, requiredBytes, constants.DiskSpaceSafetyMargin)
		},
	}
}

// StagedName reduces a remote name to the file name used in the staging area.
func StagedName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case "", ".", "..", "/":
		return constants.DefaultStagedFileName
	}
	return base
}

// StagingDir returns the staging directory.
func (c *DownloadCoordinator) StagingDir() string {
	return c.stagingDir
}

// Download fetches name into the staging area and blocks until it is staged.
// expectedKB is the catalog's size for the file; it is only used when the
// server does not report a length, and may be 0.
func (c *DownloadCoordinator) Download(ctx context.Context, name string, expectedKB float64) (*DownloadResult, error) {
	task := c.begin(ctx, name, expectedKB)

	result, err := c.run(task, name)
	if err != nil {
		if task.Context().Err() != nil {
			c.queue.CancelTask(task)
			cause := task.Context().Err()
			if c.supersededBy(task) {
				cause = api.ErrDownloadSuperseded
			}
			c.logger.Warn().Str("file", name).Msg("Download cancelled")
			return nil, &api.DownloadError{FileName: name, Kind: api.DownloadCancelled, Err: cause}
		}
		c.logger.Error().Err(err).Str("file", name).Msg("Download failed")
		c.queue.Fail(task, err)
		return nil, err
	}

	c.queue.Complete(task)

	c.mu.Lock()
	if c.current == task {
		c.result = result
	}
	c.mu.Unlock()

	c.logger.Info().Str("file", name).Str("path", result.Path).Int64("bytes", result.Bytes).Msg("Download complete")
	return result, nil
}

// begin replaces the current task with a new one.
func (c *DownloadCoordinator) begin(ctx context.Context, name string, expectedKB float64) *TransferTask {
	var fallback int64
	if expectedKB > 0 {
		fallback = int64(expectedKB * 1024)
	}

	c.mu.Lock()
	prev := c.current
	task := c.queue.Track(ctx, KindDownload, name, fallback)
	c.current = task
	c.result = nil
	c.mu.Unlock()

	if prev != nil {
		c.queue.CancelTask(prev)
		c.queue.Remove(prev)
	}
	return task
}

func (c *DownloadCoordinator) supersededBy(task *TransferTask) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != task
}

func (c *DownloadCoordinator) run(task *TransferTask, name string) (*DownloadResult, error) {
	if !c.queue.Start(task) {
		return nil, task.Context().Err()
	}

	if err := os.MkdirAll(c.stagingDir, 0o755); err != nil {
		return nil, &api.DownloadError{FileName: name, Kind: api.DownloadStaging, Err: err}
	}

	stream, err := c.client.OpenDownload(task.Context(), name)
	if err != nil {
		return nil, err
	}
	defer stream.Body.Close()

	if stream.ContentLength > 0 {
		c.queue.SetExpected(task, stream.ContentLength)
	}

	dest := filepath.Join(c.stagingDir, StagedName(name))
	if expected := task.BytesExpected(); expected > 0 && c.CheckSpace != nil {
		if err := c.CheckSpace(dest, expected); err != nil {
			return nil, &api.DownloadError{FileName: name, Kind: api.DownloadSpace, Err: err}
		}
	}

	tmp, err := os.CreateTemp(c.stagingDir, ".eft-*.part")
	if err != nil {
		return nil, &api.DownloadError{FileName: name, Kind: api.DownloadStaging, Err: err}
	}
	tmpPath := tmp.Name()
	staged := false
	defer func() {
		if !staged {
			os.Remove(tmpPath)
		}
	}()

	pw := &progressWriter{w: tmp, report: func(n int64) { c.queue.UpdateProgress(task, n) }}
	buf := buffers.GetCopyBuffer()
	written, copyErr := io.CopyBuffer(pw, stream.Body, *buf)
	buffers.PutCopyBuffer(buf)
	closeErr := tmp.Close()
	if copyErr != nil {
		var werr *writeError
		if errors.As(copyErr, &werr) {
			return nil, &api.DownloadError{FileName: name, Kind: api.DownloadStaging, Err: werr.err}
		}
		return nil, &api.DownloadError{FileName: name, Kind: api.DownloadTransport, Err: copyErr}
	}
	if closeErr != nil {
		return nil, &api.DownloadError{FileName: name, Kind: api.DownloadStaging, Err: closeErr}
	}

	// A superseded download must not overwrite the slot.
	if err := task.Context().Err(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return nil, &api.DownloadError{FileName: name, Kind: api.DownloadStaging, Err: fmt.Errorf("moving into staging slot: %w", err)}
	}
	staged = true

	return &DownloadResult{FileName: name, Path: dest, Bytes: written}, nil
}

// Result returns the staged file once the current download has completed.
func (c *DownloadCoordinator) Result() (DownloadResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return DownloadResult{}, false
	}
	return *c.result, true
}

// Progress returns the current download's progress and whether it is known.
func (c *DownloadCoordinator) Progress() (float64, bool) {
	c.mu.Lock()
	task := c.current
	c.mu.Unlock()
	if task == nil {
		return 0, false
	}
	return task.Progress()
}

// Current returns a snapshot of the current download.
func (c *DownloadCoordinator) Current() (TaskSnapshot, bool) {
	c.mu.Lock()
	task := c.current
	c.mu.Unlock()
	if task == nil {
		return TaskSnapshot{}, false
	}
	return task.Snapshot(), true
}

// Cancel aborts the current download, if any.
func (c *DownloadCoordinator) Cancel() bool {
	c.mu.Lock()
	task := c.current
	c.mu.Unlock()
	if task == nil {
		return false
	}
	return c.queue.CancelTask(task)
}

// writeError marks a failure writing the staging file, as opposed to reading
// the response.
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

// progressWriter reports the running byte count after every write.
type progressWriter struct {
	w      io.Writer
	n      int64
	report func(int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.n += int64(n)
	if n > 0 {
		p.report(p.n)
	}
	if err != nil {
		return n, &writeError{err}
	}
	return n, nil
}
