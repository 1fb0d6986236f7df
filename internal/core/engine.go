// Package core composes the transfer pipeline into a session: login fills
// the File Catalog, and every upload or delete the server accepts refreshes
// it.
package core

import (
	"context"
	"errors"
	"sync"

	"github.com/easyfiletransfer/eft/internal/api"
	"github.com/easyfiletransfer/eft/internal/config"
	"github.com/easyfiletransfer/eft/internal/constants"
	"github.com/easyfiletransfer/eft/internal/events"
	"github.com/easyfiletransfer/eft/internal/logging"
	"github.com/easyfiletransfer/eft/internal/models"
	"github.com/easyfiletransfer/eft/internal/state"
	"github.com/easyfiletransfer/eft/internal/transfer"
)

// ErrNotLoggedIn is returned by operations that need a session.
var ErrNotLoggedIn = errors.New("not logged in")

// Engine is the session orchestrator. It is the only writer of the
// catalog; refreshes are serialized.
type Engine struct {
	store     *config.Store
	client    *api.Client
	eventBus  *events.EventBus
	queue     *transfer.Queue
	catalog   *state.Catalog
	uploads   *transfer.UploadCoordinator
	downloads *transfer.DownloadCoordinator
	logger    *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	refreshMu sync.Mutex

	mu       sync.RWMutex
	loggedIn bool
	lastErr  error
}

// NewEngine wires a session around store and client. eventBus may be nil.
func NewEngine(store *config.Store, client *api.Client, eventBus *events.EventBus, logger *logging.Logger) *Engine {
	logger = logging.OrNop(logger)
	ctx, cancel := context.WithCancel(context.Background())

	queue := transfer.NewQueue(eventBus)
	e := &Engine{
		store:     store,
		client:    client,
		eventBus:  eventBus,
		queue:     queue,
		catalog:   state.NewCatalog(eventBus),
		uploads:   transfer.NewUploadCoordinator(client, queue, logger),
		downloads: transfer.NewDownloadCoordinator(client, queue, store.StagingDir(), logger),
		logger:    logger.Component("engine"),
		ctx:       ctx,
		cancel:    cancel,
	}
	e.uploads.OnSuccess(e.afterUpload)
	return e
}

// Catalog returns the File Catalog. Callers must treat it as read-only.
func (e *Engine) Catalog() *state.Catalog { return e.catalog }

// Queue returns the transfer tracker.
func (e *Engine) Queue() *transfer.Queue { return e.queue }

// Uploads returns the upload coordinator, for progress polling.
func (e *Engine) Uploads() *transfer.UploadCoordinator { return e.uploads }

// Downloads returns the download coordinator, for progress polling and
// result handoff.
func (e *Engine) Downloads() *transfer.DownloadCoordinator { return e.downloads }

// LoggedIn reports whether the session is usable.
func (e *Engine) LoggedIn() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loggedIn
}

// LastError returns the error that ended the session or the last failed
// login.
func (e *Engine) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

func (e *Engine) setSession(loggedIn bool, err error) {
	e.mu.Lock()
	changed := e.loggedIn != loggedIn
	e.loggedIn = loggedIn
	e.lastErr = err
	e.mu.Unlock()

	if !changed {
		return
	}
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	e.eventBus.Publish(&events.SessionChangedEvent{
		BaseEvent: events.NewBase(events.EventSessionChanged),
		LoggedIn:  loggedIn,
		Reason:    reason,
	})
}

// Login authenticates with the stored credentials and fills the catalog.
func (e *Engine) Login(ctx context.Context) error {
	creds := e.store.Credentials()
	if err := e.client.Login(ctx, creds); err != nil {
		e.setSession(false, err)
		return err
	}
	if !creds.IsSecure() {
		e.logger.Warn().Str("url", creds.ServerURL).Msg("Server URL is not https; credentials are sent in clear text")
	}
	e.logger.Info().Str("user", creds.Username).Msg("Logged in")
	e.setSession(true, nil)
	return e.Refresh(ctx)
}

// Refresh re-fetches the file list and replaces the catalog. A failed
// listing ends the session and leaves the catalog as it was.
func (e *Engine) Refresh(ctx context.Context) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, constants.APIContextTimeout)
	defer cancel()

	files, err := e.client.ListFiles(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("Refreshing file list failed; logging out")
		e.catalog.SetError(err)
		e.setSession(false, err)
		return err
	}
	e.catalog.Replace(files)
	e.logger.Debug().Int("files", len(files)).Msg("Catalog refreshed")
	return nil
}

func (e *Engine) afterUpload(fileName string) {
	if err := e.Refresh(e.ctx); err != nil {
		e.logger.Warn().Err(err).Str("file", fileName).Msg("Refresh after upload failed")
	}
}

// Upload sends each source as its own request. Failures are per file.
func (e *Engine) Upload(ctx context.Context, sources []transfer.Source) ([]transfer.UploadResult, error) {
	if !e.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	ctx, stop := e.scoped(ctx)
	defer stop()

	results := e.uploads.Upload(ctx, sources)
	for _, r := range results {
		if r.Err != nil {
			e.eventBus.PublishLog(events.WarnLevel, "upload failed", r.FileName, r.Err)
		}
	}
	return results, nil
}

// Download stages name, using the catalog size when the server sends none.
func (e *Engine) Download(ctx context.Context, name string) (*transfer.DownloadResult, error) {
	if !e.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	ctx, stop := e.scoped(ctx)
	defer stop()

	var sizeKB float64
	if rec, ok := e.catalog.Find(name); ok {
		sizeKB = rec.SizeKB()
	}
	return e.downloads.Download(ctx, name, sizeKB)
}

// DeleteResult is the outcome for one file.
type DeleteResult struct {
	FileName string
	Err      error
}

// Delete removes each named file. The catalog is refreshed once if any
// delete succeeded; a failed delete never touches it.
func (e *Engine) Delete(ctx context.Context, names ...string) ([]DeleteResult, error) {
	if !e.LoggedIn() {
		return nil, ErrNotLoggedIn
	}

	results := make([]DeleteResult, len(names))
	deleted := 0
	for i, name := range names {
		dctx, cancel := context.WithTimeout(ctx, constants.APIContextTimeout)
		err := e.client.DeleteFile(dctx, name)
		cancel()

		results[i] = DeleteResult{FileName: name, Err: err}
		if err != nil {
			e.logger.Error().Err(err).Str("file", name).Msg("Delete failed")
			e.eventBus.PublishLog(events.ErrorLevel, "delete failed", name, err)
			continue
		}
		deleted++
		e.logger.Info().Str("file", name).Msg("Deleted")
	}

	if deleted > 0 {
		if err := e.Refresh(ctx); err != nil {
			return results, err
		}
	}
	return results, nil
}

// Files returns the catalog contents.
func (e *Engine) Files() []models.FileRecord {
	return e.catalog.Items()
}

// scoped derives a context that also ends when the engine closes.
func (e *Engine) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Close cancels every transfer in flight and ends the session.
func (e *Engine) Close() {
	e.cancel()
	e.queue.CancelAll()
	e.setSession(false, nil)
}
