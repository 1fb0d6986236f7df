package transfer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/easyfiletransfer/eft/internal/api"
	"github.com/easyfiletransfer/eft/internal/diskspace"
)

// fakeDownloader serves fixed bodies. A name listed in hold blocks until
// the request context is done.
type fakeDownloader struct {
	bodies        map[string]string
	contentLength map[string]int64 // overrides; absent means len(body)
	hold          map[string]bool
	started       chan string
}

func (f *fakeDownloader) OpenDownload(ctx context.Context, name string) (*api.DownloadStream, error) {
	if f.started != nil {
		f.started <- name
	}
	if f.hold[name] {
		<-ctx.Done()
		return nil, &api.DownloadError{FileName: name, Kind: api.DownloadCancelled, Err: ctx.Err()}
	}
	body, ok := f.bodies[name]
	if !ok {
		return nil, &api.DownloadError{FileName: name, Kind: api.DownloadStatus, StatusCode: 404}
	}
	n := int64(len(body))
	if cl, ok := f.contentLength[name]; ok {
		n = cl
	}
	return &api.DownloadStream{Body: io.NopCloser(strings.NewReader(body)), ContentLength: n}, nil
}

func TestStagedName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"dir/sub/report.pdf":  "report.pdf",
		`C:\Users\a\file.txt`: "file.txt",
		"":                    "downloaded_file",
		"..":                  "downloaded_file",
		"/":                   "downloaded_file",
	}
	for in, want := range tests {
		if got := StagedName(in); got != want {
			t.Errorf("StagedName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDownloadStagesFile(t *testing.T) {
	staging := filepath.Join(t.TempDir(), "staging")
	client := &fakeDownloader{bodies: map[string]string{"a.txt": "first", "b.txt": "second"}}
	coord := NewDownloadCoordinator(client, NewQueue(nil), staging, nil)

	if _, ok := coord.Result(); ok {
		t.Fatal("No result expected before any download")
	}

	res, err := coord.Download(context.Background(), "a.txt", 0)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if res.Path != filepath.Join(staging, "a.txt") || res.Bytes != 5 {
		t.Errorf("Unexpected result %+v", res)
	}
	data, _ := os.ReadFile(res.Path)
	if string(data) != "first" {
		t.Errorf("Staged content = %q", data)
	}
	if p, known := coord.Progress(); !known || p != 1.0 {
		t.Errorf("Expected progress 1.0, got %f (known=%v)", p, known)
	}
	if got, ok := coord.Result(); !ok || got.Path != res.Path {
		t.Errorf("Result() = %+v, %v", got, ok)
	}

	// Same slot is replaced, no temp files left behind.
	client.bodies["a.txt"] = "replaced"
	if _, err := coord.Download(context.Background(), "a.txt", 0); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(filepath.Join(staging, "a.txt"))
	if string(data) != "replaced" {
		t.Errorf("Slot not replaced: %q", data)
	}
	entries, _ := os.ReadDir(staging)
	if len(entries) != 1 {
		t.Errorf("Expected only the staged file, got %d entries", len(entries))
	}
}

func TestDownloadUnknownSizeUsesCatalogFallback(t *testing.T) {
	client := &fakeDownloader{
		bodies:        map[string]string{"a.bin": strings.Repeat("x", 2048)},
		contentLength: map[string]int64{"a.bin": -1},
	}
	queue := NewQueue(nil)
	coord := NewDownloadCoordinator(client, queue, t.TempDir(), nil)

	var checked int64
	coord.CheckSpace = func(_ string, required int64) error {
		checked = required
		return nil
	}

	if _, err := coord.Download(context.Background(), "a.bin", 2.0); err != nil {
		t.Fatal(err)
	}
	if checked != 2048 {
		t.Errorf("Space check should use the catalog size, got %d", checked)
	}

	// Neither server nor catalog size: no check, progress unknown until done.
	checked = 0
	if _, err := coord.Download(context.Background(), "a.bin", 0); err != nil {
		t.Fatal(err)
	}
	if checked != 0 {
		t.Errorf("Space check should be skipped for unknown size, got %d", checked)
	}
}

func TestDownloadFailures(t *testing.T) {
	staging := t.TempDir()
	client := &fakeDownloader{bodies: map[string]string{"big.iso": "data"}}
	coord := NewDownloadCoordinator(client, NewQueue(nil), staging, nil)
	coord.CheckSpace = func(target string, required int64) error {
		return &diskspace.InsufficientSpaceError{Path: target, RequiredBytes: required}
	}

	_, err := coord.Download(context.Background(), "missing", 0)
	var dlErr *api.DownloadError
	if !errors.As(err, &dlErr) || dlErr.Kind != api.DownloadStatus {
		t.Errorf("Expected status error, got %v", err)
	}

	_, err = coord.Download(context.Background(), "big.iso", 0)
	if !errors.As(err, &dlErr) || dlErr.Kind != api.DownloadSpace {
		t.Errorf("Expected space error, got %v", err)
	}
	if !diskspace.IsInsufficientSpaceError(err) {
		t.Error("Space error should wrap InsufficientSpaceError")
	}
	if _, ok := coord.Result(); ok {
		t.Error("Failed download must not leave a result")
	}
	if snap, _ := coord.Current(); snap.State != TaskFailed {
		t.Errorf("Expected failed task, got %v", snap.State)
	}
	entries, _ := os.ReadDir(staging)
	if len(entries) != 0 {
		t.Errorf("Nothing should be staged, got %d entries", len(entries))
	}
}

func TestDownloadSupersede(t *testing.T) {
	client := &fakeDownloader{
		bodies:  map[string]string{"new.txt": "new"},
		hold:    map[string]bool{"old.txt": true},
		started: make(chan string, 2),
	}
	coord := NewDownloadCoordinator(client, NewQueue(nil), t.TempDir(), nil)

	oldErr := make(chan error, 1)
	go func() {
		_, err := coord.Download(context.Background(), "old.txt", 0)
		oldErr <- err
	}()
	if name := <-client.started; name != "old.txt" {
		t.Fatalf("unexpected first download %s", name)
	}

	res, err := coord.Download(context.Background(), "new.txt", 0)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-oldErr:
		if !errors.Is(err, api.ErrDownloadSuperseded) || !errors.Is(err, api.ErrCancelled) {
			t.Errorf("Expected superseded error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded download never returned")
	}

	got, ok := coord.Result()
	if !ok || got.Path != res.Path || got.FileName != "new.txt" {
		t.Errorf("Result should be the newer download, got %+v", got)
	}
}

func TestDownloadCancel(t *testing.T) {
	client := &fakeDownloader{hold: map[string]bool{"slow": true}, started: make(chan string, 1)}
	coord := NewDownloadCoordinator(client, NewQueue(nil), t.TempDir(), nil)

	errc := make(chan error, 1)
	go func() {
		_, err := coord.Download(context.Background(), "slow", 0)
		errc <- err
	}()
	<-client.started

	if !coord.Cancel() {
		t.Fatal("Cancel should stop the active download")
	}
	err := <-errc
	if !errors.Is(err, api.ErrCancelled) || errors.Is(err, api.ErrDownloadSuperseded) {
		t.Errorf("Expected plain cancellation, got %v", err)
	}
}
