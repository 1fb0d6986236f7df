package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyfiletransfer/eft/internal/config"
	"github.com/easyfiletransfer/eft/internal/models"
)

// runCLI executes the full command tree with args and returns its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	AddCommands(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// fileServer is a minimal stand-in for the file server.
type fileServer struct {
	mu       sync.Mutex
	names    []string
	contents map[string][]byte
}

func (s *fileServer) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.Method == nethttp.MethodGet && r.URL.Query().Get("download") != "":
		data, ok := s.contents[r.URL.Query().Get("download")]
		if !ok {
			w.WriteHeader(nethttp.StatusNotFound)
			return
		}
		_, _ = w.Write(data)

	case r.Method == nethttp.MethodGet:
		out := []map[string]string{}
		for _, n := range s.names {
			out = append(out, map[string]string{
				"name":         n,
				"size":         fmt.Sprintf("%d", len(s.contents[n])/1024),
				"lastModified": "2024-05-01 10:00",
			})
		}
		_ = json.NewEncoder(w).Encode(out)

	case strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"):
		_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		part, err := multipart.NewReader(r.Body, params["boundary"]).NextPart()
		if err != nil {
			w.WriteHeader(nethttp.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(part)
		if _, ok := s.contents[part.FileName()]; !ok {
			s.names = append(s.names, part.FileName())
		}
		s.contents[part.FileName()] = data

	default:
		_ = r.ParseForm()
		if name := r.PostForm.Get("delete"); name != "" {
			for i, n := range s.names {
				if n == name {
					s.names = append(s.names[:i], s.names[i+1:]...)
					break
				}
			}
			delete(s.contents, name)
			_, _ = io.WriteString(w, `{"status":"success"}`)
			return
		}
		if r.PostForm.Get("username") == "alice" && r.PostForm.Get("password") == "secret" {
			return
		}
		w.WriteHeader(nethttp.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Wrong password."}`)
	}
}

// setupServer starts a fake server and writes a settings file pointing at
// it. Returns the args every command needs.
func setupServer(t *testing.T, files map[string]string) (*fileServer, []string, string) {
	t.Helper()
	t.Setenv(passwordEnv, "")

	fs := &fileServer{contents: map[string][]byte{}}
	for name, body := range files {
		fs.names = append(fs.names, name)
		fs.contents[name] = []byte(body)
	}
	server := httptest.NewServer(fs)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	staging := filepath.Join(dir, "staging")
	path := filepath.Join(dir, "settings")
	store := config.NewStore(path, config.Settings{
		Credentials: config.Credentials{ServerURL: server.URL, Username: "alice"},
		StagingDir:  staging,
	})
	require.NoError(t, store.Save())

	return fs, []string{"--config", path, "--password", "secret"}, staging
}

func TestUploadShortcut(t *testing.T) {
	cmd := newUploadShortcut()
	if cmd.Use != "upload <file> [file...]" {
		t.Errorf("Expected Use='upload <file> [file...]', got '%s'", cmd.Use)
	}
	if cmd.RunE == nil {
		t.Error("RunE function is nil")
	}
	if cmd.Flags().Lookup("name") == nil {
		t.Error("--name flag not found")
	}
}

func TestDownloadShortcut(t *testing.T) {
	cmd := newDownloadShortcut()
	if cmd.Use != "download <name>" {
		t.Errorf("Expected Use='download <name>', got '%s'", cmd.Use)
	}
	for _, flag := range []string{"out", "force"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("--%s flag not found", flag)
		}
	}
}

func TestLoginPrintsCatalog(t *testing.T) {
	_, args, _ := setupServer(t, map[string]string{"notes.txt": strings.Repeat("n", 4096)})

	out, err := runCLI(t, append(args, "login")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Logged in")
	assert.Contains(t, out, "not https")
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "4 KB")
}

func TestLoginWrongPassword(t *testing.T) {
	_, args, _ := setupServer(t, nil)
	args[len(args)-1] = "wrong"

	_, err := runCLI(t, append(args, "login")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Wrong password.")
}

func TestListJSONSorted(t *testing.T) {
	_, args, _ := setupServer(t, map[string]string{
		"b.bin": strings.Repeat("b", 1024),
		"a.bin": strings.Repeat("a", 3*1024),
	})

	out, err := runCLI(t, append(args, "ls", "--json", "--sort", "name")...)
	require.NoError(t, err)

	var files []models.FileRecord
	require.NoError(t, json.Unmarshal([]byte(out), &files), out)
	require.Len(t, files, 2)
	assert.Equal(t, "a.bin", files[0].Name)
	assert.Equal(t, "3", files[0].Size)
	assert.Equal(t, "b.bin", files[1].Name)
}

func TestListEmptyJSON(t *testing.T) {
	_, args, _ := setupServer(t, nil)

	out, err := runCLI(t, append(args, "ls", "--json")...)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestListInvalidSort(t *testing.T) {
	_, args, _ := setupServer(t, nil)

	_, err := runCLI(t, append(args, "ls", "--sort", "color")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --sort")
}

func TestUploadThenDownload(t *testing.T) {
	fs, args, staging := setupServer(t, nil)

	local := filepath.Join(t.TempDir(), "report.txt")
	body := strings.Repeat("report line\n", 5000)
	require.NoError(t, os.WriteFile(local, []byte(body), 0644))

	out, err := runCLI(t, append(args, "upload", local)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Uploaded 1 of 1 file")
	assert.Contains(t, out, "report.txt")

	fs.mu.Lock()
	assert.Equal(t, body, string(fs.contents["report.txt"]))
	fs.mu.Unlock()

	out, err = runCLI(t, append(args, "download", "report.txt")...)
	require.NoError(t, err, out)
	staged := filepath.Join(staging, "report.txt")
	assert.Contains(t, out, "Saved to "+staged)
	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))

	outDir := t.TempDir()
	out, err = runCLI(t, append(args, "download", "report.txt", "--out", outDir)...)
	require.NoError(t, err, out)
	data, err = os.ReadFile(filepath.Join(outDir, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, body, string(data))

	_, err = runCLI(t, append(args, "download", "report.txt", "--out", outDir)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestUploadFromStdin(t *testing.T) {
	fs, args, _ := setupServer(t, nil)

	root := NewRootCmd()
	AddCommands(root)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader("\xff\xd8jpeg-bytes"))
	root.SetArgs(append(args, "upload", "-", "--name", "holiday"))
	require.NoError(t, root.Execute(), out.String())

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, "\xff\xd8jpeg-bytes", string(fs.contents["holiday.jpg"]))
}

func TestUploadMissingFile(t *testing.T) {
	_, args, _ := setupServer(t, nil)

	_, err := runCLI(t, append(args, "upload", filepath.Join(t.TempDir(), "nope.txt"))...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.txt")
}

func TestDeleteRefreshesList(t *testing.T) {
	_, args, _ := setupServer(t, map[string]string{"old.log": "x"})

	out, err := runCLI(t, append(args, "rm", "old.log")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ Deleted old.log")
	assert.Contains(t, out, "No files found")
}

func TestExpandGlobPatterns(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a.dat", "b.dat", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0644))
	}

	got, err := expandGlobPatterns([]string{
		filepath.Join(dir, "*.dat"),
		filepath.Join(dir, "a.dat"),
		"-",
		"-",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.dat"), filepath.Join(dir, "b.dat"), "-"}, got)

	_, err = expandGlobPatterns([]string{filepath.Join(dir, "*.zip")})
	assert.Error(t, err)
}

func TestBuildSourcesRejectsDirectory(t *testing.T) {
	_, err := buildSources([]string{t.TempDir()}, strings.NewReader(""), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestBuildSourcesRejectsBadName(t *testing.T) {
	_, err := buildSources([]string{"-"}, strings.NewReader("img"), "../escape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --name")
}

func TestListFilters(t *testing.T) {
	_, args, _ := setupServer(t, map[string]string{
		"run1.dat":  "a",
		"run2.dat":  "b",
		"debug.dat": "c",
		"notes.txt": "d",
	})

	out, err := runCLI(t, append(args, "ls", "--include", "*.dat", "--exclude", "debug*")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Filtered: 2 of 4 files match")
	assert.Contains(t, out, "run1.dat")
	assert.Contains(t, out, "run2.dat")
	assert.NotContains(t, out, "debug.dat")
	assert.NotContains(t, out, "notes.txt")
}

func TestBuildSourcesStdinNaming(t *testing.T) {
	sources, err := buildSources([]string{"-"}, strings.NewReader("img"), "")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "image.jpg", sources[0].Name())
}
