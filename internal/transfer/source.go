package transfer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/easyfiletransfer/eft/internal/constants"
)

// Source is something that can be uploaded.
type Source interface {
	// Name is the file name sent to the server.
	Name() string
	// Open acquires the content for one read. The caller closes it when the
	// request finishes, successful or not. length is -1 if unknown.
	Open() (rc io.ReadCloser, length int64, err error)
}

// FileSource is a local file. The file is only opened for the duration of
// its upload request.
type FileSource struct {
	Path string
	// DisplayName overrides the base name of Path when set.
	DisplayName string
}

// NewFileSource returns a source for the file at path.
func NewFileSource(path string) FileSource {
	return FileSource{Path: path}
}

func (s FileSource) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return filepath.Base(s.Path)
}

func (s FileSource) Open() (io.ReadCloser, int64, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, -1, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, -1, err
	}
	if info.IsDir() {
		f.Close()
		return nil, -1, fmt.Errorf("%s is a directory", s.Path)
	}
	if !info.Mode().IsRegular() {
		// pipes and devices: stream without a length
		return f, -1, nil
	}
	return f, info.Size(), nil
}

// ImageSource is an encoded image held in memory, as handed over by a photo
// picker.
type ImageSource struct {
	data []byte
	name string
}

// NewImageSource wraps JPEG data. A suggested name without an extension gets
// ".jpg"; an empty one becomes "image.jpg".
func NewImageSource(data []byte, suggestedName string) ImageSource {
	return ImageSource{data: data, name: ImageFileName(suggestedName)}
}

// ImageFileName applies the naming rule of NewImageSource.
func ImageFileName(suggested string) string {
	name := strings.TrimSpace(suggested)
	if name == "" {
		return constants.DefaultImageName
	}
	if filepath.Ext(name) == "" {
		return name + ".jpg"
	}
	return name
}

func (s ImageSource) Name() string { return s.name }

func (s ImageSource) Open() (io.ReadCloser, int64, error) {
	return io.NopCloser(bytes.NewReader(s.data)), int64(len(s.data)), nil
}
