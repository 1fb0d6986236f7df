package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/easyfiletransfer/eft/internal/progress"
	"github.com/easyfiletransfer/eft/internal/transfer"
	strutil "github.com/easyfiletransfer/eft/internal/util/strings"
	"github.com/easyfiletransfer/eft/internal/validation"
)

// stdinArg selects standard input as an in-memory upload source.
const stdinArg = "-"

// expandGlobPatterns expands glob patterns like *.zip, even when quoted.
// Returns a deduplicated list of file paths; "-" is passed through.
func expandGlobPatterns(patterns []string) ([]string, error) {
	var expandedFiles []string
	seenFiles := make(map[string]bool)

	add := func(p string) error {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", p, err)
		}
		if !seenFiles[absPath] {
			expandedFiles = append(expandedFiles, absPath)
			seenFiles[absPath] = true
		}
		return nil
	}

	for _, pattern := range patterns {
		if pattern == stdinArg {
			if !seenFiles[stdinArg] {
				expandedFiles = append(expandedFiles, stdinArg)
				seenFiles[stdinArg] = true
			}
			continue
		}

		if !strings.ContainsAny(pattern, "*?[]") {
			if err := add(pattern); err != nil {
				return nil, err
			}
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern: %s", pattern)
		}
		for _, match := range matches {
			if err := add(match); err != nil {
				return nil, err
			}
		}
	}

	return expandedFiles, nil
}

// buildSources turns expanded paths into upload sources. Standard input is
// read fully and sent as an image named after stdinName.
func buildSources(paths []string, stdin io.Reader, stdinName string) ([]transfer.Source, error) {
	sources := make([]transfer.Source, 0, len(paths))
	for _, p := range paths {
		if p == stdinArg {
			if err := validation.ValidateRemoteName(transfer.ImageFileName(stdinName)); err != nil {
				return nil, fmt.Errorf("invalid --name: %w", err)
			}
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("failed to read standard input: %w", err)
			}
			sources = append(sources, transfer.NewImageSource(data, stdinName))
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot upload %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("cannot upload %s: is a directory", p)
		}
		sources = append(sources, transfer.NewFileSource(p))
	}
	return sources, nil
}

// executeFileUpload uploads every source concurrently, drawing one bar per
// file, and returns an error if any upload failed.
func executeFileUpload(ctx context.Context, s *session, sources []transfer.Source, out io.Writer) error {
	log := GetLogger()

	ch := s.bus.SubscribeAll()
	defer s.bus.UnsubscribeAll(ch)

	ui := progress.NewUploadUI(out, len(sources))
	stop := make(chan struct{})
	rendered := make(chan struct{})
	go func() {
		progress.Consume(ch, stop, ui)
		close(rendered)
	}()

	results, err := s.engine.Upload(ctx, sources)
	close(stop)
	<-rendered
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Debug().Err(r.Err).Str("file", r.FileName).Msg("Upload failed")
		}
	}

	fmt.Fprintf(out, "\nUploaded %d of %s\n", len(results)-failed, strutil.CountNoun(int64(len(results)), "file"))
	if ctx.Err() != nil {
		return fmt.Errorf("upload cancelled: %w", ctx.Err())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}
