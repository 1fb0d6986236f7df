package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/easyfiletransfer/eft/internal/constants"
	"github.com/easyfiletransfer/eft/internal/diskspace"
	"github.com/easyfiletransfer/eft/internal/pathutil"
	"github.com/easyfiletransfer/eft/internal/progress"
	"github.com/easyfiletransfer/eft/internal/transfer"
	"github.com/easyfiletransfer/eft/internal/util/buffers"
	"github.com/easyfiletransfer/eft/internal/validation"
)

// executeFileDownload stages name and, when outputDir is set, moves the
// staged file there. Returns the final path.
func executeFileDownload(ctx context.Context, s *session, name, outputDir string, overwrite bool, out io.Writer) (string, error) {
	log := GetLogger()

	ch := s.bus.SubscribeAll()
	defer s.bus.UnsubscribeAll(ch)

	bar := progress.NewDownloadBar(out)
	stop := make(chan struct{})
	rendered := make(chan struct{})
	go func() {
		progress.Consume(ch, stop, bar)
		close(rendered)
	}()

	result, err := s.engine.Download(ctx, name)
	close(stop)
	<-rendered
	if err != nil {
		return "", err
	}

	log.Debug().Str("file", result.FileName).Str("path", result.Path).Int64("bytes", result.Bytes).Msg("Download staged")

	if outputDir == "" {
		return result.Path, nil
	}
	return handOff(result, outputDir, overwrite)
}

// handOff moves a staged download into outputDir. Falls back to copying
// when the staging area is on another filesystem.
func handOff(result *transfer.DownloadResult, outputDir string, overwrite bool) (string, error) {
	outputDir, err := pathutil.ResolveAbsolutePath(outputDir)
	if err != nil {
		return "", fmt.Errorf("invalid output directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	dest := filepath.Join(outputDir, transfer.StagedName(result.FileName))
	if err := validation.ValidatePathInDirectory(dest, outputDir); err != nil {
		return "", err
	}
	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", dest)
		}
	}

	if err := os.Rename(result.Path, dest); err == nil {
		return dest, nil
	}

	if err := diskspace.CheckAvailableSpace(dest, result.Bytes, constants.DiskSpaceSafetyMargin); err != nil {
		return "", err
	}
	if err := copyFile(result.Path, dest); err != nil {
		return "", err
	}
	_ = os.Remove(result.Path)
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open staged file: %w", err)
	}
	defer in.Close()

	tmp := dest + ".part"
	outFile, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	buf := buffers.GetCopyBuffer()
	defer buffers.PutCopyBuffer(buf)
	if _, err := io.CopyBuffer(outFile, in, *buf); err != nil {
		outFile.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to copy staged file: %w", err)
	}
	if err := outFile.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return nil
}
