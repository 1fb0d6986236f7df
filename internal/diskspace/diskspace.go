// Package diskspace checks the staging filesystem has room for a download.
package diskspace

import (
	"errors"
	"fmt"
	"path/filepath"
)

// InsufficientSpaceError indicates that there is not enough disk space available.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space for %s: need %.2f MB, have %.2f MB available",
		e.Path, requiredMB, availableMB)
}

// CheckAvailableSpace checks the filesystem that targetPath will be created on
// can hold requiredBytes times safetyMargin (1.1 for a 10% buffer).
// targetPath itself need not exist; its parent directory must.
//
// If the filesystem cannot be queried (network or virtual filesystems) the
// check passes and the write is left to fail on its own.
func CheckAvailableSpace(targetPath string, requiredBytes int64, safetyMargin float64) error {
	available, err := availableBytes(filepath.Dir(targetPath))
	if err != nil {
		return nil
	}
	return compare(targetPath, requiredBytes, safetyMargin, available)
}

func compare(targetPath string, requiredBytes int64, safetyMargin float64, available int64) error {
	if safetyMargin < 1 {
		safetyMargin = 1
	}
	requiredWithMargin := int64(float64(requiredBytes) * safetyMargin)
	if available < requiredWithMargin {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  requiredWithMargin,
			AvailableBytes: available,
		}
	}
	return nil
}

// GetAvailableSpace returns the available space in bytes for the filesystem
// containing the given path. Returns 0 if unable to determine.
func GetAvailableSpace(path string) int64 {
	available, err := availableBytes(filepath.Dir(path))
	if err != nil {
		return 0
	}
	return available
}

// IsInsufficientSpaceError checks if an error is an InsufficientSpaceError
func IsInsufficientSpaceError(err error) bool {
	var spaceErr *InsufficientSpaceError
	return errors.As(err, &spaceErr)
}
