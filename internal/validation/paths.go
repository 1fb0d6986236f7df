// Package validation checks names and paths that cross the boundary between
// the server and the local filesystem.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateRemoteName checks a file name before it is sent to the server.
// The server stores files flat, so a name must be a single path component.
func ValidateRemoteName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("file name contains null byte: %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("file name cannot contain path separators: %s", name)
	}
	// "foo..bar.txt" is fine; only the bare dot names are rejected.
	if name == "." || name == ".." {
		return fmt.Errorf("file name cannot be %q", name)
	}
	return nil
}

// ValidatePathInDirectory checks that path, once cleaned and resolved
// against baseDir, stays inside baseDir.
//
//	ValidatePathInDirectory("../../etc/passwd", "/tmp/out") // error
//	ValidatePathInDirectory("report.pdf", "/tmp/out")       // ok
func ValidatePathInDirectory(path string, baseDir string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}

	base, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolved := filepath.Clean(path)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(base, resolved)
	}

	rel, err := filepath.Rel(base, resolved)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", path, baseDir)
	}
	return nil
}
