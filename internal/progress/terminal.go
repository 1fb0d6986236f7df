package progress

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// prepareTerminal returns whether w is a terminal, enabling ANSI escape
// sequences on Windows consoles when it is.
func prepareTerminal(w io.Writer) bool {
	if !IsTerminal(w) {
		return false
	}
	enableWindowsANSI(w.(*os.File))
	return true
}

// truncatePath truncates a file path to show only the last N components
// Example: truncatePath("/a/b/c/d/file.txt", 3) → "…/c/d/file.txt"
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	relevant := parts[len(parts)-maxComponents:]
	return "…/" + strings.Join(relevant, "/")
}

func mib(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
