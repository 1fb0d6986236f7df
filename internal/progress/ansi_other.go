//go:build !windows

package progress

import "os"

// enableWindowsANSI is a no-op: other terminals understand ANSI natively.
func enableWindowsANSI(*os.File) {}
