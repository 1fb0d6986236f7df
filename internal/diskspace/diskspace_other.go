//go:build !unix && !windows

package diskspace

import (
	"errors"
	"runtime"
)

func availableBytes(string) (int64, error) {
	return 0, errors.New("free space query not supported on " + runtime.GOOS)
}
