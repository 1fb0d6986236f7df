// Package buffers pools the copy buffers used while streaming transfer
// bodies, so concurrent uploads and downloads don't each allocate one.
package buffers

import (
	"sync"
	"sync/atomic"

	"github.com/easyfiletransfer/eft/internal/constants"
)

// Pool monitoring counters
var (
	copyAllocations int64 // new buffers created by the pool
	copyGets        int64 // total GetCopyBuffer calls
)

var copyPool = &sync.Pool{
	New: func() interface{} {
		atomic.AddInt64(&copyAllocations, 1)
		buf := make([]byte, constants.CopyBufferSize)
		return &buf
	},
}

// GetCopyBuffer retrieves a CopyBufferSize buffer from the pool.
// Return it with PutCopyBuffer when done.
//
// Usage:
//
//	buf := buffers.GetCopyBuffer()
//	defer buffers.PutCopyBuffer(buf)
//	n, err := io.CopyBuffer(dst, src, *buf)
func GetCopyBuffer() *[]byte {
	atomic.AddInt64(&copyGets, 1)
	return copyPool.Get().(*[]byte)
}

// PutCopyBuffer returns a buffer to the pool. Buffers of the wrong size and
// nil are dropped. The buffer is cleared so file contents don't linger.
func PutCopyBuffer(buf *[]byte) {
	if buf != nil && len(*buf) == constants.CopyBufferSize {
		clear(*buf)
		copyPool.Put(buf)
	}
}

// Stats is a snapshot of the pool counters.
type Stats struct {
	BufferSize  int
	Allocations int64
	Gets        int64
}

// GetStats returns the current pool counters.
func GetStats() Stats {
	return Stats{
		BufferSize:  constants.CopyBufferSize,
		Allocations: atomic.LoadInt64(&copyAllocations),
		Gets:        atomic.LoadInt64(&copyGets),
	}
}
