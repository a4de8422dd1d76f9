package util

import "sync"

// DefaultBufSize is the pooled read-buffer size (4 KiB).  Receive loops
// whose message capacity fits inside it borrow from the pool instead of
// allocating per connection.
const DefaultBufSize = 4 * 1024

// BufPool provides reusable byte buffers for the per-connection receive
// loops, reducing GC pressure when many clients stream concurrently.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
