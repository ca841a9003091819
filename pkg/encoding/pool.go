package encoding

import (
	"bytes"
	"sync"
)

// bufferPool pools bytes.Buffer for wire document construction.
// Every gateway call builds at least one XML body; pooling keeps those
// short-lived buffers off the allocator.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// GetBuffer retrieves an empty bytes.Buffer from the pool
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a bytes.Buffer to the pool.
// Buffers that grew past 64KB are dropped so one outlier voucher or error
// page does not pin memory for the life of the process.
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 64*1024 {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
