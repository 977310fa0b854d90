package stream

import "sync"

// bufferPool holds read and write buffers of DefaultBufferSize so that
// short-lived readers and writers do not each allocate a fresh 64 KiB slab.
var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, DefaultBufferSize)
		return &b
	},
}

// getBuffer returns a buffer of exactly size bytes, taken from the pool when
// the size class matches.
func getBuffer(size int) []byte {
	if size != DefaultBufferSize {
		return make([]byte, size)
	}
	p := bufferPool.Get().(*[]byte)
	return (*p)[:size]
}

// putBuffer returns a buffer to the pool. Buffers that grew past or never
// reached the pooled size class are dropped.
func putBuffer(buf []byte) {
	if cap(buf) != DefaultBufferSize {
		return
	}
	buf = buf[:cap(buf)]
	bufferPool.Put(&buf)
}
