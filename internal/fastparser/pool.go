package fastparser

import (
	"sync"
	"unsafe"
)

// spanPool holds span slices for records. Most CSV records have a handful of
// fields, so the pooled capacity covers the common case without growing.
var spanPool = sync.Pool{
	New: func() interface{} {
		s := make([]Span, 0, 16)
		return &s
	},
}

// bufferPool holds record data buffers.
var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 512)
		return &b
	},
}

func getSpans() []Span {
	p := spanPool.Get().(*[]Span)
	return (*p)[:0]
}

func putSpans(spans []Span) {
	// Avoid pinning records with thousands of columns.
	const maxCapacity = 1024
	if cap(spans) > maxCapacity {
		return
	}
	spans = spans[:0]
	spanPool.Put(&spans)
}

func getBuffer() []byte {
	p := bufferPool.Get().(*[]byte)
	return (*p)[:0]
}

func putBuffer(buf []byte) {
	const maxCapacity = 64 * 1024
	if cap(buf) > maxCapacity {
		return
	}
	buf = buf[:0]
	bufferPool.Put(&buf)
}

// unsafeString converts b to a string without copying. The caller must not
// modify b while the string is alive.
func unsafeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
