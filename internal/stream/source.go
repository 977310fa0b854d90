// Package stream implements the buffered byte source and sink adapters shared by
// the tokenizers and the formatter.
//
// A Source owns one pooled read buffer. It fills the tail of the buffer from an
// io.Reader and compacts unconsumed bytes to the front before refilling, so a
// long stream is processed with a bounded working set. A Sink owns a growable
// output buffer that is written to the destination only when its capacity hint
// is exceeded or when Flush is called.
package stream

import (
	"errors"
	"io"
)

// DefaultBufferSize is used when callers pass a non-positive size hint.
const DefaultBufferSize = 64 * 1024

// minBufferSize keeps tiny hints from degenerating into per-byte reads.
const minBufferSize = 16

// maxConsecutiveEmptyReads mirrors bufio: a reader that keeps returning (0, nil)
// is broken and must not spin forever.
const maxConsecutiveEmptyReads = 100

// ErrNoProgress is returned when the underlying reader repeatedly returns no
// data and no error.
var ErrNoProgress = errors.New("stream: multiple Read calls return no data or error")

// Source adapts an io.Reader into a window of buffered bytes.
//
// The window returned by Window is valid until the next call to Fill, which may
// move the unconsumed bytes to the front of the buffer.
type Source struct {
	r     io.Reader
	buf   []byte
	start int // first unconsumed byte
	end   int // one past the last buffered byte
	err   error

	// offset is the number of bytes consumed before buf[start].
	offset int64
}

// NewSource returns a Source reading from r with a pooled buffer of roughly
// size bytes.
func NewSource(r io.Reader, size int) *Source {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if size < minBufferSize {
		size = minBufferSize
	}
	return &Source{
		r:   r,
		buf: getBuffer(size),
	}
}

// NewBytesSource returns a Source over an in-memory slice. No copy is made and
// Fill always reports io.EOF.
func NewBytesSource(data []byte) *Source {
	return &Source{
		buf: data,
		end: len(data),
		err: io.EOF,
	}
}

// Window returns the buffered, unconsumed bytes.
func (s *Source) Window() []byte {
	return s.buf[s.start:s.end]
}

// Buffered returns the number of unconsumed bytes.
func (s *Source) Buffered() int {
	return s.end - s.start
}

// Advance consumes n bytes from the front of the window.
func (s *Source) Advance(n int) {
	if n < 0 || n > s.end-s.start {
		panic("stream: advance out of range")
	}
	s.start += n
	s.offset += int64(n)
}

// Offset returns the number of bytes consumed since the Source was created.
func (s *Source) Offset() int64 {
	return s.offset
}

// Err returns the sticky read error, io.EOF once the reader is exhausted.
func (s *Source) Err() error {
	return s.err
}

// Exhausted reports whether no buffered bytes remain and the reader has
// returned an error (normally io.EOF).
func (s *Source) Exhausted() bool {
	return s.start >= s.end && s.err != nil
}

// Fill reads more bytes into the window. It returns the number of bytes added.
// A non-nil error is returned only when no bytes were added; io.EOF signals the
// end of input.
func (s *Source) Fill() (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.makeRoom()

	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		n, err := s.r.Read(s.buf[s.end:])
		if n < 0 {
			n = 0
		}
		s.end += n
		if err != nil {
			s.err = err
		}
		if n > 0 {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
	}
	s.err = ErrNoProgress
	return 0, s.err
}

// Ensure fills until at least n bytes are buffered or the input ends. It
// reports whether n bytes are available.
func (s *Source) Ensure(n int) bool {
	for s.end-s.start < n {
		if _, err := s.Fill(); err != nil {
			return false
		}
	}
	return true
}

// makeRoom compacts the unconsumed bytes to the front of the buffer when they
// occupy less than half of it, and grows the buffer when no tail space can be
// recovered.
func (s *Source) makeRoom() {
	unconsumed := s.end - s.start
	if s.start > 0 && unconsumed < len(s.buf)/2 {
		s.compact()
	}
	if s.end < len(s.buf) {
		return
	}
	if s.start > 0 {
		s.compact()
		return
	}
	grown := make([]byte, 2*len(s.buf))
	copy(grown, s.buf[s.start:s.end])
	putBuffer(s.buf)
	s.buf = grown
	s.start = 0
	s.end = unconsumed
}

func (s *Source) compact() {
	n := copy(s.buf, s.buf[s.start:s.end])
	s.start = 0
	s.end = n
}

// Release returns the buffer to the pool. The Source must not be used after.
func (s *Source) Release() {
	if s.r != nil && s.buf != nil {
		putBuffer(s.buf)
	}
	s.buf = nil
	s.start, s.end = 0, 0
	if s.err == nil {
		s.err = io.ErrClosedPipe
	}
}
