package stream

import (
	"errors"
	"io"
)

// ErrSinkClosed is returned by a Sink after Release.
var ErrSinkClosed = errors.New("stream: sink released")

// Flusher is implemented by destinations that buffer internally, such as
// *bufio.Writer. Sink.Flush forwards to it after writing its own buffer.
type Flusher interface {
	Flush() error
}

// Sink accumulates output bytes and writes them to the destination in large
// batches. The first write error is sticky.
type Sink struct {
	w     io.Writer
	buf   []byte
	limit int
	err   error
}

// NewSink returns a Sink writing to w that flushes once size bytes are pending.
func NewSink(w io.Writer, size int) *Sink {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if size < minBufferSize {
		size = minBufferSize
	}
	return &Sink{
		w:     w,
		buf:   getBuffer(size)[:0],
		limit: size,
	}
}

// Reset discards pending output and clears the sticky error, retargeting the
// Sink at w.
func (s *Sink) Reset(w io.Writer) {
	s.w = w
	s.buf = s.buf[:0]
	s.err = nil
}

// Buffer exposes the pending output for appending. Callers must hand the
// extended slice back with Commit.
func (s *Sink) Buffer() []byte {
	return s.buf
}

// Commit replaces the pending output with buf, which must extend the slice
// returned by Buffer, and writes it out if the capacity hint is exceeded.
func (s *Sink) Commit(buf []byte) error {
	s.buf = buf
	if len(s.buf) >= s.limit {
		return s.writePending()
	}
	return s.err
}

// Hold replaces the pending output with buf like Commit but never writes,
// so the bytes can still be withdrawn with Truncate.
func (s *Sink) Hold(buf []byte) error {
	s.buf = buf
	return s.err
}

// Truncate discards pending output past the first n bytes.
func (s *Sink) Truncate(n int) {
	if n < len(s.buf) {
		s.buf = s.buf[:n]
	}
}

// Pending returns the number of bytes not yet written to the destination.
func (s *Sink) Pending() int {
	return len(s.buf)
}

// Err returns the sticky write error.
func (s *Sink) Err() error {
	return s.err
}

// Flush writes all pending bytes and flushes the destination if it buffers.
func (s *Sink) Flush() error {
	if err := s.writePending(); err != nil {
		return err
	}
	if f, ok := s.w.(Flusher); ok {
		if err := f.Flush(); err != nil {
			s.err = err
			return err
		}
	}
	return nil
}

func (s *Sink) writePending() error {
	if s.err != nil {
		return s.err
	}
	if s.w == nil {
		s.err = ErrSinkClosed
		return s.err
	}
	pending := s.buf
	for len(pending) > 0 {
		n, err := s.w.Write(pending)
		if err == nil && n == 0 {
			err = io.ErrShortWrite
		}
		if err != nil {
			s.err = err
			return err
		}
		pending = pending[n:]
	}
	s.buf = s.buf[:0]
	return nil
}

// Release returns the buffer to the pool. Pending bytes are discarded.
func (s *Sink) Release() {
	if s.buf != nil {
		putBuffer(s.buf[:0:cap(s.buf)])
	}
	s.buf = nil
	s.w = nil
	if s.err == nil {
		s.err = ErrSinkClosed
	}
}
