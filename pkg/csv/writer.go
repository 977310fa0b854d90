package csv

import (
	"context"
	"io"

	"github.com/go-logr/logr"

	"github.com/shapestone/shape-csv/v2/internal/formatter"
	"github.com/shapestone/shape-csv/v2/internal/stream"
)

// Writer writes records as delimited text.
//
// Output is buffered. It reaches the underlying io.Writer once the buffer
// size hint is exceeded or when Flush is called. Write errors are sticky.
// A Writer is not safe for concurrent use.
type Writer struct {
	sink    *stream.Sink
	f       *formatter.Formatter
	opts    WriterOptions
	log     logr.Logger
	scratch []byte
	closed  bool
}

// NewWriter returns a Writer writing to w.
//
// Example:
//
//	opts := csv.DefaultWriterOptions()
//	opts.Quote = csv.QuoteAlways
//	w, err := csv.NewWriter(os.Stdout, opts)
func NewWriter(w io.Writer, opts WriterOptions) (*Writer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	sink := stream.NewSink(w, opts.BufferSize)
	return &Writer{
		sink: sink,
		f:    formatter.New(sink, opts.Dialect.config()),
		opts: opts,
		log:  loggerOrDiscard(opts.Logger),
	}, nil
}

// Write writes one record using the writer's quote policy.
func (w *Writer) Write(record []string) error {
	if w.closed {
		return ErrClosed
	}
	for _, field := range record {
		if err := w.f.WriteString(field, w.opts.Quote); err != nil {
			w.f.AbortRecord()
			return err
		}
	}
	return w.f.EndRecord()
}

// WriteBytes writes one record given as byte slices.
func (w *Writer) WriteBytes(record [][]byte) error {
	if w.closed {
		return ErrClosed
	}
	for _, field := range record {
		if err := w.f.WriteField(field, w.opts.Quote); err != nil {
			w.f.AbortRecord()
			return err
		}
	}
	return w.f.EndRecord()
}

// WriteContext is Write with cancellation checked before the record is
// written.
func (w *Writer) WriteContext(ctx context.Context, record []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.Write(record)
}

// WriteField appends one field to the current record. EndRecord terminates
// the record.
func (w *Writer) WriteField(value []byte) error {
	return w.WriteFieldPolicy(value, w.opts.Quote)
}

// WriteFieldPolicy appends one field using policy instead of the writer's
// default.
func (w *Writer) WriteFieldPolicy(value []byte, policy QuotePolicy) error {
	if w.closed {
		return ErrClosed
	}
	return w.f.WriteField(value, policy)
}

// WriteValue formats v with conv and appends it as one field. A conversion
// failure leaves the current record as it was; call AbortRecord to drop it.
func (w *Writer) WriteValue(v any, conv Converter) error {
	if w.closed {
		return ErrClosed
	}
	if n := conv.MaxLen(v); n > cap(w.scratch) {
		w.scratch = make([]byte, 0, n)
	}
	buf, err := conv.Append(w.scratch[:0], v, w.opts.Dialect)
	if err != nil {
		return &ConversionError{Tag: converterTag(conv), Err: err}
	}
	w.scratch = buf[:0]
	return w.f.WriteField(buf, w.opts.Quote)
}

// EndRecord terminates the current record.
func (w *Writer) EndRecord() error {
	if w.closed {
		return ErrClosed
	}
	return w.f.EndRecord()
}

// AbortRecord discards the fields written since the last EndRecord. Fields of
// the current record are held back until EndRecord, so nothing reaches the
// underlying io.Writer unless Flush was called in between.
func (w *Writer) AbortRecord() {
	if !w.closed {
		w.f.AbortRecord()
	}
}

// Flush writes buffered output to the underlying io.Writer and flushes it
// when it buffers too.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	return w.f.Flush()
}

// Error reports any error that has occurred during a previous write or flush.
func (w *Writer) Error() error {
	return w.sink.Err()
}

// WriteAll writes records and flushes.
func (w *Writer) WriteAll(records [][]string) error {
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Close flushes pending output and releases the buffer. It does not close
// the underlying io.Writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.f.Flush()
	if err != nil {
		w.log.V(1).Info("flush on close failed", "error", err.Error())
	}
	w.sink.Release()
	w.closed = true
	return err
}
