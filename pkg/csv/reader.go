package csv

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/go-logr/logr"

	"github.com/shapestone/shape-csv/v2/internal/fastparser"
	"github.com/shapestone/shape-csv/v2/internal/parser"
	"github.com/shapestone/shape-csv/v2/internal/stream"
)

// Reader reads records from a delimited byte stream.
//
// A Reader is not safe for concurrent use. The Row returned by Read and the
// field bytes it exposes are only valid until the next call to Read.
type Reader struct {
	tok    fastparser.Tokenizer
	opts   ReaderOptions
	tier   Tier
	policy policyEngine
	log    logr.Logger

	row Row
	err error // sticky: io.EOF, a read failure or a policy abort
}

// NewReader returns a Reader reading from r.
//
// Example:
//
//	opts := csv.DefaultReaderOptions()
//	opts.Dialect.Delimiter = "\t"
//	r, err := csv.NewReader(file, opts)
func NewReader(r io.Reader, opts ReaderOptions) (*Reader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	rd := newReader(opts)
	cfg := opts.Dialect.config()
	switch rd.tier {
	case TierGeneral:
		rd.tok = parser.New(stream.NewSource(r, opts.BufferSize), cfg)
	case TierFast:
		rd.tok = fastparser.New(stream.NewSource(r, opts.BufferSize), cfg, fastparser.ModeFast)
	default:
		rd.tok = fastparser.New(stream.NewSource(r, opts.BufferSize), cfg, fastparser.ModeFlexible)
	}
	return rd, nil
}

// NewReaderBytes returns a Reader over an in-memory document. No copy of data
// is made.
func NewReaderBytes(data []byte, opts ReaderOptions) (*Reader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	rd := newReader(opts)
	cfg := opts.Dialect.config()
	switch rd.tier {
	case TierGeneral:
		rd.tok = parser.New(stream.NewBytesSource(data), cfg)
	case TierFast:
		rd.tok = fastparser.New(stream.NewBytesSource(data), cfg, fastparser.ModeFast)
	default:
		rd.tok = fastparser.New(stream.NewBytesSource(data), cfg, fastparser.ModeFlexible)
	}
	return rd, nil
}

func newReader(opts ReaderOptions) *Reader {
	log := loggerOrDiscard(opts.Logger)
	tier := opts.Tier()
	log.V(2).Info("selected tier", "tier", tier.String(), "delimiter", opts.Dialect.Delimiter)
	return &Reader{
		opts:   opts,
		tier:   tier,
		policy: policyEngine{policy: opts.ErrorPolicy, log: log},
		log:    log,
	}
}

// Read returns the next record. It returns io.EOF at the end of input.
//
// Malformed records are handled by the error policy: under PolicyThrow the
// *RecordError is returned and the reader halts, under PolicyCollect and
// PolicySkip the record is dropped and reading resumes at the next line.
// Read failures of the underlying io.Reader are always returned as is.
func (r *Reader) Read() (*Row, error) {
	if r.err != nil {
		return nil, r.err
	}
	for {
		rec, err := r.tok.NextRecord()
		if err == nil {
			r.row = Row{rec: rec}
			return &r.row, nil
		}
		var se *fastparser.SyntaxError
		if !errors.As(err, &se) {
			r.err = err
			return nil, err
		}
		if err := r.reject(recordError(se, r.opts.Dialect.MaxFieldSize)); err != nil {
			return nil, err
		}
		r.tok.Recover()
	}
}

// ReadContext is Read with cancellation checked before the record is read.
func (r *Reader) ReadContext(ctx context.Context) (*Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Read()
}

// reject passes a record error to the policy. A non-nil result halts the
// reader.
func (r *Reader) reject(re *RecordError) error {
	if err := r.policy.handle(re); err != nil {
		r.err = err
		return err
	}
	return nil
}

// ReadAll reads the remaining records. A successful call returns err == nil,
// not io.EOF.
func (r *Reader) ReadAll() ([][]string, error) {
	var records [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, row.Strings())
	}
}

// Errors returns the record errors held by PolicyCollect.
func (r *Reader) Errors() []*RecordError {
	return r.policy.errs
}

// Line returns the 1-based line of the next unread byte.
func (r *Reader) Line() int {
	return r.tok.Cursor().Line
}

// InputOffset returns the number of input bytes consumed so far.
func (r *Reader) InputOffset() int64 {
	return r.tok.Cursor().Offset
}

// Tier returns the tier serving this reader.
func (r *Reader) Tier() Tier {
	return r.tier
}

// Dialect returns the reader's dialect.
func (r *Reader) Dialect() Dialect {
	return r.opts.Dialect
}

// Close releases the reader's buffers. It does not close the underlying
// io.Reader.
func (r *Reader) Close() error {
	if r.err == ErrClosed {
		return nil
	}
	r.tok.Close()
	r.row = Row{}
	r.err = ErrClosed
	return nil
}

// Row is one record returned by Reader.Read. Its field bytes point into the
// reader's buffer and are overwritten by the next Read.
type Row struct {
	rec *fastparser.ByteRecord
}

// Len returns the number of fields.
func (r *Row) Len() int {
	return r.rec.NumFields()
}

// Field returns field i without copying. The slice is only valid until the
// next Read.
func (r *Row) Field(i int) []byte {
	return r.rec.FieldBytes(i)
}

// FieldString returns a copy of field i.
func (r *Row) FieldString(i int) string {
	return string(r.rec.FieldBytes(i))
}

// Strings returns copies of all fields.
func (r *Row) Strings() []string {
	return r.AppendStrings(nil)
}

// AppendStrings appends copies of all fields to dst.
func (r *Row) AppendStrings(dst []string) []string {
	return r.rec.AppendFields(dst)
}

// Number returns the 1-based record number. Dropped malformed records are
// counted.
func (r *Row) Number() int {
	return r.rec.Number
}

// Line returns the 1-based line where the record starts.
func (r *Row) Line() int {
	return r.rec.Line
}

// Offset returns the input byte offset where the record starts.
func (r *Row) Offset() int64 {
	return r.rec.Offset
}

// raw returns the record's fields joined by delimiter, truncated for
// diagnostics.
func (r *Row) raw(delimiter string) []byte {
	var buf bytes.Buffer
	for i := 0; i < r.rec.NumFields() && buf.Len() < MaxDiagnosticBytes; i++ {
		if i > 0 {
			buf.WriteString(delimiter)
		}
		buf.Write(r.rec.FieldBytes(i))
	}
	return diagnostic(buf.Bytes())
}
