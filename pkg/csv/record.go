package csv

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// RecordDecoder maps rows to values of T. Implementations are bound to the
// column layout once, before the first Decode.
type RecordDecoder[T any] interface {
	// Bind resolves the column layout. header is nil when the input has no
	// header row, in which case columns are matched by position.
	Bind(header []string, d Dialect) error
	// Decode fills dst from row. Field bytes must not be retained.
	Decode(row *Row, dst *T) error
}

// RecordEncoder maps values of T to records.
type RecordEncoder[T any] interface {
	// Header returns the column names.
	Header() []string
	// Encode writes v as one complete record, including EndRecord.
	Encode(w *Writer, v *T) error
}

// ErrUnknownColumn is returned by Bind when a mapped column is missing from
// the header.
var ErrUnknownColumn = errors.New("column not in header")

type column[T any] struct {
	name  string
	tag   string
	conv  Converter
	get   func(*T) any
	set   func(*T, any) error
	index int
}

// Mapping is a RecordDecoder and RecordEncoder built from an explicit list of
// columns. Build it once and share it: Bind stores the layout, so a bound
// Mapping must not be used by two decoders at the same time.
//
// Example:
//
//	m := csv.NewMapping[Person](nil)
//	csv.MapField(m, "name", "text", func(p *Person) *string { return &p.Name })
//	csv.MapField(m, "age", "int", func(p *Person) *int64 { return &p.Age })
type Mapping[T any] struct {
	reg     *Registry
	cols    []column[T]
	err     error
	dialect Dialect
	width   int // fields needed by the bound layout
}

// NewMapping returns an empty Mapping resolving type tags in reg. A nil reg
// selects the default registry.
func NewMapping[T any](reg *Registry) *Mapping[T] {
	if reg == nil {
		reg = defaultRegistry
	}
	return &Mapping[T]{reg: reg}
}

// Column adds a column converted by the converter registered under tag. get
// reads the value for encoding and set stores a parsed value; either may be
// nil for a decode-only or encode-only mapping. An unknown tag is reported by
// Err and Bind.
func (m *Mapping[T]) Column(name, tag string, get func(*T) any, set func(*T, any) error) *Mapping[T] {
	conv, ok := m.reg.Lookup(tag)
	if !ok {
		if m.err == nil {
			m.err = fmt.Errorf("column %q: unknown converter %q", name, tag)
		}
		return m
	}
	return m.column(name, tag, conv, get, set)
}

// ColumnConverter adds a column converted by conv.
func (m *Mapping[T]) ColumnConverter(name string, conv Converter, get func(*T) any, set func(*T, any) error) *Mapping[T] {
	return m.column(name, converterTag(conv), conv, get, set)
}

func (m *Mapping[T]) column(name, tag string, conv Converter, get func(*T) any, set func(*T, any) error) *Mapping[T] {
	m.cols = append(m.cols, column[T]{
		name:  name,
		tag:   tag,
		conv:  conv,
		get:   get,
		set:   set,
		index: len(m.cols),
	})
	return m
}

// MapField adds a column bound to the field of T that field points at. The
// parsed value must have type V; a nil value stores the zero V.
func MapField[T, V any](m *Mapping[T], name, tag string, field func(*T) *V) *Mapping[T] {
	return m.Column(name, tag,
		func(t *T) any { return *field(t) },
		func(t *T, v any) error {
			if v == nil {
				var zero V
				*field(t) = zero
				return nil
			}
			x, ok := v.(V)
			if !ok {
				return fmt.Errorf("cannot assign %T to %T", v, *new(V))
			}
			*field(t) = x
			return nil
		})
}

// Err returns the first error recorded while building the mapping.
func (m *Mapping[T]) Err() error {
	return m.err
}

// Bind implements RecordDecoder.
func (m *Mapping[T]) Bind(header []string, d Dialect) error {
	if m.err != nil {
		return m.err
	}
	m.dialect = d
	m.width = 0
	for i := range m.cols {
		c := &m.cols[i]
		if header == nil {
			c.index = i
		} else {
			c.index = indexOf(header, c.name)
			if c.index < 0 {
				return fmt.Errorf("%w: %q", ErrUnknownColumn, c.name)
			}
		}
		if c.index+1 > m.width {
			m.width = c.index + 1
		}
	}
	return nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// Decode implements RecordDecoder.
func (m *Mapping[T]) Decode(row *Row, dst *T) error {
	if row.Len() < m.width {
		return &FieldCountError{Expected: m.width, Actual: row.Len()}
	}
	for _, c := range m.cols {
		if c.set == nil {
			continue
		}
		v, err := c.conv.Parse(row.Field(c.index), m.dialect)
		if err == nil {
			err = c.set(dst, v)
		}
		if err != nil {
			return &ConversionError{Field: c.index, Column: c.name, Tag: c.tag, Err: err}
		}
	}
	return nil
}

// Header implements RecordEncoder.
func (m *Mapping[T]) Header() []string {
	names := make([]string, len(m.cols))
	for i, c := range m.cols {
		names[i] = c.name
	}
	return names
}

// Encode implements RecordEncoder. Columns are written in the order they were
// added. On a conversion failure the partial record is discarded.
func (m *Mapping[T]) Encode(w *Writer, v *T) error {
	if m.err != nil {
		return m.err
	}
	for i, c := range m.cols {
		var val any
		if c.get != nil {
			val = c.get(v)
		}
		if err := w.WriteValue(val, c.conv); err != nil {
			w.AbortRecord()
			var ce *ConversionError
			if errors.As(err, &ce) {
				ce.Field, ce.Column, ce.Tag = i, c.name, c.tag
			}
			return err
		}
	}
	return w.EndRecord()
}

// DecoderOptions configures a Decoder.
type DecoderOptions struct {
	ReaderOptions

	// HasHeader reads the first record as column names.
	// Default: true
	HasHeader bool

	// DetectColumnCountChanges reports records whose width differs from the
	// first record as a *FieldCountError.
	DetectColumnCountChanges bool
}

// DefaultDecoderOptions returns the default decoder configuration.
func DefaultDecoderOptions() DecoderOptions {
	return DecoderOptions{
		ReaderOptions: DefaultReaderOptions(),
		HasHeader:     true,
	}
}

// Decoder reads typed records through a RecordDecoder. Decoding errors are
// handled by the reader's error policy like malformed input.
type Decoder[T any] struct {
	r      *Reader
	dec    RecordDecoder[T]
	opts   DecoderOptions
	bound  bool
	header []string
	width  int
	err    error
}

// NewDecoder returns a Decoder reading from src.
func NewDecoder[T any](src io.Reader, dec RecordDecoder[T], opts DecoderOptions) (*Decoder[T], error) {
	opts.Features.FieldHooks = true
	r, err := NewReader(src, opts.ReaderOptions)
	if err != nil {
		return nil, err
	}
	return &Decoder[T]{r: r, dec: dec, opts: opts}, nil
}

// Decode reads the next record into dst. It returns io.EOF at the end of
// input.
func (d *Decoder[T]) Decode(dst *T) error {
	if d.err != nil {
		return d.err
	}
	if !d.bound {
		if err := d.bind(); err != nil {
			d.err = err
			return err
		}
	}
	for {
		row, err := d.r.Read()
		if err != nil {
			return err
		}
		err = d.decode(row, dst)
		if err == nil {
			return nil
		}
		re := &RecordError{
			Record: row.Number(),
			Field:  errorField(err),
			Line:   row.Line(),
			Raw:    row.raw(d.r.opts.Dialect.Delimiter),
			Err:    err,
		}
		if err := d.r.reject(re); err != nil {
			return err
		}
	}
}

func (d *Decoder[T]) decode(row *Row, dst *T) error {
	if d.opts.DetectColumnCountChanges {
		if d.width == 0 {
			d.width = row.Len()
		} else if row.Len() != d.width {
			return &FieldCountError{Expected: d.width, Actual: row.Len()}
		}
	}
	return d.dec.Decode(row, dst)
}

func errorField(err error) int {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Field
	}
	var fe *FieldCountError
	if errors.As(err, &fe) {
		return min(fe.Expected, fe.Actual)
	}
	return 0
}

func (d *Decoder[T]) bind() error {
	d.bound = true
	if !d.opts.HasHeader {
		return d.dec.Bind(nil, d.r.opts.Dialect)
	}
	row, err := d.r.Read()
	if err != nil {
		return err
	}
	d.header = row.Strings()
	if d.opts.DetectColumnCountChanges {
		d.width = len(d.header)
	}
	return d.dec.Bind(d.header, d.r.opts.Dialect)
}

// DecodeContext is Decode with cancellation checked before the record is
// read.
func (d *Decoder[T]) DecodeContext(ctx context.Context, dst *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.Decode(dst)
}

// DecodeAll decodes the remaining records.
func (d *Decoder[T]) DecodeAll() ([]T, error) {
	var out []T
	for {
		var v T
		err := d.Decode(&v)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

// Header returns the header row, or nil when HasHeader is false.
func (d *Decoder[T]) Header() []string {
	return d.header
}

// Errors returns the record errors held by PolicyCollect.
func (d *Decoder[T]) Errors() []*RecordError {
	return d.r.Errors()
}

// Reader returns the underlying Reader.
func (d *Decoder[T]) Reader() *Reader {
	return d.r
}

// Close releases the decoder's buffers.
func (d *Decoder[T]) Close() error {
	return d.r.Close()
}

// EncoderOptions configures an Encoder.
type EncoderOptions struct {
	WriterOptions

	// WriteHeader writes the encoder's header before the first record.
	// Default: true
	WriteHeader bool
}

// DefaultEncoderOptions returns the default encoder configuration.
func DefaultEncoderOptions() EncoderOptions {
	return EncoderOptions{
		WriterOptions: DefaultWriterOptions(),
		WriteHeader:   true,
	}
}

// Encoder writes typed records through a RecordEncoder.
type Encoder[T any] struct {
	w           *Writer
	enc         RecordEncoder[T]
	writeHeader bool
}

// NewEncoder returns an Encoder writing to dst.
func NewEncoder[T any](dst io.Writer, enc RecordEncoder[T], opts EncoderOptions) (*Encoder[T], error) {
	w, err := NewWriter(dst, opts.WriterOptions)
	if err != nil {
		return nil, err
	}
	return &Encoder[T]{w: w, enc: enc, writeHeader: opts.WriteHeader}, nil
}

// Encode writes v as one record.
func (e *Encoder[T]) Encode(v *T) error {
	if e.writeHeader {
		e.writeHeader = false
		if err := e.w.Write(e.enc.Header()); err != nil {
			return err
		}
	}
	if err := e.enc.Encode(e.w, v); err != nil {
		e.w.AbortRecord()
		return err
	}
	return nil
}

// EncodeContext is Encode with cancellation checked before the record is
// written.
func (e *Encoder[T]) EncodeContext(ctx context.Context, v *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.Encode(v)
}

// EncodeAll writes every value and flushes.
func (e *Encoder[T]) EncodeAll(values []T) error {
	for i := range values {
		if err := e.Encode(&values[i]); err != nil {
			return err
		}
	}
	return e.Flush()
}

// Flush writes buffered output.
func (e *Encoder[T]) Flush() error {
	return e.w.Flush()
}

// Close flushes and releases the encoder's buffer.
func (e *Encoder[T]) Close() error {
	return e.w.Close()
}
