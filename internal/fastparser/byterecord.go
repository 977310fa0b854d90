package fastparser

// Span locates one field inside a ByteRecord's data.
type Span struct {
	Offset int
	Len    int
}

// ByteRecord holds the unescaped bytes of one record plus the span of every
// field. Unlike a [][]byte, the whole record shares one backing array, so a
// tokenizer can reuse it from record to record without allocating.
//
// Fields returned by FieldBytes alias the record and are only valid until the
// tokenizer produces the next record.
type ByteRecord struct {
	data  []byte
	spans []Span

	// Number is the 1-based record number.
	Number int
	// Line is the line on which the record started.
	Line int
	// Offset is the input byte offset of the record's first byte.
	Offset int64
}

// NewByteRecord creates a ByteRecord over data with the given field spans.
func NewByteRecord(data []byte, spans []Span) *ByteRecord {
	return &ByteRecord{data: data, spans: spans}
}

// NumFields returns the number of fields in the record.
func (r *ByteRecord) NumFields() int {
	return len(r.spans)
}

// FieldBytes returns the i-th field without copying. Returns nil if i is out
// of range.
func (r *ByteRecord) FieldBytes(i int) []byte {
	if i < 0 || i >= len(r.spans) {
		return nil
	}
	s := r.spans[i]
	return r.data[s.Offset : s.Offset+s.Len : s.Offset+s.Len]
}

// Field returns the i-th field as a string sharing the record's memory. The
// string must not be retained past the next tokenizer advance.
func (r *ByteRecord) Field(i int) string {
	return unsafeString(r.FieldBytes(i))
}

// Fields copies every field into a new []string.
func (r *ByteRecord) Fields() []string {
	return r.AppendFields(make([]string, 0, len(r.spans)))
}

// AppendFields appends copies of every field to dst. All strings share a
// single allocation.
func (r *ByteRecord) AppendFields(dst []string) []string {
	if len(r.spans) == 0 {
		return dst
	}
	backing := string(r.data)
	for _, s := range r.spans {
		dst = append(dst, backing[s.Offset:s.Offset+s.Len])
	}
	return dst
}

// Spans returns the field spans. The slice is owned by the record.
func (r *ByteRecord) Spans() []Span {
	return r.spans
}

// Clone returns a deep copy that stays valid after the tokenizer advances.
func (r *ByteRecord) Clone() *ByteRecord {
	c := &ByteRecord{
		data:   append([]byte(nil), r.data...),
		spans:  append([]Span(nil), r.spans...),
		Number: r.Number,
		Line:   r.Line,
		Offset: r.Offset,
	}
	return c
}

// reset empties the record while keeping its capacity.
func (r *ByteRecord) reset() {
	r.data = r.data[:0]
	r.spans = r.spans[:0]
}

// fieldLen returns the bytes accumulated for the field starting at start.
func (r *ByteRecord) fieldLen(start int) int {
	return len(r.data) - start
}

// appendSpan closes the field [start, end) of data.
func (r *ByteRecord) appendSpan(start, end int) {
	r.spans = append(r.spans, Span{Offset: start, Len: end - start})
}
