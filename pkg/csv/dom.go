// Package csv provides a user-friendly DOM API for CSV manipulation.
//
// The DOM API handles records of any shape: each record is an ordered list of
// fields, addressable by position or by header name, without a typed mapping.
//
// # Document Type
//
// Document represents a CSV file with optional headers and data records:
//
//	doc := csv.NewDocument().
//		SetHeaders([]string{"name", "age"}).
//		AddRecord([]string{"Alice", "30"}).
//		AddRecord([]string{"Bob", "25"})
//
// # Record Type
//
// Record represents a single row with ordered name/value access:
//
//	record, _ := doc.GetRecord(0)
//	name, _ := record.Get(0)           // Get by index
//	age, _ := record.GetByName("age")  // Get by header name
//	for _, p := range record.Pairs() { // Ordered name/value pairs
//	    fmt.Println(p.Name, p.Value)
//	}
//
// # Round-trip Support
//
// Parse CSV and render back to CSV:
//
//	doc, _ := csv.ParseDocument("name,age\nAlice,30")
//	csvStr, _ := doc.CSV()  // Render back to CSV string
package csv

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/shapestone/shape-core/pkg/ast"
)

// Document represents a CSV file with a fluent API for manipulation.
// All setter methods return *Document to enable method chaining.
//
// A Document consists of:
//   - Optional headers (first row that names the columns)
//   - Data records (remaining rows), each with its own width
//   - The dialect used to render it
type Document struct {
	dialect Dialect
	headers []string
	records [][]string
}

// Record represents a single row in a CSV file.
// It provides access to field values by index or by header name.
type Record struct {
	fields  []string
	headers []string // Reference to document headers for name-based access
	dialect Dialect
}

// Pair is one named field of a Record.
type Pair struct {
	Name  string // header name, empty when the record is wider than the header
	Value string
}

// NewDocument creates a new empty Document using the default dialect.
func NewDocument() *Document {
	return &Document{
		dialect: DefaultDialect(),
		headers: []string{},
		records: make([][]string, 0),
	}
}

// DocumentOptions configures ReadDocument.
type DocumentOptions struct {
	ReaderOptions

	// HasHeader reads the first record as headers.
	HasHeader bool
}

// DefaultDocumentOptions returns the default document configuration. All rows
// are read as data records.
func DefaultDocumentOptions() DocumentOptions {
	return DocumentOptions{ReaderOptions: DefaultReaderOptions()}
}

// ParseDocument parses CSV string into a Document with a fluent API.
// Returns an error if the input is not valid CSV.
//
// All rows are treated as data records. Use ReadDocument with HasHeader to
// take the first row as headers.
//
// Example:
//
//	doc, err := csv.ParseDocument("name,age\nAlice,30\nBob,25")
//	if err != nil {
//	    // handle error
//	}
func ParseDocument(input string) (*Document, error) {
	return ReadDocument(strings.NewReader(input), DefaultDocumentOptions())
}

// ReadDocument reads every record from r into a Document.
func ReadDocument(r io.Reader, opts DocumentOptions) (*Document, error) {
	opts.Features.DynamicShape = true
	rd, err := NewReader(r, opts.ReaderOptions)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	records, err := rd.ReadAll()
	if err != nil {
		return nil, err
	}
	doc := NewDocument()
	doc.dialect = opts.Dialect
	if opts.HasHeader && len(records) > 0 {
		doc.headers = records[0]
		records = records[1:]
	}
	doc.records = append(doc.records, records...)
	return doc, nil
}

// SetHeaders sets the column headers for this CSV document.
// Headers are used by Record.GetByName() to access fields by name.
// Returns the Document for method chaining.
func (d *Document) SetHeaders(headers []string) *Document {
	d.headers = headers
	return d
}

// SetDialect sets the dialect used by CSV and WriteTo.
func (d *Document) SetDialect(dialect Dialect) *Document {
	d.dialect = dialect
	return d
}

// Dialect returns the document's dialect.
func (d *Document) Dialect() Dialect {
	return d.dialect
}

// AddRecord adds a data record (row) to the document.
// Returns the Document for method chaining.
func (d *Document) AddRecord(fields []string) *Document {
	d.records = append(d.records, fields)
	return d
}

// Headers returns the column headers.
// Returns an empty slice if no headers have been set.
func (d *Document) Headers() []string {
	return d.headers
}

// Records returns all data records as Record objects.
func (d *Document) Records() []Record {
	records := make([]Record, len(d.records))
	for i := range d.records {
		records[i] = d.record(i)
	}
	return records
}

// RecordCount returns the number of data records in the document.
// This does not include the header row.
func (d *Document) RecordCount() int {
	return len(d.records)
}

// GetRecord returns the record at the specified index.
// Returns (Record, false) if the index is out of bounds.
// Index is 0-based (0 = first data record, not the header).
func (d *Document) GetRecord(index int) (Record, bool) {
	if index < 0 || index >= len(d.records) {
		return Record{}, false
	}
	return d.record(index), true
}

func (d *Document) record(i int) Record {
	return Record{fields: d.records[i], headers: d.headers, dialect: d.dialect}
}

// CSV renders the Document back to a CSV string.
// This includes headers (if set) followed by all data records.
//
// Example:
//
//	doc := csv.NewDocument().
//	    SetHeaders([]string{"name", "age"}).
//	    AddRecord([]string{"Alice", "30"})
//	csvStr, _ := doc.CSV()
//	// Output: name,age\nAlice,30\n
func (d *Document) CSV() (string, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteTo writes the Document to w in its dialect.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	opts := DefaultWriterOptions()
	opts.Dialect = d.dialect
	wr, err := NewWriter(cw, opts)
	if err != nil {
		return 0, err
	}
	if len(d.headers) > 0 {
		if err := wr.Write(d.headers); err != nil {
			return cw.n, err
		}
	}
	for _, record := range d.records {
		if err := wr.Write(record); err != nil {
			return cw.n, err
		}
	}
	err = wr.Close()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ============================================================================
// Record Methods
// ============================================================================

// Get gets the field value at the specified index.
// Returns (value, false) if the index is out of bounds.
// Index is 0-based.
func (r Record) Get(index int) (string, bool) {
	if index < 0 || index >= len(r.fields) {
		return "", false
	}
	return r.fields[index], true
}

// GetByName gets the field value by header name.
// Returns (value, false) if the header name is not found or if no headers are set.
func (r Record) GetByName(name string) (string, bool) {
	i := indexOf(r.headers, name)
	if i < 0 {
		return "", false
	}
	return r.Get(i)
}

// Value converts the field named name with conv.
func (r Record) Value(name string, conv Converter) (any, error) {
	i := indexOf(r.headers, name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	field, ok := r.Get(i)
	if !ok {
		return nil, &FieldCountError{Expected: i + 1, Actual: len(r.fields)}
	}
	v, err := conv.Parse([]byte(field), r.dialect)
	if err != nil {
		return nil, &ConversionError{Field: i, Column: name, Tag: converterTag(conv), Err: err}
	}
	return v, nil
}

// Pairs returns the fields in order, named by the headers.
func (r Record) Pairs() []Pair {
	pairs := make([]Pair, len(r.fields))
	for i, f := range r.fields {
		pairs[i].Value = f
		if i < len(r.headers) {
			pairs[i].Name = r.headers[i]
		}
	}
	return pairs
}

// Fields returns all field values in the record.
// This returns a copy of the fields slice.
func (r Record) Fields() []string {
	fields := make([]string, len(r.fields))
	copy(fields, r.fields)
	return fields
}

// Len returns the number of fields in the record.
func (r Record) Len() int {
	return len(r.fields)
}

// ============================================================================
// AST Conversion (for integration with AST-based APIs)
// ============================================================================

// ToAST converts the Document to an AST ArrayDataNode.
// Headers, if set, become the first record node.
func (d *Document) ToAST() (*ast.ArrayDataNode, error) {
	all := make([][]string, 0, len(d.records)+1)
	if len(d.headers) > 0 {
		all = append(all, d.headers)
	}
	all = append(all, d.records...)
	node, err := RecordsToNode(all)
	if err != nil {
		return nil, err
	}
	return node.(*ast.ArrayDataNode), nil
}

// FromAST creates a Document from an AST ArrayDataNode of record nodes.
// Every field must be a string literal.
func FromAST(node ast.SchemaNode) (*Document, error) {
	arrayNode, ok := node.(*ast.ArrayDataNode)
	if !ok {
		return nil, fmt.Errorf("expected *ast.ArrayDataNode, got %T", node)
	}

	doc := NewDocument()
	for _, elem := range arrayNode.Elements() {
		recordNode, ok := elem.(*ast.ArrayDataNode)
		if !ok {
			return nil, fmt.Errorf("expected record to be *ast.ArrayDataNode, got %T", elem)
		}

		fields := make([]string, 0, recordNode.Len())
		for _, fieldNode := range recordNode.Elements() {
			literalNode, ok := fieldNode.(*ast.LiteralNode)
			if !ok {
				return nil, fmt.Errorf("expected field to be *ast.LiteralNode, got %T", fieldNode)
			}
			value, ok := literalNode.Value().(string)
			if !ok {
				return nil, fmt.Errorf("expected field value to be string, got %T", literalNode.Value())
			}
			fields = append(fields, value)
		}
		doc.AddRecord(fields)
	}
	return doc, nil
}
