// Package csv reads and writes delimited text (CSV, TSV and custom dialects).
//
// The package streams records through a byte-level tokenizer and a buffered
// formatter. A Dialect describes the syntax; from it and the features in use
// the package selects one of three processing tiers. The tiers differ only in
// speed and always produce the same records.
//
// # Thread Safety
//
// Readers, Writers, Scanners, Decoders and Encoders are not safe for
// concurrent use. Dialects and Registries may be shared. The package-level
// functions create their own reader or writer and are safe for concurrent use.
//
// # Reading
//
//	r, err := csv.NewReader(file, csv.DefaultReaderOptions())
//	if err != nil {
//	    // handle error
//	}
//	defer r.Close()
//	for {
//	    row, err := r.Read()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        // handle error
//	    }
//	    fmt.Println(row.FieldString(0))
//	}
//
// # Writing
//
//	w, _ := csv.NewWriter(os.Stdout, csv.DefaultWriterOptions())
//	w.Write([]string{"name", "age"})
//	w.Write([]string{"Alice", "30"})
//	w.Close()
//
// # Typed records
//
// A Mapping binds columns to the fields of a struct through registered
// converters. Decoder and Encoder stream typed values through it.
//
// # AST
//
// Parse and ParseReader produce Shape's unified AST: a file node holding one
// *ast.ArrayDataNode per record, each holding one *ast.LiteralNode per field.
package csv

import (
	"bytes"
	"io"

	"github.com/shapestone/shape-core/pkg/ast"
)

// Parse parses CSV format into an AST from a string.
//
// Returns an ast.ArrayDataNode representing the parsed CSV:
//   - *ast.ArrayDataNode for the file (array of records)
//   - Each record is an *ast.ArrayDataNode of fields
//   - Each field is an *ast.LiteralNode containing a string value
//
// Example:
//
//	node, err := csv.Parse("name,age\nAlice,30\nBob,25")
//	arrayNode := node.(*ast.ArrayDataNode)
//	records := arrayNode.Elements()
//	// records[0] is the header row
//	// records[1] is the first data row
func Parse(input string) (ast.SchemaNode, error) {
	return ParseWithOptions(input, DefaultReaderOptions())
}

// ParseReader parses CSV format into an AST from an io.Reader. The input is
// read in chunks, but the resulting AST holds every record.
func ParseReader(reader io.Reader) (ast.SchemaNode, error) {
	return ParseReaderWithOptions(reader, DefaultReaderOptions())
}

// ParseWithOptions parses CSV format into an AST from a string with custom
// options.
//
// Example:
//
//	opts := csv.DefaultReaderOptions()
//	opts.Dialect = csv.TSVDialect()
//	node, err := csv.ParseWithOptions("name\tage\nAlice\t30", opts)
func ParseWithOptions(input string, opts ReaderOptions) (ast.SchemaNode, error) {
	r, err := NewReaderBytes([]byte(input), opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readNode(r)
}

// ParseReaderWithOptions parses CSV format into an AST from an io.Reader with
// custom options.
func ParseReaderWithOptions(reader io.Reader, opts ReaderOptions) (ast.SchemaNode, error) {
	r, err := NewReader(reader, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readNode(r)
}

// Format returns the format identifier for this parser.
// Returns "CSV" to identify this as the CSV data format parser.
func Format() string {
	return "CSV"
}

// Validate checks if the input string is valid CSV.
//
// Records are tokenized and discarded without building an AST.
//
//	if err := csv.Validate(input); err != nil {
//	    fmt.Println("Invalid CSV:", err)
//	}
func Validate(input string) error {
	return ValidateWithOptions(input, DefaultReaderOptions())
}

// ValidateWithOptions checks if the input string is valid in the dialect of
// opts.
func ValidateWithOptions(input string, opts ReaderOptions) error {
	r, err := NewReaderBytes([]byte(input), opts)
	if err != nil {
		return err
	}
	return drain(r)
}

// ValidateReader checks if the input from an io.Reader is valid CSV. The
// input is streamed, not read into memory.
func ValidateReader(reader io.Reader) error {
	r, err := NewReader(reader, DefaultReaderOptions())
	if err != nil {
		return err
	}
	return drain(r)
}

func drain(r *Reader) error {
	defer r.Close()
	for {
		_, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ReadAll reads every record from reader.
func ReadAll(reader io.Reader, opts ReaderOptions) ([][]string, error) {
	r, err := NewReader(reader, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}

// WriteAll writes records to writer and flushes.
func WriteAll(writer io.Writer, records [][]string, opts WriterOptions) error {
	w, err := NewWriter(writer, opts)
	if err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Close()
}

// Marshal formats records as CSV bytes with the default writer options.
func Marshal(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteAll(&buf, records, DefaultWriterOptions()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
