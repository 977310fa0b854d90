package fastparser

import (
	"errors"
	"fmt"
)

// Tokenizer failures. They are wrapped in a *SyntaxError carrying the position.
var (
	ErrUnterminatedQuote = errors.New("unterminated quoted field")
	ErrDataAfterQuote    = errors.New("unexpected data after closing quote")
	ErrFieldTooLarge     = errors.New("field exceeds maximum size")
)

// MaxDiagnosticBytes caps the raw bytes copied into an error.
const MaxDiagnosticBytes = 64

// SyntaxError describes a malformed record. Only the current record is lost;
// the tokenizer can resume at the next line after Recover.
type SyntaxError struct {
	Record int   // 1-based record number
	Field  int   // 0-based field index
	Line   int   // 1-based line where the error was detected
	Offset int64 // input byte offset where the error was detected
	Raw    []byte
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("record %d, field %d (line %d): %v", e.Record, e.Field, e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// truncate copies at most MaxDiagnosticBytes of b.
func truncate(b []byte) []byte {
	if len(b) > MaxDiagnosticBytes {
		b = b[:MaxDiagnosticBytes]
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
