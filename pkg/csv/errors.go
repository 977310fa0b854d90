package csv

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/shapestone/shape-csv/v2/internal/fastparser"
)

// MaxDiagnosticBytes caps the raw field bytes copied into an error.
const MaxDiagnosticBytes = fastparser.MaxDiagnosticBytes

// Common errors
var (
	// ErrUnterminatedQuote is reported when the input ends inside a quoted field.
	ErrUnterminatedQuote = fastparser.ErrUnterminatedQuote

	// ErrDataAfterQuote is reported when a closing quote is followed by
	// anything other than a delimiter or a line ending.
	ErrDataAfterQuote = fastparser.ErrDataAfterQuote

	// ErrFieldTooLarge is reported when a field exceeds MaxFieldSize.
	ErrFieldTooLarge = fastparser.ErrFieldTooLarge

	// ErrMissingField indicates a record has fewer fields than expected.
	ErrMissingField = errors.New("missing field")

	// ErrExtraField indicates a record has more fields than expected.
	ErrExtraField = errors.New("extra field")

	// ErrTooManyErrors aborts a Collect policy once MaxErrors errors are held.
	ErrTooManyErrors = errors.New("too many record errors")

	// ErrClosed is returned by a Reader or Writer after Close.
	ErrClosed = errors.New("csv: closed")
)

// FormatError reports malformed input.
type FormatError struct {
	Line   int   // 1-based line where the error was detected
	Offset int64 // input byte offset where the error was detected
	Err    error // ErrUnterminatedQuote or ErrDataAfterQuote
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error on line %d: %v", e.Line, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// SizeLimitError reports a field larger than the configured limit.
type SizeLimitError struct {
	Limit int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("field exceeds maximum size of %d bytes", e.Limit)
}

func (e *SizeLimitError) Unwrap() error {
	return ErrFieldTooLarge
}

// ConversionError reports a field that a converter could not parse or format.
type ConversionError struct {
	Field  int    // 0-based field index
	Column string // column name, empty when unknown
	Tag    string // converter type tag
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("convert column %q as %s: %v", e.Column, e.Tag, e.Err)
	}
	return fmt.Sprintf("convert %s: %v", e.Tag, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// FieldCountError reports a record whose width differs from the expected one.
type FieldCountError struct {
	Expected int
	Actual   int
}

func (e *FieldCountError) Error() string {
	return fmt.Sprintf("wrong number of fields: expected %d, got %d", e.Expected, e.Actual)
}

// Unwrap returns ErrMissingField or ErrExtraField.
func (e *FieldCountError) Unwrap() error {
	if e.Actual < e.Expected {
		return ErrMissingField
	}
	return ErrExtraField
}

// RecordError places an error within the input. Err is one of *FormatError,
// *SizeLimitError, *ConversionError or *FieldCountError.
type RecordError struct {
	Record int    // 1-based record number
	Field  int    // 0-based field index
	Line   int    // 1-based line
	Raw    []byte // copy of the offending bytes, at most MaxDiagnosticBytes
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d, field %d (line %d): %v", e.Record, e.Field, e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// recordError maps a tokenizer failure to the public taxonomy.
func recordError(se *fastparser.SyntaxError, maxField int) *RecordError {
	var err error
	if errors.Is(se.Err, fastparser.ErrFieldTooLarge) {
		err = &SizeLimitError{Limit: maxField}
	} else {
		err = &FormatError{Line: se.Line, Offset: se.Offset, Err: se.Err}
	}
	return &RecordError{
		Record: se.Record,
		Field:  se.Field,
		Line:   se.Line,
		Raw:    se.Raw,
		Err:    err,
	}
}

// diagnostic copies at most MaxDiagnosticBytes of b.
func diagnostic(b []byte) []byte {
	if len(b) > MaxDiagnosticBytes {
		b = b[:MaxDiagnosticBytes]
	}
	return append([]byte(nil), b...)
}

// OptionsError represents an invalid option configuration.
type OptionsError struct {
	Field   string
	Message string
}

func (e *OptionsError) Error() string {
	return "csv: invalid " + e.Field + ": " + e.Message
}

// PolicyMode specifies how a reader handles malformed records.
type PolicyMode int

const (
	// PolicyThrow returns the first record error and halts the reader (default).
	PolicyThrow PolicyMode = iota
	// PolicyCollect records the error and continues with the next record.
	PolicyCollect
	// PolicySkip discards the offending record and continues.
	PolicySkip
)

// String returns the string representation of PolicyMode.
func (m PolicyMode) String() string {
	switch m {
	case PolicyThrow:
		return "throw"
	case PolicyCollect:
		return "collect"
	case PolicySkip:
		return "skip"
	default:
		return fmt.Sprintf("PolicyMode(%d)", m)
	}
}

// ErrorHandler is invoked for every record error before the policy applies.
// Return true to let the policy continue, false to stop with the error.
type ErrorHandler func(err *RecordError) bool

// ErrorPolicy configures error handling behavior. Read failures of the
// underlying io.Reader are never subject to the policy.
type ErrorPolicy struct {
	// Mode specifies how malformed records are handled.
	// Default: PolicyThrow
	Mode PolicyMode `mapstructure:"mode"`

	// MaxErrors bounds the errors held by PolicyCollect. Once that many are
	// held, the next record error stops the reader: Read returns
	// ErrTooManyErrors wrapping that error, and every later Read returns the
	// same error. Reading does not continue past the cap. 0 means no limit.
	MaxErrors int `mapstructure:"max_errors"`

	// OnError, if set, is invoked for every record error. Setting it keeps
	// the reader off the fast tier.
	OnError ErrorHandler `mapstructure:"-"`
}

// DefaultErrorPolicy returns the default error policy.
func DefaultErrorPolicy() ErrorPolicy {
	return ErrorPolicy{Mode: PolicyThrow}
}

// Validate checks if the policy is valid.
func (p ErrorPolicy) Validate() error {
	if p.Mode < PolicyThrow || p.Mode > PolicySkip {
		return &OptionsError{Field: "Mode", Message: "unknown policy mode"}
	}
	if p.MaxErrors < 0 {
		return &OptionsError{Field: "MaxErrors", Message: "must not be negative"}
	}
	return nil
}

// policyEngine applies an ErrorPolicy to the errors of one reader.
type policyEngine struct {
	policy ErrorPolicy
	log    logr.Logger
	errs   []*RecordError
}

// handle returns nil when reading may continue past re, or the error to
// report otherwise.
func (e *policyEngine) handle(re *RecordError) error {
	if e.policy.OnError != nil && !e.policy.OnError(re) {
		return re
	}
	switch e.policy.Mode {
	case PolicySkip:
		e.log.V(1).Info("skipping malformed record", "record", re.Record, "line", re.Line, "error", re.Err.Error())
		return nil
	case PolicyCollect:
		if e.policy.MaxErrors > 0 && len(e.errs) >= e.policy.MaxErrors {
			return fmt.Errorf("%w (limit %d): %w", ErrTooManyErrors, e.policy.MaxErrors, re)
		}
		e.errs = append(e.errs, re)
		e.log.V(1).Info("collected record error", "record", re.Record, "line", re.Line, "error", re.Err.Error())
		return nil
	default:
		return re
	}
}
