package csv

import (
	"github.com/go-logr/logr"

	"github.com/shapestone/shape-csv/v2/internal/formatter"
)

// QuotePolicy selects when the writer quotes a field.
type QuotePolicy = formatter.QuotePolicy

const (
	// QuoteWhenNeeded quotes fields containing special bytes (default).
	QuoteWhenNeeded = formatter.QuoteWhenNeeded
	// QuoteAlways quotes every field.
	QuoteAlways = formatter.QuoteAlways
	// QuoteNonNumeric quotes every field that is not a decimal number.
	QuoteNonNumeric = formatter.QuoteNonNumeric
	// QuoteNever writes fields verbatim. The caller guarantees they contain
	// no special bytes.
	QuoteNever = formatter.QuoteNever
)

// ReaderOptions configures CSV parsing behavior.
type ReaderOptions struct {
	// Dialect describes the input syntax.
	// Default: DefaultDialect()
	Dialect Dialect

	// ErrorPolicy specifies how malformed records are handled.
	// Default: PolicyThrow
	ErrorPolicy ErrorPolicy

	// BufferSize is the read buffer size hint in bytes. 0 selects 64 KiB.
	BufferSize int

	// Features declares optional processing that constrains the tier.
	Features Features

	// Logger receives diagnostics. The zero value discards them.
	Logger logr.Logger
}

// DefaultReaderOptions returns the default reader configuration.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{
		Dialect:     DefaultDialect(),
		ErrorPolicy: DefaultErrorPolicy(),
	}
}

// Validate checks if the reader options are valid.
func (o ReaderOptions) Validate() error {
	if err := o.Dialect.Validate(); err != nil {
		return err
	}
	if err := o.ErrorPolicy.Validate(); err != nil {
		return err
	}
	if o.BufferSize < 0 {
		return &OptionsError{Field: "BufferSize", Message: "must not be negative"}
	}
	return nil
}

// Tier returns the tier a reader built from o uses.
func (o ReaderOptions) Tier() Tier {
	f := o.Features
	if o.ErrorPolicy.OnError != nil {
		f.RecordErrorCallbacks = true
	}
	return ResolveTier(o.Dialect, f)
}

// WriterOptions configures CSV writing behavior.
type WriterOptions struct {
	// Dialect describes the output syntax.
	// Default: DefaultDialect()
	Dialect Dialect

	// Quote is the default quote policy for fields.
	// Default: QuoteWhenNeeded
	Quote QuotePolicy

	// BufferSize is the output buffer size hint in bytes. Buffered bytes are
	// written once it is reached. 0 selects 64 KiB.
	BufferSize int

	// Logger receives diagnostics. The zero value discards them.
	Logger logr.Logger
}

// DefaultWriterOptions returns the default writer configuration.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		Dialect: DefaultDialect(),
		Quote:   QuoteWhenNeeded,
	}
}

// Validate checks if the writer options are valid.
func (o WriterOptions) Validate() error {
	if err := o.Dialect.Validate(); err != nil {
		return err
	}
	if o.Quote > QuoteNever {
		return &OptionsError{Field: "Quote", Message: "unknown quote policy"}
	}
	if o.BufferSize < 0 {
		return &OptionsError{Field: "BufferSize", Message: "must not be negative"}
	}
	return nil
}

func loggerOrDiscard(l logr.Logger) logr.Logger {
	if l.GetSink() == nil {
		return logr.Discard()
	}
	return l
}
