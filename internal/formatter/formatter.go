// Package formatter renders records as delimited text into a stream.Sink.
//
// The formatter decides per field whether to quote, escapes quote and escape
// bytes inside quoted fields, and writes the delimiter and record terminator.
// Output accumulates in the sink and reaches the destination only when the
// sink's capacity hint is exceeded or Flush is called.
package formatter

import (
	"bytes"
	"errors"

	"github.com/shapestone/shape-csv/v2/internal/fastparser"
	"github.com/shapestone/shape-csv/v2/internal/stream"
)

// QuotePolicy selects when a field is enclosed in quotes.
type QuotePolicy uint8

const (
	// QuoteWhenNeeded quotes fields that would not read back unchanged:
	// fields containing the delimiter, quote, escape, CR or LF, fields with
	// leading or trailing whitespace when trimming is configured, a leading
	// comment byte on the first field when comments are enabled, and a
	// record made of a single empty field.
	QuoteWhenNeeded QuotePolicy = iota
	// QuoteAlways quotes every field.
	QuoteAlways
	// QuoteNonNumeric quotes every field that is not a decimal number.
	QuoteNonNumeric
	// QuoteNever writes fields verbatim. Output is not guaranteed to read
	// back unchanged.
	QuoteNever
)

var policyNames = [...]string{
	QuoteWhenNeeded: "WhenNeeded",
	QuoteAlways:     "Always",
	QuoteNonNumeric: "NonNumeric",
	QuoteNever:      "Never",
}

func (p QuotePolicy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return "Unknown"
}

// ErrUnknownPolicy is returned for a QuotePolicy outside the defined set.
var ErrUnknownPolicy = errors.New("formatter: unknown quote policy")

// Formatter writes fields and records under one dialect.
type Formatter struct {
	sink *stream.Sink
	cfg  fastparser.Config

	delim   []byte
	lineEnd []byte
	// special marks bytes that force quoting. The delimiter is included only
	// when it is a single byte; longer delimiters are checked by
	// splitsDelimiter.
	special    [256]bool
	multiDelim bool
	trim       bool

	fields    int  // fields written to the current record
	lastEmpty bool // the last field was written as zero bytes
	start     int  // sink offset of the current record
}

// New returns a Formatter writing to sink under cfg.
func New(sink *stream.Sink, cfg fastparser.Config) *Formatter {
	f := &Formatter{
		sink:       sink,
		cfg:        cfg,
		delim:      []byte(cfg.Delimiter),
		lineEnd:    lineEnding(cfg.LineEnding),
		multiDelim: len(cfg.Delimiter) > 1,
		trim:       cfg.Trim != fastparser.TrimNone,
	}
	f.special['\r'] = true
	f.special['\n'] = true
	f.special[cfg.Quote] = true
	f.special[cfg.Escape] = true
	if !f.multiDelim {
		f.special[cfg.Delimiter[0]] = true
	}
	return f
}

// lineEnding returns the terminator written after each record. Auto writes LF.
func lineEnding(mode fastparser.LineEnding) []byte {
	switch mode {
	case fastparser.LineEndingCRLF:
		return []byte("\r\n")
	case fastparser.LineEndingCR:
		return []byte("\r")
	default:
		return []byte("\n")
	}
}

// WriteField appends one field to the current record.
func (f *Formatter) WriteField(value []byte, policy QuotePolicy) error {
	var quote bool
	switch policy {
	case QuoteWhenNeeded:
		quote = f.NeedsQuote(value)
	case QuoteAlways:
		quote = true
	case QuoteNonNumeric:
		quote = !IsNumeric(value) || f.NeedsQuote(value)
	case QuoteNever:
	default:
		return ErrUnknownPolicy
	}

	buf := f.sink.Buffer()
	if f.fields > 0 {
		buf = append(buf, f.delim...)
	} else {
		f.start = len(buf)
	}
	if quote {
		buf = f.appendQuoted(buf, value)
	} else {
		buf = append(buf, value...)
	}
	f.fields++
	f.lastEmpty = !quote && len(value) == 0
	// Held until EndRecord so AbortRecord can withdraw the record.
	return f.sink.Hold(buf)
}

// WriteString is WriteField for a string value.
func (f *Formatter) WriteString(value string, policy QuotePolicy) error {
	return f.WriteField([]byte(value), policy)
}

// EndRecord terminates the current record.
func (f *Formatter) EndRecord() error {
	buf := f.sink.Buffer()
	if f.fields == 1 && f.lastEmpty {
		// A bare terminator would read back as a blank line.
		buf = append(buf, f.cfg.Quote, f.cfg.Quote)
	}
	buf = append(buf, f.lineEnd...)
	f.fields = 0
	f.lastEmpty = false
	return f.sink.Commit(buf)
}

// AbortRecord discards the fields written since the current record began and
// starts a new record. Fields already written out by Flush are not withdrawn.
func (f *Formatter) AbortRecord() {
	if f.fields > 0 {
		f.sink.Truncate(f.start)
	}
	f.fields = 0
	f.lastEmpty = false
}

// Flush writes buffered output to the destination, including the fields of
// an unterminated record.
func (f *Formatter) Flush() error {
	err := f.sink.Flush()
	f.start = f.sink.Pending()
	return err
}

// Fields returns the number of fields written to the current record.
func (f *Formatter) Fields() int {
	return f.fields
}

// NeedsQuote reports whether value must be quoted to read back unchanged as
// a field of the current record.
func (f *Formatter) NeedsQuote(value []byte) bool {
	if len(value) == 0 {
		return false
	}
	for _, c := range value {
		if f.special[c] {
			return true
		}
	}
	if f.multiDelim && f.splitsDelimiter(value) {
		return true
	}
	if f.trim && (f.cfg.IsSpace(value[0]) || f.cfg.IsSpace(value[len(value)-1])) {
		return true
	}
	if f.fields == 0 && f.cfg.Comment != 0 && value[0] == f.cfg.Comment {
		return true
	}
	return false
}

// splitsDelimiter reports whether a reader scanning value followed by the
// delimiter would find a delimiter starting inside value. That happens when
// value contains the delimiter, or ends with a prefix of it that the written
// delimiter completes ("a:" before "::").
func (f *Formatter) splitsDelimiter(value []byte) bool {
	if bytes.Contains(value, f.delim) {
		return true
	}
	d := f.delim
	for k := 1; k < len(d) && k <= len(value); k++ {
		if bytes.HasSuffix(value, d[:k]) && bytes.Equal(d[k:], d[:len(d)-k]) {
			return true
		}
	}
	return false
}

// appendQuoted appends value enclosed in quotes. Quote bytes are doubled when
// the escape is the quote; otherwise quote and escape bytes are prefixed with
// the escape.
func (f *Formatter) appendQuoted(buf, value []byte) []byte {
	q, e := f.cfg.Quote, f.cfg.Escape
	buf = append(buf, q)
	for len(value) > 0 {
		i := indexQuoteOrEscape(value, q, e)
		if i < 0 {
			buf = append(buf, value...)
			break
		}
		buf = append(buf, value[:i]...)
		buf = append(buf, e, value[i])
		value = value[i+1:]
	}
	return append(buf, q)
}

func indexQuoteOrEscape(value []byte, q, e byte) int {
	if q == e {
		return bytes.IndexByte(value, q)
	}
	for i, c := range value {
		if c == q || c == e {
			return i
		}
	}
	return -1
}

// IsNumeric reports whether value is a decimal number: an optional sign and
// digits with at most one decimal point.
func IsNumeric(value []byte) bool {
	i := 0
	if i < len(value) && (value[i] == '+' || value[i] == '-') {
		i++
	}
	digits, dot := 0, false
	for ; i < len(value); i++ {
		c := value[i]
		if c >= '0' && c <= '9' {
			digits++
			continue
		}
		if c == '.' && !dot {
			dot = true
			continue
		}
		break
	}
	return digits > 0 && i == len(value)
}
