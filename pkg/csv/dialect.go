package csv

import (
	"strings"

	"github.com/shapestone/shape-csv/v2/internal/fastparser"
)

// LineEnding selects which byte sequences terminate a record.
type LineEnding = fastparser.LineEnding

const (
	// LineEndingAuto reads CRLF, LF and CR and writes LF.
	LineEndingAuto = fastparser.LineEndingAuto
	// LineEndingLF reads and writes LF only. CR bytes are field data.
	LineEndingLF = fastparser.LineEndingLF
	// LineEndingCRLF reads and writes CRLF only. Bare CR and LF bytes are
	// field data.
	LineEndingCRLF = fastparser.LineEndingCRLF
	// LineEndingCR reads and writes CR only. LF bytes are field data.
	LineEndingCR = fastparser.LineEndingCR
)

// TrimMode selects which whitespace (space and tab) is stripped from fields.
type TrimMode = fastparser.TrimMode

const (
	// TrimNone keeps every byte.
	TrimNone = fastparser.TrimNone
	// TrimFields strips whitespace around unquoted fields and outside quotes.
	TrimFields = fastparser.TrimFields
	// TrimInsideQuotes also trims the content of quoted fields.
	TrimInsideQuotes = fastparser.TrimInsideQuotes
)

// Dialect describes the syntax of a delimited text stream. It is a value type
// and can be shared freely between readers and writers.
type Dialect struct {
	// Delimiter separates fields. Any non-empty byte sequence is accepted;
	// multi-byte and non-ASCII delimiters are served by the general tier.
	Delimiter string `mapstructure:"delimiter"`
	// Quote encloses fields that contain special bytes.
	Quote byte `mapstructure:"quote"`
	// Escape escapes a quote inside a quoted field. When it equals Quote,
	// quotes are escaped by doubling.
	Escape byte `mapstructure:"escape"`
	// Comment starts a comment line when AllowComments is set.
	Comment       byte `mapstructure:"comment"`
	AllowComments bool `mapstructure:"allow_comments"`

	LineEnding LineEnding `mapstructure:"line_ending"`
	Trim       TrimMode   `mapstructure:"trim"`

	// MaxFieldSize limits the unescaped size of a field in bytes. 0 means no
	// limit.
	MaxFieldSize int `mapstructure:"max_field_size"`
	// IgnoreBlankLines skips empty lines. When false an empty line reads as
	// a record with one empty field.
	IgnoreBlankLines bool `mapstructure:"ignore_blank_lines"`
}

// DefaultDialect returns the RFC 4180 dialect: comma delimiter, double quote
// escaped by doubling, any line ending, blank lines skipped.
func DefaultDialect() Dialect {
	return Dialect{
		Delimiter:        ",",
		Quote:            '"',
		Escape:           '"',
		LineEnding:       LineEndingAuto,
		IgnoreBlankLines: true,
	}
}

// TSVDialect returns DefaultDialect with a tab delimiter.
func TSVDialect() Dialect {
	d := DefaultDialect()
	d.Delimiter = "\t"
	return d
}

// Tier returns the tier selected for d when no optional features are in use.
func (d Dialect) Tier() Tier {
	return ResolveTier(d, Features{})
}

// Validate checks that d describes an unambiguous syntax.
func (d Dialect) Validate() error {
	if d.Delimiter == "" {
		return &OptionsError{Field: "Delimiter", Message: "must not be empty"}
	}
	if strings.ContainsAny(d.Delimiter, "\r\n") {
		return &OptionsError{Field: "Delimiter", Message: "must not contain CR or LF"}
	}
	if err := validSpecial("Quote", d.Quote); err != nil {
		return err
	}
	if err := validSpecial("Escape", d.Escape); err != nil {
		return err
	}
	if strings.IndexByte(d.Delimiter, d.Quote) >= 0 {
		return &OptionsError{Field: "Delimiter", Message: "must not contain the quote character"}
	}
	if d.Escape != d.Quote && strings.IndexByte(d.Delimiter, d.Escape) >= 0 {
		return &OptionsError{Field: "Delimiter", Message: "must not contain the escape character"}
	}
	if d.AllowComments {
		if err := validSpecial("Comment", d.Comment); err != nil {
			return err
		}
		if strings.IndexByte(d.Delimiter, d.Comment) >= 0 {
			return &OptionsError{Field: "Comment", Message: "comment character appears in the delimiter"}
		}
		if d.Comment == d.Quote || d.Comment == d.Escape {
			return &OptionsError{Field: "Comment", Message: "comment character same as quote or escape"}
		}
	}
	if d.LineEnding > LineEndingCR {
		return &OptionsError{Field: "LineEnding", Message: "unknown line ending"}
	}
	if d.Trim > TrimInsideQuotes {
		return &OptionsError{Field: "Trim", Message: "unknown trim mode"}
	}
	if d.MaxFieldSize < 0 {
		return &OptionsError{Field: "MaxFieldSize", Message: "must not be negative"}
	}
	return nil
}

// validSpecial checks a single-byte syntax character: set, ASCII, not a line
// terminator.
func validSpecial(field string, c byte) error {
	switch {
	case c == 0:
		return &OptionsError{Field: field, Message: "must be set"}
	case c == '\r' || c == '\n':
		return &OptionsError{Field: field, Message: "must not be CR or LF"}
	case c >= 0x80:
		return &OptionsError{Field: field, Message: "must be an ASCII character"}
	}
	return nil
}

// config converts d to the tokenizer configuration.
func (d Dialect) config() fastparser.Config {
	cfg := fastparser.Config{
		Delimiter:        d.Delimiter,
		Quote:            d.Quote,
		Escape:           d.Escape,
		LineEnding:       d.LineEnding,
		Trim:             d.Trim,
		MaxFieldSize:     d.MaxFieldSize,
		IgnoreBlankLines: d.IgnoreBlankLines,
	}
	if d.AllowComments {
		cfg.Comment = d.Comment
	}
	return cfg
}
