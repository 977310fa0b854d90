package fastparser

// LineEnding selects which byte sequences terminate a record.
type LineEnding uint8

const (
	// LineEndingAuto accepts CRLF, bare LF and bare CR.
	LineEndingAuto LineEnding = iota
	// LineEndingLF accepts only LF; CR bytes are field data.
	LineEndingLF
	// LineEndingCRLF accepts only CRLF; bare CR and LF bytes are field data.
	LineEndingCRLF
	// LineEndingCR accepts only CR; LF bytes are field data.
	LineEndingCR
)

// TrimMode selects which whitespace is stripped from fields.
type TrimMode uint8

const (
	// TrimNone keeps every byte.
	TrimNone TrimMode = iota
	// TrimFields strips whitespace around unquoted fields and outside quotes.
	TrimFields
	// TrimInsideQuotes behaves like TrimFields and also trims quoted content.
	TrimInsideQuotes
)

// Config is the tokenizer's view of a dialect. The public package validates
// it before a tokenizer is built.
type Config struct {
	// Delimiter separates fields. Fast and flexible machines use only the
	// first byte; the general parser accepts any non-empty sequence.
	Delimiter string
	Quote     byte
	Escape    byte
	// Comment marks a comment line when non-zero.
	Comment          byte
	LineEnding       LineEnding
	Trim             TrimMode
	MaxFieldSize     int
	IgnoreBlankLines bool
}

// DefaultConfig returns the RFC 4180 configuration.
func DefaultConfig() Config {
	return Config{
		Delimiter:        ",",
		Quote:            '"',
		Escape:           '"',
		LineEnding:       LineEndingAuto,
		IgnoreBlankLines: true,
	}
}

// IsSpace reports whether b is trimmable whitespace under cfg. Delimiter bytes
// are never whitespace, so tab-separated data keeps its empty fields.
func (c *Config) IsSpace(b byte) bool {
	if b != ' ' && b != '\t' {
		return false
	}
	for i := 0; i < len(c.Delimiter); i++ {
		if c.Delimiter[i] == b {
			return false
		}
	}
	return true
}

// IsLineEndByte reports whether b can start a record terminator.
func (c *Config) IsLineEndByte(b byte) bool {
	switch c.LineEnding {
	case LineEndingLF:
		return b == '\n'
	case LineEndingCR, LineEndingCRLF:
		return b == '\r'
	default:
		return b == '\r' || b == '\n'
	}
}

// LineEndLen returns the length of the record terminator at the front of
// data, or 0 if there is none. atEOF reports that no more bytes follow data;
// when a CR could still be the start of CRLF and more input may arrive, it
// returns -1 to ask the caller for one more byte.
func (c *Config) LineEndLen(data []byte, atEOF bool) int {
	if len(data) == 0 {
		return 0
	}
	switch c.LineEnding {
	case LineEndingLF:
		if data[0] == '\n' {
			return 1
		}
	case LineEndingCR:
		if data[0] == '\r' {
			return 1
		}
	case LineEndingCRLF:
		if data[0] != '\r' {
			return 0
		}
		if len(data) >= 2 {
			if data[1] == '\n' {
				return 2
			}
			return 0
		}
		if !atEOF {
			return -1
		}
	default:
		switch data[0] {
		case '\n':
			return 1
		case '\r':
			if len(data) >= 2 {
				if data[1] == '\n' {
					return 2
				}
				return 1
			}
			if !atEOF {
				return -1
			}
			return 1
		}
	}
	return 0
}

// newlineByte is the byte counted for line numbers inside quoted fields.
func (c *Config) newlineByte() byte {
	if c.LineEnding == LineEndingCR {
		return '\r'
	}
	return '\n'
}
