package fastparser

// state is the tokenizer's position in the record grammar. It is stored on the
// Cursor rather than implied by the call stack, so the machine can stop at any
// buffer boundary and resume at the exact byte where it paused.
type state uint8

const (
	stateLineStart state = iota // before the first byte of a line
	stateFieldStart             // before the first byte of a field
	stateUnquoted               // inside an unquoted field
	stateQuoted                 // inside a quoted field
	stateQuoteSeen              // quote seen inside a quoted field
	stateEscapeSeen             // escape seen inside a quoted field (escape != quote)
	stateAfterQuote             // quoted field closed, expecting a terminator
	stateSkipLine               // discarding a comment or a malformed line
	stateError                  // terminal until Recover
)

var stateNames = [...]string{
	stateLineStart:  "LineStart",
	stateFieldStart: "FieldStart",
	stateUnquoted:   "InUnquotedField",
	stateQuoted:     "InQuotedField",
	stateQuoteSeen:  "QuoteSeenInQuoted",
	stateEscapeSeen: "EscapeSeenInQuoted",
	stateAfterQuote: "FieldEnd",
	stateSkipLine:   "SkipLine",
	stateError:      "Error",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// byteClass is a bit set describing what a byte means under a dialect.
type byteClass uint8

const (
	classDelim byteClass = 1 << iota
	classLineEnd
	classQuote
	classEscape
	classSpace
)

// classTable maps every byte value to its classes. It is built once per
// machine, so dialects with arbitrary single-byte delimiters, quotes and
// escapes classify in one table load per byte.
type classTable [256]byteClass

func newClassTable(cfg *Config) *classTable {
	var t classTable
	for i := 0; i < 256; i++ {
		b := byte(i)
		if cfg.IsLineEndByte(b) {
			t[i] |= classLineEnd
		}
		if cfg.IsSpace(b) {
			t[i] |= classSpace
		}
	}
	if len(cfg.Delimiter) > 0 {
		t[cfg.Delimiter[0]] |= classDelim
	}
	t[cfg.Quote] |= classQuote
	if cfg.Escape != cfg.Quote {
		t[cfg.Escape] |= classEscape
	}
	return &t
}

// scanPlain returns the length of the prefix of data that contains no
// delimiter and no line-ending byte.
func (t *classTable) scanPlain(data []byte) int {
	for i, c := range data {
		if t[c]&(classDelim|classLineEnd) != 0 {
			return i
		}
	}
	return len(data)
}

// scanQuoted returns the length of the prefix of data that contains no quote
// and no escape byte.
func (t *classTable) scanQuoted(data []byte) int {
	for i, c := range data {
		if t[c]&(classQuote|classEscape) != 0 {
			return i
		}
	}
	return len(data)
}

// skipSpace returns the number of leading whitespace bytes in data.
func (t *classTable) skipSpace(data []byte) int {
	for i, c := range data {
		if t[c]&classSpace == 0 {
			return i
		}
	}
	return len(data)
}
