// Package parser implements the general-tier record tokenizer. It reads
// Shape tokens with one token of lookahead and applies the same record grammar
// as the byte machine in internal/fastparser, so dialects with multi-byte
// delimiters produce identical records.
//
// Input arrives through a stream.Source. Each buffered window is widened and
// tokenized in memory. A record that runs off the end of the window is parsed
// again from its first byte once more input has been read, so tokens never
// straddle a refill and bytes pass through unchanged.
package parser

import (
	"errors"
	"io"
	"strings"

	shapetokenizer "github.com/shapestone/shape-core/pkg/tokenizer"

	"github.com/shapestone/shape-csv/v2/internal/fastparser"
	"github.com/shapestone/shape-csv/v2/internal/stream"
	"github.com/shapestone/shape-csv/v2/internal/tokenizer"
)

// errShort reports that the window ended before the current record did.
var errShort = errors.New("parser: window exhausted")

// Parser implements fastparser.Tokenizer over a Shape token stream.
type Parser struct {
	src       *stream.Source
	tokenizer *shapetokenizer.Tokenizer
	current   *shapetokenizer.Token
	hasToken  bool
	// val is the unconsumed suffix of current. Trimming can consume part of
	// a field token.
	val string

	// base is the stream offset of the window. Tokens starting at or past
	// limit may be cut short by the window end and are not read until the
	// window grows. final is set once the reader has stopped.
	base    int64
	tokEnd  int
	limit   int
	final   bool
	short   bool
	holdend int

	cfg     fastparser.Config
	trim    bool
	newline string

	record   int
	line     int
	field    int
	offset   int64
	inQuotes bool
	skip     bool // discard the rest of the line before the next record

	data       []byte
	spans      []fastparser.Span
	fieldStart int
	quoted     bool
	recLine    int
	recOffset  int64

	err   error // syntax error held until Recover
	fatal error // read failure
}

// mark is the position a record attempt restarts from.
type mark struct {
	record int
	line   int
	offset int64
	skip   bool
}

// NewParserWithConfig creates a parser for an in-memory document.
func NewParserWithConfig(input string, cfg fastparser.Config) *Parser {
	return New(stream.NewBytesSource([]byte(input)), cfg)
}

// New creates a parser over src. The parser owns src and releases it on
// Close. Read failures other than io.EOF are reported by NextRecord and are
// never recovered.
func New(src *stream.Source, cfg fastparser.Config) *Parser {
	tok := tokenizer.NewTokenizerWithConfig(cfg)
	p := &Parser{
		src:       src,
		tokenizer: &tok,
		holdend:   max(len(cfg.Delimiter)-1, 1),
		cfg:       cfg,
		trim:      cfg.Trim != fastparser.TrimNone,
		newline:   "\n",
		line:      1,
		data:      make([]byte, 0, 256),
		spans:     make([]fastparser.Span, 0, 16),
	}
	if cfg.LineEnding == fastparser.LineEndingCR {
		p.newline = "\r"
	}
	p.load()
	return p
}

// NextRecord implements fastparser.Tokenizer.
func (p *Parser) NextRecord() (*fastparser.ByteRecord, error) {
	if p.fatal != nil {
		return nil, p.fatal
	}
	if p.err != nil {
		return nil, p.err
	}
	for {
		m := mark{record: p.record, line: p.line, offset: p.offset, skip: p.skip}
		rec, err := p.nextRecord()
		if err != errShort {
			return rec, err
		}
		p.record, p.line, p.offset, p.skip = m.record, m.line, m.offset, m.skip
		p.inQuotes = false
		p.refill()
	}
}

func (p *Parser) nextRecord() (*fastparser.ByteRecord, error) {
	if p.skip {
		if err := p.skipLine(); err != nil {
			return nil, err
		}
		p.skip = false
	}
	for {
		if !p.hasToken {
			if p.short {
				return nil, errShort
			}
			if err := p.failure(); err != nil {
				p.fatal = err
				return nil, err
			}
			return nil, io.EOF
		}

		// Skip comment lines if a comment byte is set
		if p.cfg.Comment != 0 && p.val[0] == p.cfg.Comment {
			if err := p.skipLine(); err != nil {
				return nil, err
			}
			continue
		}

		if p.current.Kind() == tokenizer.TokenNewline {
			if p.cfg.IgnoreBlankLines {
				p.advance()
				p.line++
				continue
			}
			p.beginRecord()
			p.endField()
			p.advance()
			p.line++
			return p.emit(), nil
		}

		p.beginRecord()
		return p.parseRecord()
	}
}

// Recover implements fastparser.Tokenizer.
func (p *Parser) Recover() {
	if p.err == nil {
		return
	}
	p.err = nil
	p.inQuotes = false
	p.skip = true
}

// Cursor implements fastparser.Tokenizer.
func (p *Parser) Cursor() fastparser.Cursor {
	return fastparser.ExternalCursor(p.record, p.line, p.field, p.offset, p.inQuotes, p.err != nil)
}

// Close implements fastparser.Tokenizer.
func (p *Parser) Close() {
	p.data, p.spans = nil, nil
	p.hasToken, p.current, p.val = false, nil, ""
	p.src.Release()
}

// load tokenizes the current window of src from its first byte.
func (p *Parser) load() {
	window := p.src.Window()
	p.base = p.src.Offset()
	p.final = p.src.Err() != nil
	p.limit = len(window)
	if !p.final {
		p.limit -= p.holdend
	}
	p.tokEnd = 0
	p.tokenizer.Initialize(tokenizer.Widen(window))
	p.next()
}

// refill drops the bytes before offset, reads once more and reloads. A read
// either adds bytes or sets the sticky error, so every refill makes progress.
func (p *Parser) refill() {
	p.src.Advance(int(p.offset - p.base))
	_, _ = p.src.Fill()
	p.load()
}

// failure returns the read error once the input has ended early.
func (p *Parser) failure() error {
	if err := p.src.Err(); p.final && err != io.EOF {
		return err
	}
	return nil
}

// parseRecord parses the fields of one record.
//
// Grammar:
//
//	Record = Field { Delimiter Field } ( LineTerminator | EOF ) ;
func (p *Parser) parseRecord() (*fastparser.ByteRecord, error) {
	for {
		if err := p.parseField(); err != nil {
			if err == errShort {
				return nil, err
			}
			return nil, p.fail(err)
		}
		if !p.hasToken {
			if p.short {
				return nil, errShort
			}
			if err := p.failure(); err != nil {
				p.fatal = err
				return nil, err
			}
			return p.emit(), nil
		}
		if p.current.Kind() == tokenizer.TokenDelimiter {
			p.advance()
			p.field++
			p.startField()
			continue
		}
		// parseField stops only at a delimiter, a terminator or the end.
		p.advance()
		p.line++
		return p.emit(), nil
	}
}

// parseField parses a single field and closes it.
//
// Grammar:
//
//	Field = [ Space ] ( QuotedField [ Space ] | UnquotedField ) ;
func (p *Parser) parseField() error {
	if p.trim {
		p.skipSpace()
	}
	if p.hasToken && p.current.Kind() == tokenizer.TokenQuote {
		p.advance()
		p.quoted = true
		p.inQuotes = true
		if err := p.parseQuotedField(); err != nil {
			return err
		}
		p.inQuotes = false
		if err := p.afterQuote(); err != nil {
			return err
		}
	} else if err := p.parseUnquotedField(); err != nil {
		return err
	}
	p.endField()
	return nil
}

// parseQuotedField consumes quoted content up to and including the closing
// quote.
//
// Grammar:
//
//	QuotedField = Quote { QuotedChar | Quote Quote | Escape ( Quote | Escape ) } Quote ;
func (p *Parser) parseQuotedField() error {
	for {
		if !p.hasToken {
			if p.short {
				return errShort
			}
			return fastparser.ErrUnterminatedQuote
		}

		switch p.current.Kind() {
		case tokenizer.TokenQuote:
			p.advance()
			if p.short {
				return errShort
			}
			if p.cfg.Escape == p.cfg.Quote && p.hasToken && p.current.Kind() == tokenizer.TokenQuote {
				// Escaped quote - add single quote to value
				if err := p.appendByte(p.cfg.Quote); err != nil {
					return err
				}
				p.advance()
				continue
			}
			// Closing quote - we're done
			return nil

		case tokenizer.TokenEscape:
			p.advance()
			if p.short {
				return errShort
			}
			if p.hasToken {
				if k := p.current.Kind(); k == tokenizer.TokenQuote || k == tokenizer.TokenEscape {
					if err := p.appendByte(p.val[0]); err != nil {
						return err
					}
					p.advance()
					continue
				}
			}
			if err := p.appendByte(p.cfg.Escape); err != nil {
				return err
			}

		default:
			// Content, delimiters and terminators are all literal here
			if err := p.appendData(p.val); err != nil {
				return err
			}
			p.line += strings.Count(p.val, p.newline)
			p.advance()
		}
	}
}

// parseUnquotedField consumes everything up to the next delimiter or
// terminator. Quote and escape bytes are literal.
func (p *Parser) parseUnquotedField() error {
	for p.hasToken {
		switch p.current.Kind() {
		case tokenizer.TokenDelimiter, tokenizer.TokenNewline:
			return nil
		}
		if err := p.appendData(p.val); err != nil {
			return err
		}
		p.advance()
	}
	return nil
}

func (p *Parser) afterQuote() error {
	if p.trim {
		p.skipSpace()
	}
	if !p.hasToken {
		return nil
	}
	switch p.current.Kind() {
	case tokenizer.TokenDelimiter, tokenizer.TokenNewline:
		return nil
	}
	return fastparser.ErrDataAfterQuote
}

// Helper methods

// next loads the next token. A token that starts inside the held back tail
// of a partial window is withheld and sets short.
func (p *Parser) next() {
	p.short = false
	token, ok := p.tokenizer.NextToken()
	if ok && (p.final || p.tokEnd < p.limit) {
		p.current = token
		p.val = tokenizer.Narrow(token.ValueString())
		p.tokEnd += len(p.val)
		p.hasToken = true
		return
	}
	p.current = nil
	p.val = ""
	p.hasToken = false
	p.short = !p.final
}

// consume drops n bytes of the current token, loading the next token once it
// is used up.
func (p *Parser) consume(n int) {
	p.offset += int64(n)
	p.val = p.val[n:]
	if p.val == "" {
		p.next()
	}
}

// advance moves past the rest of the current token.
func (p *Parser) advance() {
	p.consume(len(p.val))
}

// skipSpace consumes whitespace at the front of field tokens.
func (p *Parser) skipSpace() {
	for p.hasToken && p.current.Kind() == tokenizer.TokenField {
		n := 0
		for n < len(p.val) && p.cfg.IsSpace(p.val[n]) {
			n++
		}
		if n == 0 {
			return
		}
		p.consume(n)
	}
}

// skipLine discards input up to and including the next terminator.
func (p *Parser) skipLine() error {
	for p.hasToken {
		if p.current.Kind() == tokenizer.TokenNewline {
			p.advance()
			p.line++
			return nil
		}
		p.advance()
	}
	if p.short {
		return errShort
	}
	return nil
}

func (p *Parser) beginRecord() {
	p.data = p.data[:0]
	p.spans = p.spans[:0]
	p.record++
	p.field = 0
	p.recLine = p.line
	p.recOffset = p.offset
	p.startField()
}

func (p *Parser) startField() {
	p.fieldStart = len(p.data)
	p.quoted = false
}

func (p *Parser) appendData(s string) error {
	if p.cfg.MaxFieldSize > 0 && len(p.data)-p.fieldStart+len(s) > p.cfg.MaxFieldSize {
		return fastparser.ErrFieldTooLarge
	}
	p.data = append(p.data, s...)
	return nil
}

func (p *Parser) appendByte(c byte) error {
	if p.cfg.MaxFieldSize > 0 && len(p.data)-p.fieldStart+1 > p.cfg.MaxFieldSize {
		return fastparser.ErrFieldTooLarge
	}
	p.data = append(p.data, c)
	return nil
}

// endField closes the current field, applying the trim mode.
func (p *Parser) endField() {
	start, end := p.fieldStart, len(p.data)
	if p.trim && (!p.quoted || p.cfg.Trim == fastparser.TrimInsideQuotes) {
		for start < end && p.cfg.IsSpace(p.data[start]) {
			start++
		}
		for end > start && p.cfg.IsSpace(p.data[end-1]) {
			end--
		}
	}
	p.spans = append(p.spans, fastparser.Span{Offset: start, Len: end - start})
}

func (p *Parser) emit() *fastparser.ByteRecord {
	rec := fastparser.NewByteRecord(p.data, p.spans)
	rec.Number = p.record
	rec.Line = p.recLine
	rec.Offset = p.recOffset
	return rec
}

// fail records a syntax error. A read failure takes precedence, since the
// token stream ends early when the reader fails.
func (p *Parser) fail(err error) error {
	if ioErr := p.failure(); ioErr != nil {
		p.fatal = ioErr
		return ioErr
	}
	raw := p.data[p.fieldStart:]
	if len(raw) > fastparser.MaxDiagnosticBytes {
		raw = raw[:fastparser.MaxDiagnosticBytes]
	}
	p.err = &fastparser.SyntaxError{
		Record: p.record,
		Field:  p.field,
		Line:   p.line,
		Offset: p.offset,
		Raw:    append([]byte(nil), raw...),
		Err:    err,
	}
	return p.err
}
