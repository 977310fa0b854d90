package fastparser

import (
	"bytes"
	"io"

	"github.com/shapestone/shape-csv/v2/internal/stream"
)

// Tokenizer produces one record per call from a byte stream. Both the
// byte-level Machine and the general parser in internal/parser implement it.
type Tokenizer interface {
	// NextRecord returns the next record or io.EOF. The record and its field
	// bytes are only valid until the next call.
	NextRecord() (*ByteRecord, error)
	// Recover discards the remainder of the malformed line so the next call
	// to NextRecord resumes at the following record.
	Recover()
	// Cursor reports the current position.
	Cursor() Cursor
	// Close releases pooled buffers.
	Close()
}

// Mode selects the scanning strategy of a Machine.
type Mode uint8

const (
	// ModeFlexible classifies bytes through a per-dialect table and supports
	// any single-byte delimiter, quote and escape, comments and trimming.
	ModeFlexible Mode = iota
	// ModeFast scans unquoted runs 8 bytes at a time. The dialect must use
	// the quote as escape.
	ModeFast
)

// Cursor is the tokenizer's resumable position. It records everything needed
// to continue after a buffer refill, including whether the machine is inside a
// quoted field.
type Cursor struct {
	state state

	// Record is the 1-based number of the current or last record.
	Record int
	// Line is the 1-based line of the next unread byte.
	Line int
	// Field is the 0-based index of the current field.
	Field int
	// Offset is the number of input bytes consumed.
	Offset int64

	fieldStart int
	quoted     bool
}

// State returns the name of the current state.
func (c Cursor) State() string {
	return c.state.String()
}

// ExternalCursor builds the Cursor of a tokenizer implemented outside this
// package.
func ExternalCursor(record, line, field int, offset int64, inQuotes, failed bool) Cursor {
	c := Cursor{Record: record, Line: line, Field: field, Offset: offset, quoted: inQuotes}
	switch {
	case failed:
		c.state = stateError
	case inQuotes:
		c.state = stateQuoted
	case field > 0:
		c.state = stateFieldStart
	}
	return c
}

// InQuotes reports whether the machine stopped inside a quoted field.
func (c Cursor) InQuotes() bool {
	return c.state == stateQuoted || c.state == stateQuoteSeen || c.state == stateEscapeSeen
}

// Machine is the byte tokenizer for single-byte delimiters.
type Machine struct {
	src   *stream.Source
	cfg   Config
	fast  bool
	table *classTable
	swar  swarScanner

	delim    byte
	newline  [1]byte
	trim     bool
	comments bool

	cur   Cursor
	rec   ByteRecord
	err   error // syntax error held while in stateError
	fatal error // read failure, never recovered
}

// New returns a Machine reading from src. ModeFast requires cfg.Escape ==
// cfg.Quote; other dialects silently use the flexible scanner.
func New(src *stream.Source, cfg Config, mode Mode) *Machine {
	m := &Machine{
		src:      src,
		cfg:      cfg,
		table:    newClassTable(&cfg),
		delim:    cfg.Delimiter[0],
		newline:  [1]byte{cfg.newlineByte()},
		trim:     cfg.Trim != TrimNone,
		comments: cfg.Comment != 0,
		cur:      Cursor{Line: 1},
	}
	if mode == ModeFast && cfg.Escape == cfg.Quote {
		m.fast = true
		m.swar = newSWARScanner(&cfg)
	}
	m.rec.data = getBuffer()
	m.rec.spans = getSpans()
	return m
}

// Fast reports whether the machine uses the SWAR scanner.
func (m *Machine) Fast() bool {
	return m.fast
}

// Cursor returns the current position.
func (m *Machine) Cursor() Cursor {
	c := m.cur
	c.Offset = m.src.Offset()
	return c
}

// Close returns the machine's buffers to their pools.
func (m *Machine) Close() {
	if m.rec.data != nil {
		putBuffer(m.rec.data)
		putSpans(m.rec.spans)
		m.rec.data, m.rec.spans = nil, nil
	}
	m.src.Release()
}

// NextRecord implements Tokenizer.
func (m *Machine) NextRecord() (*ByteRecord, error) {
	if m.fatal != nil {
		return nil, m.fatal
	}
	if m.cur.state == stateError {
		return nil, m.err
	}
	for {
		win := m.src.Window()
		if len(win) == 0 {
			if _, err := m.src.Fill(); err != nil {
				if err != io.EOF {
					m.fatal = err
					return nil, err
				}
				return m.finishAtEOF()
			}
			continue
		}

		var (
			emit bool
			err  error
		)
		switch m.cur.state {
		case stateLineStart:
			emit = m.lineStart(win)
		case stateSkipLine:
			m.skipLine(win)
		case stateFieldStart:
			m.fieldStart(win)
		case stateUnquoted:
			emit, err = m.unquoted(win)
		case stateQuoted:
			err = m.quoted(win)
		case stateQuoteSeen:
			err = m.quoteSeen(win)
		case stateEscapeSeen:
			err = m.escapeSeen(win)
		case stateAfterQuote:
			emit, err = m.afterQuote(win)
		}
		if err != nil {
			return nil, m.fail(err)
		}
		if emit {
			return &m.rec, nil
		}
	}
}

// Recover implements Tokenizer.
func (m *Machine) Recover() {
	if m.cur.state != stateError {
		return
	}
	m.err = nil
	if m.src.Exhausted() {
		m.cur.state = stateLineStart
		return
	}
	m.cur.state = stateSkipLine
}

func (m *Machine) lineStart(win []byte) bool {
	c := win[0]
	if m.comments && c == m.cfg.Comment {
		m.cur.state = stateSkipLine
		return false
	}
	if m.table[c]&classLineEnd != 0 {
		if n := m.lineEnd(); n > 0 {
			if m.cfg.IgnoreBlankLines {
				m.src.Advance(n)
				m.cur.Line++
				return false
			}
			m.beginRecord()
			m.endField()
			m.src.Advance(n)
			m.cur.Line++
			m.cur.state = stateLineStart
			return true
		}
	}
	m.beginRecord()
	return false
}

func (m *Machine) skipLine(win []byte) {
	for i, c := range win {
		if m.table[c]&classLineEnd == 0 {
			continue
		}
		m.src.Advance(i)
		if n := m.lineEnd(); n > 0 {
			m.src.Advance(n)
			m.cur.Line++
			m.cur.state = stateLineStart
			return
		}
		m.src.Advance(1)
		return
	}
	m.src.Advance(len(win))
}

func (m *Machine) fieldStart(win []byte) {
	if m.trim {
		n := m.table.skipSpace(win)
		if n > 0 {
			m.src.Advance(n)
			if n == len(win) {
				return
			}
			win = win[n:]
		}
	}
	if win[0] == m.cfg.Quote {
		m.src.Advance(1)
		m.cur.quoted = true
		m.cur.state = stateQuoted
		return
	}
	m.cur.state = stateUnquoted
}

func (m *Machine) unquoted(win []byte) (bool, error) {
	n := m.scanPlain(win)
	if n > 0 {
		if err := m.appendData(win[:n]); err != nil {
			return false, err
		}
		m.src.Advance(n)
	}
	if n == len(win) {
		return false, nil
	}
	c := win[n]
	if c == m.delim {
		m.src.Advance(1)
		m.endField()
		m.nextField()
		return false, nil
	}
	if t := m.lineEnd(); t > 0 {
		m.src.Advance(t)
		m.endField()
		m.cur.Line++
		m.cur.state = stateLineStart
		return true, nil
	}
	// A CR or LF that does not terminate records in this line-ending mode.
	// lineEnd may have compacted the buffer, so win is stale here.
	if err := m.appendByte(c); err != nil {
		return false, err
	}
	m.src.Advance(1)
	return false, nil
}

func (m *Machine) quoted(win []byte) error {
	n := m.scanQuoted(win)
	if n > 0 {
		if err := m.appendData(win[:n]); err != nil {
			return err
		}
		m.cur.Line += bytes.Count(win[:n], m.newline[:])
		m.src.Advance(n)
	}
	if n == len(win) {
		return nil
	}
	m.src.Advance(1)
	if win[n] == m.cfg.Quote {
		m.cur.state = stateQuoteSeen
	} else {
		m.cur.state = stateEscapeSeen
	}
	return nil
}

func (m *Machine) quoteSeen(win []byte) error {
	if m.cfg.Escape == m.cfg.Quote && win[0] == m.cfg.Quote {
		if err := m.appendData(win[:1]); err != nil {
			return err
		}
		m.src.Advance(1)
		m.cur.state = stateQuoted
		return nil
	}
	m.cur.state = stateAfterQuote
	return nil
}

func (m *Machine) escapeSeen(win []byte) error {
	c := win[0]
	if c == m.cfg.Quote || c == m.cfg.Escape {
		if err := m.appendData(win[:1]); err != nil {
			return err
		}
		m.src.Advance(1)
	} else if err := m.appendByte(m.cfg.Escape); err != nil {
		return err
	}
	m.cur.state = stateQuoted
	return nil
}

func (m *Machine) afterQuote(win []byte) (bool, error) {
	if m.trim {
		n := m.table.skipSpace(win)
		if n > 0 {
			m.src.Advance(n)
			if n == len(win) {
				return false, nil
			}
			win = win[n:]
		}
	}
	c := win[0]
	if c == m.delim {
		m.src.Advance(1)
		m.endField()
		m.nextField()
		return false, nil
	}
	if m.table[c]&classLineEnd != 0 {
		if t := m.lineEnd(); t > 0 {
			m.src.Advance(t)
			m.endField()
			m.cur.Line++
			m.cur.state = stateLineStart
			return true, nil
		}
	}
	return false, ErrDataAfterQuote
}

func (m *Machine) finishAtEOF() (*ByteRecord, error) {
	switch m.cur.state {
	case stateFieldStart, stateUnquoted, stateQuoteSeen, stateAfterQuote:
		m.endField()
		m.cur.state = stateLineStart
		return &m.rec, nil
	case stateQuoted, stateEscapeSeen:
		if m.cur.state == stateEscapeSeen {
			// A dangling escape is content of the unterminated field.
			_ = m.appendByte(m.cfg.Escape)
		}
		return nil, m.fail(ErrUnterminatedQuote)
	case stateError:
		return nil, m.err
	default:
		m.cur.state = stateLineStart
		return nil, io.EOF
	}
}

// lineEnd returns the length of the record terminator at the front of the
// window, reading one more byte when a CR might begin a CRLF pair.
func (m *Machine) lineEnd() int {
	n := m.cfg.LineEndLen(m.src.Window(), m.src.Err() != nil)
	if n >= 0 {
		return n
	}
	m.src.Ensure(2)
	return m.cfg.LineEndLen(m.src.Window(), true)
}

func (m *Machine) scanPlain(win []byte) int {
	if m.fast {
		return m.swar.scanPlain(win)
	}
	return m.table.scanPlain(win)
}

func (m *Machine) scanQuoted(win []byte) int {
	if m.fast {
		return m.swar.scanQuoted(win)
	}
	return m.table.scanQuoted(win)
}

func (m *Machine) beginRecord() {
	m.rec.reset()
	m.cur.Record++
	m.cur.Field = 0
	m.rec.Number = m.cur.Record
	m.rec.Line = m.cur.Line
	m.rec.Offset = m.src.Offset()
	m.startField()
}

func (m *Machine) startField() {
	m.cur.fieldStart = len(m.rec.data)
	m.cur.quoted = false
	m.cur.state = stateFieldStart
}

func (m *Machine) nextField() {
	m.cur.Field++
	m.startField()
}

// appendData adds content bytes to the current field, refusing to grow it
// past MaxFieldSize.
func (m *Machine) appendData(b []byte) error {
	if m.cfg.MaxFieldSize > 0 && m.rec.fieldLen(m.cur.fieldStart)+len(b) > m.cfg.MaxFieldSize {
		return ErrFieldTooLarge
	}
	m.rec.data = append(m.rec.data, b...)
	return nil
}

func (m *Machine) appendByte(c byte) error {
	if m.cfg.MaxFieldSize > 0 && m.rec.fieldLen(m.cur.fieldStart)+1 > m.cfg.MaxFieldSize {
		return ErrFieldTooLarge
	}
	m.rec.data = append(m.rec.data, c)
	return nil
}

// endField closes the current field, applying the trim mode.
func (m *Machine) endField() {
	start, end := m.cur.fieldStart, len(m.rec.data)
	if m.trim && (!m.cur.quoted || m.cfg.Trim == TrimInsideQuotes) {
		start, end = trimSpan(m.rec.data, start, end, m.table)
	}
	m.rec.appendSpan(start, end)
}

func (m *Machine) fail(err error) error {
	se := &SyntaxError{
		Record: m.cur.Record,
		Field:  m.cur.Field,
		Line:   m.cur.Line,
		Offset: m.src.Offset(),
		Raw:    truncate(m.rec.data[m.cur.fieldStart:]),
		Err:    err,
	}
	m.err = se
	m.cur.state = stateError
	return se
}

// trimSpan narrows [start, end) of data to exclude whitespace on both sides.
func trimSpan(data []byte, start, end int, t *classTable) (int, int) {
	for start < end && t[data[start]]&classSpace != 0 {
		start++
	}
	for end > start && t[data[end-1]]&classSpace != 0 {
		end--
	}
	return start, end
}
