package tokenizer

import (
	"unicode/utf8"

	"github.com/shapestone/shape-core/pkg/tokenizer"

	"github.com/shapestone/shape-csv/v2/internal/fastparser"
)

// NewTokenizer creates a tokenizer for the RFC 4180 configuration.
func NewTokenizer() tokenizer.Tokenizer {
	return NewTokenizerWithConfig(fastparser.DefaultConfig())
}

// NewTokenizerWithConfig creates a tokenizer for cfg. Its input must be
// widened text (see Widen), and token values are narrowed back with Narrow.
//
// Matchers are tried in order and the first match wins:
// 1. Record terminators for the line-ending mode (CRLF before CR and LF)
// 2. The delimiter sequence
// 3. Quote, then escape when it differs from the quote
// 4. A run of bytes that cannot start any structural token
// 5. A single character, for bytes that start a structural token but did
//    not complete it (a lone CR in LF mode, the first byte of a partial
//    multi-byte delimiter)
func NewTokenizerWithConfig(cfg fastparser.Config) tokenizer.Tokenizer {
	matchers := newlineMatchers(cfg.LineEnding)
	matchers = append(matchers,
		tokenizer.StringMatcherFunc(TokenDelimiter, Widen([]byte(cfg.Delimiter))),
		tokenizer.StringMatcherFunc(TokenQuote, string(rune(cfg.Quote))),
	)
	if cfg.Escape != cfg.Quote {
		matchers = append(matchers, tokenizer.StringMatcherFunc(TokenEscape, string(rune(cfg.Escape))))
	}
	matchers = append(matchers,
		FieldContentMatcher(cfg),
		SingleCharMatcher(),
	)
	return tokenizer.NewTokenizerWithoutWhitespace(matchers...)
}

// Widen maps every byte of b to the rune of the same value. Shape streams
// decode UTF-8, so widening lets arbitrary bytes (Latin-1, partial runes)
// reach the matchers one character per byte.
func Widen(b []byte) string {
	high := 0
	for _, c := range b {
		if c >= utf8.RuneSelf {
			high++
		}
	}
	if high == 0 {
		return string(b)
	}
	out := make([]byte, 0, len(b)+high)
	for _, c := range b {
		if c < utf8.RuneSelf {
			out = append(out, c)
			continue
		}
		out = append(out, 0xC0|c>>6, 0x80|c&0x3F)
	}
	return string(out)
}

// Narrow reverses Widen.
func Narrow(s string) string {
	i := 0
	for i < len(s) && s[i] < utf8.RuneSelf {
		i++
	}
	if i == len(s) {
		return s
	}
	out := make([]byte, i, len(s))
	copy(out, s[:i])
	for _, r := range s[i:] {
		out = append(out, byte(r))
	}
	return string(out)
}

// wideLead returns the first byte of the widened encoding of c.
func wideLead(c byte) byte {
	if c < utf8.RuneSelf {
		return c
	}
	return 0xC0 | c>>6
}

func newlineMatchers(mode fastparser.LineEnding) []tokenizer.Matcher {
	switch mode {
	case fastparser.LineEndingLF:
		return []tokenizer.Matcher{tokenizer.StringMatcherFunc(TokenNewline, "\n")}
	case fastparser.LineEndingCRLF:
		return []tokenizer.Matcher{tokenizer.StringMatcherFunc(TokenNewline, "\r\n")}
	case fastparser.LineEndingCR:
		return []tokenizer.Matcher{tokenizer.StringMatcherFunc(TokenNewline, "\r")}
	default:
		return []tokenizer.Matcher{
			tokenizer.StringMatcherFunc(TokenNewline, "\r\n"),
			tokenizer.StringMatcherFunc(TokenNewline, "\n"),
			tokenizer.StringMatcherFunc(TokenNewline, "\r"),
		}
	}
}

// stopSet marks the widened lead bytes that may begin a structural token.
type stopSet [256]bool

func newStopSet(cfg fastparser.Config) *stopSet {
	var s stopSet
	s['\r'] = true
	s['\n'] = true
	s[wideLead(cfg.Quote)] = true
	s[wideLead(cfg.Escape)] = true
	if cfg.Delimiter != "" {
		s[wideLead(cfg.Delimiter[0])] = true
	}
	return &s
}

// FieldContentMatcher creates a matcher for field content under cfg.
//
// Grammar:
//
//	Field = Character+ ;
//	Character = <any character that cannot start a delimiter, quote, escape, CR or LF> ;
//
// With cfg.MaxFieldSize set a run ends after MaxFieldSize+1 characters, which
// is enough for the parser to reject the field without buffering the rest.
//
// Performance: Uses ByteStream for fast scanning when available.
func FieldContentMatcher(cfg fastparser.Config) tokenizer.Matcher {
	stop := newStopSet(cfg)
	limit := 0
	if cfg.MaxFieldSize > 0 {
		limit = cfg.MaxFieldSize + 1
	}
	return func(stream tokenizer.Stream) *tokenizer.Token {
		if byteStream, ok := stream.(tokenizer.ByteStream); ok {
			return fieldContentMatcherByte(byteStream, stop, limit)
		}
		return fieldContentMatcherRune(stream, stop, limit)
	}
}

// fieldContentMatcherByte uses ByteStream for optimal performance. Only lead
// bytes count toward limit, so a run never ends inside a character.
func fieldContentMatcherByte(stream tokenizer.ByteStream, stop *stopSet, limit int) *tokenizer.Token {
	startPos := stream.BytePosition()

	n := 0
	for {
		b, ok := stream.PeekByte()
		if !ok || stop[b] {
			break
		}
		if b&0xC0 != 0x80 {
			if limit > 0 && n == limit {
				break
			}
			n++
		}
		stream.NextByte()
	}

	if stream.BytePosition() == startPos {
		return nil
	}

	value := stream.SliceFrom(startPos)
	return tokenizer.NewToken(TokenField, []rune(string(value)))
}

// fieldContentMatcherRune is the fallback rune-based implementation. A rune
// stops the run when the first byte of its encoding is a stop byte.
func fieldContentMatcherRune(stream tokenizer.Stream, stop *stopSet, limit int) *tokenizer.Token {
	var (
		value []rune
		enc   [utf8.UTFMax]byte
	)

	for limit == 0 || len(value) < limit {
		r, ok := stream.PeekChar()
		if !ok {
			break
		}
		utf8.EncodeRune(enc[:], r)
		if stop[enc[0]] {
			break
		}
		stream.NextChar()
		value = append(value, r)
	}

	if len(value) == 0 {
		return nil
	}

	return tokenizer.NewToken(TokenField, value)
}

// SingleCharMatcher consumes exactly one character as field content.
func SingleCharMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		r, ok := stream.NextChar()
		if !ok {
			return nil
		}
		return tokenizer.NewToken(TokenField, []rune{r})
	}
}
