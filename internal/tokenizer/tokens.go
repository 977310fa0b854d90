// Package tokenizer provides delimited-text tokenization using Shape's
// tokenizer framework. It serves dialects the byte machine cannot, such as
// multi-byte or non-ASCII delimiters.
package tokenizer

// Token type constants for delimited text.
//
// Note: The tokenizer emits simple character-level tokens. The parser is
// responsible for interpreting quotes and determining field boundaries.
const (
	// Structural tokens
	TokenDelimiter = "Delimiter" // the configured delimiter sequence
	TokenQuote     = "Quote"     // the configured quote byte
	TokenEscape    = "Escape"    // the escape byte, only when it differs from the quote
	TokenNewline   = "Newline"   // a record terminator accepted by the line-ending mode

	// Field content token
	TokenField = "Field" // Field content (any run of non-structural bytes)
)
