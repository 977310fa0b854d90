// Package fastparser implements the byte-level CSV tokenizer.
//
// The tokenizer is an explicit state machine over a buffered byte stream. All
// of its position, including whether it stopped inside a quoted field, lives in
// a Cursor, so a record may span any number of buffer refills.
//
// Two scanning strategies share the machine:
//   - ModeFast scans unquoted runs 8 bytes at a time for the common dialects
//     (comma, tab, semicolon or pipe delimiters with quote doubling).
//   - ModeFlexible classifies bytes through a per-dialect table and supports
//     any single-byte delimiter, quote and escape, comments and trimming.
//
// Both strategies produce identical records for every input.
package fastparser

import (
	"io"

	"github.com/shapestone/shape-csv/v2/internal/stream"
)

// Parse tokenizes data with the RFC 4180 configuration and returns copies of
// every record.
func Parse(data []byte) ([][]string, error) {
	return ParseWithConfig(data, DefaultConfig(), ModeFast)
}

// ParseWithConfig tokenizes an in-memory document. The first malformed record
// aborts parsing.
func ParseWithConfig(data []byte, cfg Config, mode Mode) ([][]string, error) {
	m := New(stream.NewBytesSource(data), cfg, mode)
	defer m.Close()
	return ReadAll(m)
}

// ReadAll drains t, copying each record.
func ReadAll(t Tokenizer) ([][]string, error) {
	records := make([][]string, 0, 16)

	// Track field count from the first record for pre-allocation.
	var capacityHint int
	for {
		rec, err := t.NextRecord()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		if capacityHint == 0 {
			capacityHint = rec.NumFields()
		}
		records = append(records, rec.AppendFields(make([]string, 0, capacityHint)))
	}
}
