package csv

import "fmt"

// Tier is the processing strategy chosen for a dialect. Tiers differ only in
// speed: every tier produces the same records for the same input.
type Tier uint8

const (
	// TierFast scans unquoted runs 8 bytes at a time. It serves the common
	// dialects: a comma, tab, semicolon or pipe delimiter and a double or
	// single quote escaped by doubling, without comments.
	TierFast Tier = iota
	// TierFlexible drives the byte machine through a per-dialect class table
	// and serves any single-byte ASCII dialect.
	TierFlexible
	// TierGeneral tokenizes buffered windows through Shape matchers and
	// serves everything else, including multi-byte and non-ASCII delimiters.
	TierGeneral
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierFast:
		return "fast"
	case TierFlexible:
		return "flexible"
	case TierGeneral:
		return "general"
	default:
		return fmt.Sprintf("Tier(%d)", t)
	}
}

// Features lists optional processing that constrains the tier.
type Features struct {
	// FieldHooks is set when a callback inspects individual fields.
	FieldHooks bool
	// RecordErrorCallbacks is set when ErrorPolicy.OnError is used.
	RecordErrorCallbacks bool
	// DynamicShape is set when records are consumed without a fixed shape,
	// as the Document codec does.
	DynamicShape bool
}

// ResolveTier returns the fastest tier able to process d with features f.
func ResolveTier(d Dialect, f Features) Tier {
	if f.DynamicShape || d.Trim == TrimInsideQuotes || !singleByteASCII(d.Delimiter) {
		return TierGeneral
	}
	if fastDelimiter(d.Delimiter[0]) &&
		(d.Quote == '"' || d.Quote == '\'') &&
		d.Escape == d.Quote &&
		!d.AllowComments &&
		!f.FieldHooks &&
		!f.RecordErrorCallbacks {
		return TierFast
	}
	return TierFlexible
}

func singleByteASCII(s string) bool {
	return len(s) == 1 && s[0] < 0x80
}

func fastDelimiter(c byte) bool {
	switch c {
	case ',', '\t', ';', '|':
		return true
	}
	return false
}
