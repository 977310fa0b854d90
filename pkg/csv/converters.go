package csv

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Converter transforms field bytes into typed values and back.
type Converter interface {
	// Parse converts a field. The bytes are only valid during the call.
	Parse(field []byte, d Dialect) (any, error)
	// Append formats v onto dst. A nil v appends nothing.
	Append(dst []byte, v any, d Dialect) ([]byte, error)
	// MaxLen bounds the bytes Append writes for v. 0 means unknown.
	MaxLen(v any) int
}

// ErrUnsupportedValue is returned by Append for a value of the wrong type.
var ErrUnsupportedValue = errors.New("unsupported value type")

func unsupported(conv string, v any) error {
	return fmt.Errorf("%w: %s converter cannot format %T", ErrUnsupportedValue, conv, v)
}

// IntConverter converts fields to int64.
type IntConverter struct {
	// Base is the numeric base for parsing (default: 10)
	Base int
}

// Parse implements Converter. An empty field parses as 0.
func (c IntConverter) Parse(field []byte, _ Dialect) (any, error) {
	if len(field) == 0 {
		return int64(0), nil
	}
	return strconv.ParseInt(string(field), c.base(), 64)
}

// Append implements Converter for all signed integer types.
func (c IntConverter) Append(dst []byte, v any, _ Dialect) ([]byte, error) {
	var n int64
	switch x := v.(type) {
	case nil:
		return dst, nil
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	default:
		return dst, unsupported("int", v)
	}
	return strconv.AppendInt(dst, n, c.base()), nil
}

// MaxLen implements Converter.
func (c IntConverter) MaxLen(any) int {
	return 65 // base 2 with sign
}

func (c IntConverter) base() int {
	if c.Base == 0 {
		return 10
	}
	return c.Base
}

// UintConverter converts fields to uint64.
type UintConverter struct{}

// Parse implements Converter. An empty field parses as 0.
func (UintConverter) Parse(field []byte, _ Dialect) (any, error) {
	if len(field) == 0 {
		return uint64(0), nil
	}
	return strconv.ParseUint(string(field), 10, 64)
}

// Append implements Converter for all unsigned integer types.
func (UintConverter) Append(dst []byte, v any, _ Dialect) ([]byte, error) {
	var n uint64
	switch x := v.(type) {
	case nil:
		return dst, nil
	case uint:
		n = uint64(x)
	case uint8:
		n = uint64(x)
	case uint16:
		n = uint64(x)
	case uint32:
		n = uint64(x)
	case uint64:
		n = x
	default:
		return dst, unsupported("uint", v)
	}
	return strconv.AppendUint(dst, n, 10), nil
}

// MaxLen implements Converter.
func (UintConverter) MaxLen(any) int {
	return 20
}

// FloatConverter converts fields to float64.
type FloatConverter struct{}

// Parse implements Converter. An empty field parses as 0.
func (FloatConverter) Parse(field []byte, _ Dialect) (any, error) {
	if len(field) == 0 {
		return float64(0), nil
	}
	return strconv.ParseFloat(string(field), 64)
}

// Append implements Converter using the shortest representation that reads
// back exactly.
func (FloatConverter) Append(dst []byte, v any, _ Dialect) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return dst, nil
	case float32:
		return strconv.AppendFloat(dst, float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.AppendFloat(dst, x, 'g', -1, 64), nil
	}
	return dst, unsupported("float", v)
}

// MaxLen implements Converter.
func (FloatConverter) MaxLen(any) int {
	return 32
}

// DecimalConverter converts fields to decimal.Decimal without loss of
// precision.
type DecimalConverter struct{}

// Parse implements Converter.
func (DecimalConverter) Parse(field []byte, _ Dialect) (any, error) {
	return decimal.NewFromString(string(field))
}

// Append implements Converter.
func (DecimalConverter) Append(dst []byte, v any, _ Dialect) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return dst, nil
	case decimal.Decimal:
		return append(dst, x.String()...), nil
	case *decimal.Decimal:
		if x == nil {
			return dst, nil
		}
		return append(dst, x.String()...), nil
	}
	return dst, unsupported("decimal", v)
}

// MaxLen implements Converter.
func (DecimalConverter) MaxLen(any) int {
	return 0
}

// BoolConverter converts fields to bool.
// Besides True and False it recognizes true/false, 1/0, yes/no, y/n, on/off
// and t/f.
type BoolConverter struct {
	// True and False are additional spellings. Append writes the first of
	// each when set.
	True  [][]byte
	False [][]byte
	// CaseSensitive disables case folding when matching.
	CaseSensitive bool
}

var (
	boolTrue  = [][]byte{[]byte("true"), []byte("1"), []byte("yes"), []byte("y"), []byte("on"), []byte("t")}
	boolFalse = [][]byte{[]byte("false"), []byte("0"), []byte("no"), []byte("n"), []byte("off"), []byte("f")}
)

// Parse implements Converter. An empty field parses as false.
func (c BoolConverter) Parse(field []byte, _ Dialect) (any, error) {
	if len(field) == 0 {
		return false, nil
	}
	switch {
	case c.match(field, c.True), c.match(field, boolTrue):
		return true, nil
	case c.match(field, c.False), c.match(field, boolFalse):
		return false, nil
	}
	return false, fmt.Errorf("cannot convert %q to bool", diagnostic(field))
}

func (c BoolConverter) match(field []byte, set [][]byte) bool {
	for _, s := range set {
		if c.CaseSensitive && bytes.Equal(field, s) || !c.CaseSensitive && bytes.EqualFold(field, s) {
			return true
		}
	}
	return false
}

// Append implements Converter.
func (c BoolConverter) Append(dst []byte, v any, _ Dialect) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return dst, nil
	case bool:
		if x {
			return append(dst, c.spelling(c.True, "true")...), nil
		}
		return append(dst, c.spelling(c.False, "false")...), nil
	}
	return dst, unsupported("bool", v)
}

func (c BoolConverter) spelling(set [][]byte, fallback string) []byte {
	if len(set) > 0 {
		return set[0]
	}
	return []byte(fallback)
}

// MaxLen implements Converter.
func (c BoolConverter) MaxLen(v any) int {
	n := len("false")
	for _, s := range [][][]byte{c.True, c.False} {
		if len(s) > 0 && len(s[0]) > n {
			n = len(s[0])
		}
	}
	return n
}

// TimeConverter converts fields to time.Time.
type TimeConverter struct {
	// Layout is the time layout (default: time.RFC3339Nano)
	Layout string
	// Location is the timezone for layouts without one (default: UTC)
	Location *time.Location
}

// Parse implements Converter. An empty field parses as the zero time.
func (c TimeConverter) Parse(field []byte, _ Dialect) (any, error) {
	if len(field) == 0 {
		return time.Time{}, nil
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(c.layout(), string(field), loc)
}

// Append implements Converter.
func (c TimeConverter) Append(dst []byte, v any, _ Dialect) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return dst, nil
	case time.Time:
		return x.AppendFormat(dst, c.layout()), nil
	case *time.Time:
		if x == nil {
			return dst, nil
		}
		return x.AppendFormat(dst, c.layout()), nil
	}
	return dst, unsupported("time", v)
}

// MaxLen implements Converter.
func (c TimeConverter) MaxLen(any) int {
	// Names of months, weekdays and zones are longer than their layout tokens.
	return 2*len(c.layout()) + 16
}

func (c TimeConverter) layout() string {
	if c.Layout == "" {
		return time.RFC3339Nano
	}
	return c.Layout
}

// UUIDConverter converts fields to uuid.UUID.
type UUIDConverter struct{}

// Parse implements Converter.
func (UUIDConverter) Parse(field []byte, _ Dialect) (any, error) {
	return uuid.ParseBytes(field)
}

// Append implements Converter.
func (UUIDConverter) Append(dst []byte, v any, _ Dialect) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return dst, nil
	case uuid.UUID:
		return append(dst, x.String()...), nil
	case uuid.NullUUID:
		if !x.Valid {
			return dst, nil
		}
		return append(dst, x.UUID.String()...), nil
	}
	return dst, unsupported("uuid", v)
}

// MaxLen implements Converter.
func (UUIDConverter) MaxLen(any) int {
	return 36
}

// BytesConverter passes raw bytes through. Parse returns a copy.
type BytesConverter struct{}

// Parse implements Converter.
func (BytesConverter) Parse(field []byte, _ Dialect) (any, error) {
	return append([]byte{}, field...), nil
}

// Append implements Converter.
func (BytesConverter) Append(dst []byte, v any, _ Dialect) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return dst, nil
	case []byte:
		return append(dst, x...), nil
	case string:
		return append(dst, x...), nil
	}
	return dst, unsupported("bytes", v)
}

// MaxLen implements Converter.
func (BytesConverter) MaxLen(v any) int {
	return textLen(v)
}

// TextConverter converts fields to string.
type TextConverter struct{}

// Parse implements Converter.
func (TextConverter) Parse(field []byte, _ Dialect) (any, error) {
	return string(field), nil
}

// Append implements Converter. fmt.Stringer values are formatted with String.
func (TextConverter) Append(dst []byte, v any, _ Dialect) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return dst, nil
	case string:
		return append(dst, x...), nil
	case []byte:
		return append(dst, x...), nil
	case fmt.Stringer:
		return append(dst, x.String()...), nil
	}
	return dst, unsupported("text", v)
}

// MaxLen implements Converter.
func (TextConverter) MaxLen(v any) int {
	return textLen(v)
}

func textLen(v any) int {
	switch x := v.(type) {
	case string:
		return len(x)
	case []byte:
		return len(x)
	}
	return 0
}

// DefaultNullValues is a list of values commonly used for null.
var DefaultNullValues = []string{"", "NULL", "null", "nil", "N/A", "n/a", "NA", "na", "-"}

// NullSet is a set of sentinel byte sequences read as a null value.
type NullSet [][]byte

// NewNullSet builds a NullSet from strings.
func NewNullSet(values ...string) NullSet {
	s := make(NullSet, len(values))
	for i, v := range values {
		s[i] = []byte(v)
	}
	return s
}

// DefaultNulls is DefaultNullValues as a NullSet.
var DefaultNulls = NewNullSet(DefaultNullValues...)

// Contains reports whether field is one of the sentinels.
func (s NullSet) Contains(field []byte) bool {
	for _, n := range s {
		if bytes.Equal(field, n) {
			return true
		}
	}
	return false
}

// WithNulls wraps conv so that sentinel fields parse as nil and nil values
// format as the first sentinel.
func WithNulls(conv Converter, nulls NullSet) Converter {
	return nullable{conv: conv, nulls: nulls}
}

type nullable struct {
	conv  Converter
	nulls NullSet
}

func (n nullable) Parse(field []byte, d Dialect) (any, error) {
	if n.nulls.Contains(field) {
		return nil, nil
	}
	return n.conv.Parse(field, d)
}

func (n nullable) Append(dst []byte, v any, d Dialect) ([]byte, error) {
	if v == nil {
		if len(n.nulls) > 0 {
			return append(dst, n.nulls[0]...), nil
		}
		return dst, nil
	}
	return n.conv.Append(dst, v, d)
}

func (n nullable) MaxLen(v any) int {
	if v == nil {
		if len(n.nulls) > 0 {
			return len(n.nulls[0])
		}
		return 0
	}
	return n.conv.MaxLen(v)
}

// ErrConverterExists is returned when a type tag is registered twice.
var ErrConverterExists = errors.New("converter already registered")

// Registry maps type tags to converters. Registrations are append-only and
// the registry is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]Converter
}

// NewRegistry creates a registry with the built-in converters:
// int, uint, float, decimal, bool, time (RFC 3339), date (2006-01-02), uuid,
// bytes and text.
func NewRegistry() *Registry {
	r := &Registry{converters: make(map[string]Converter)}
	// Register built-in converters
	r.converters["int"] = IntConverter{}
	r.converters["uint"] = UintConverter{}
	r.converters["float"] = FloatConverter{}
	r.converters["decimal"] = DecimalConverter{}
	r.converters["bool"] = BoolConverter{}
	r.converters["time"] = TimeConverter{}
	r.converters["date"] = TimeConverter{Layout: time.DateOnly}
	r.converters["uuid"] = UUIDConverter{}
	r.converters["bytes"] = BytesConverter{}
	r.converters["text"] = TextConverter{}
	return r
}

// Register adds a converter under tag. A tag can only be registered once.
func (r *Registry) Register(tag string, conv Converter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.converters[tag]; ok {
		return fmt.Errorf("%w: %q", ErrConverterExists, tag)
	}
	r.converters[tag] = conv
	return nil
}

// Lookup retrieves a converter by tag.
func (r *Registry) Lookup(tag string) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.converters[tag]
	return conv, ok
}

// Tags returns the registered tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.converters))
	for tag := range r.converters {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used when a Mapping is
// built without one.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a converter to the default registry.
func Register(tag string, conv Converter) error {
	return defaultRegistry.Register(tag, conv)
}

// converterTag names conv in errors raised outside a Mapping.
func converterTag(conv Converter) string {
	return fmt.Sprintf("%T", conv)
}
