package csv

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the serializable form of reader and writer options.
//
//	dialect:
//	  delimiter: ";"
//	  quote: "'"
//	  allow_comments: true
//	  comment: "#"
//	  line_ending: crlf
//	  trim: fields
//	policy:
//	  mode: collect
//	  max_errors: 100
//	buffer_size: 131072
//	quote: non_numeric
type Config struct {
	Dialect    Dialect     `mapstructure:"dialect"`
	Policy     ErrorPolicy `mapstructure:"policy"`
	BufferSize int         `mapstructure:"buffer_size"`
	Quote      QuotePolicy `mapstructure:"quote"`
}

// DefaultConfig returns the configuration matching DefaultReaderOptions and
// DefaultWriterOptions.
func DefaultConfig() Config {
	return Config{
		Dialect: DefaultDialect(),
		Policy:  DefaultErrorPolicy(),
		Quote:   QuoteWhenNeeded,
	}
}

// LoadConfig decodes a YAML document into a Config. Keys that are absent keep
// their defaults; unknown keys are an error. When the quote is set without an
// escape, the escape follows the quote.
func LoadConfig(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return DecodeConfig(raw)
}

// DecodeConfig decodes a generic map, as produced by YAML or JSON decoders,
// into a Config.
func DecodeConfig(raw map[string]any) (Config, error) {
	cfg := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(enumHook, byteHook),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if d, ok := raw["dialect"].(map[string]any); ok {
		_, hasQuote := d["quote"]
		_, hasEscape := d["escape"]
		if hasQuote && !hasEscape {
			cfg.Dialect.Escape = cfg.Dialect.Quote
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the dialect, policy and writer settings.
func (c Config) Validate() error {
	if err := c.ReaderOptions().Validate(); err != nil {
		return err
	}
	return c.WriterOptions().Validate()
}

// ReaderOptions returns reader options for c.
func (c Config) ReaderOptions() ReaderOptions {
	return ReaderOptions{
		Dialect:     c.Dialect,
		ErrorPolicy: c.Policy,
		BufferSize:  c.BufferSize,
	}
}

// WriterOptions returns writer options for c.
func (c Config) WriterOptions() WriterOptions {
	return WriterOptions{
		Dialect:    c.Dialect,
		Quote:      c.Quote,
		BufferSize: c.BufferSize,
	}
}

var (
	lineEndingType  = reflect.TypeOf(LineEnding(0))
	trimModeType    = reflect.TypeOf(TrimMode(0))
	policyModeType  = reflect.TypeOf(PolicyMode(0))
	quotePolicyType = reflect.TypeOf(QuotePolicy(0))
	byteType        = reflect.TypeOf(byte(0))
)

var enumNames = map[reflect.Type]map[string]any{
	lineEndingType: {
		"auto": LineEndingAuto,
		"lf":   LineEndingLF,
		"crlf": LineEndingCRLF,
		"cr":   LineEndingCR,
	},
	trimModeType: {
		"none":         TrimNone,
		"fields":       TrimFields,
		"insidequotes": TrimInsideQuotes,
	},
	policyModeType: {
		"throw":   PolicyThrow,
		"collect": PolicyCollect,
		"skip":    PolicySkip,
	},
	quotePolicyType: {
		"whenneeded": QuoteWhenNeeded,
		"always":     QuoteAlways,
		"nonnumeric": QuoteNonNumeric,
		"never":      QuoteNever,
	},
}

// enumHook decodes enum names such as "crlf" or "non_numeric". Case, '_' and
// '-' are ignored.
func enumHook(from, to reflect.Type, data any) (any, error) {
	names, ok := enumNames[to]
	if !ok || from.Kind() != reflect.String {
		return data, nil
	}
	key := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(data.(string)))
	v, ok := names[key]
	if !ok {
		return nil, fmt.Errorf("unknown %s %q", to.Name(), data)
	}
	return v, nil
}

// byteHook decodes one-character strings into syntax bytes.
func byteHook(from, to reflect.Type, data any) (any, error) {
	if to != byteType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	if len(s) != 1 {
		return nil, fmt.Errorf("expected a single ASCII character, got %q", s)
	}
	return s[0], nil
}
