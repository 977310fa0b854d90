package parser

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/shapestone/shape-csv/v2/internal/fastparser"
	"github.com/shapestone/shape-csv/v2/internal/stream"
)

// parseAll reads input one byte per Read so every token boundary is also a
// refill boundary.
func parseAll(input string, cfg fastparser.Config) ([][]string, error) {
	p := New(stream.NewSource(iotest.OneByteReader(strings.NewReader(input)), 16), cfg)
	defer p.Close()
	return fastparser.ReadAll(p)
}

// TestParser_MatchesMachine runs inputs through both the general parser and
// the byte machine and requires identical records.
func TestParser_MatchesMachine(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"a,b,c\n",
		"a,\"b,c\",d\n",
		"a,\"b\"\"c\",d\n",
		"a,b\r\nc,d",
		"a,b\rc,d\r",
		"a\n\n\r\nb\n",
		"a,",
		",,\n",
		"\"x\ny\",z\n",
		"a\"b,c\n",
		"\"\"\n",
		"\"a\"\"\"",
		"  a  ,  \"  b  \"  , c \n",
		"#not a comment\n",
		"caf\xc3\xa9,\xe9t\xe9\n",
		"\"\xff\"\"\",\x80\r\n",
	}
	configs := map[string]func(*fastparser.Config){
		"default":       func(c *fastparser.Config) {},
		"trim fields":   func(c *fastparser.Config) { c.Trim = fastparser.TrimFields },
		"trim quoted":   func(c *fastparser.Config) { c.Trim = fastparser.TrimInsideQuotes },
		"LF only":       func(c *fastparser.Config) { c.LineEnding = fastparser.LineEndingLF },
		"CRLF only":     func(c *fastparser.Config) { c.LineEnding = fastparser.LineEndingCRLF },
		"CR only":       func(c *fastparser.Config) { c.LineEnding = fastparser.LineEndingCR },
		"keep blank":    func(c *fastparser.Config) { c.IgnoreBlankLines = false },
		"comments":      func(c *fastparser.Config) { c.Comment = '#' },
		"escape":        func(c *fastparser.Config) { c.Escape = '\\' },
		"semicolon":     func(c *fastparser.Config) { c.Delimiter = ";" },
		"single quotes": func(c *fastparser.Config) { c.Quote, c.Escape = '\'', '\'' },
	}

	for name, apply := range configs {
		cfg := fastparser.DefaultConfig()
		apply(&cfg)
		for _, input := range inputs {
			t.Run(name+"/"+input, func(t *testing.T) {
				want, wantErr := fastparser.ParseWithConfig([]byte(input), cfg, fastparser.ModeFlexible)
				got, err := parseAll(input, cfg)
				if (err == nil) != (wantErr == nil) {
					t.Fatalf("error = %v, machine error = %v", err, wantErr)
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("parser = %q, machine = %q", got, want)
				}
			})
		}
	}
}

func TestParser_MultiByteDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		delim string
		input string
		want  [][]string
	}{
		{name: "double colon", delim: "::", input: "a::b::c\n", want: [][]string{{"a", "b", "c"}}},
		{name: "partial delimiter is data", delim: "::", input: "a:b::c\n", want: [][]string{{"a:b", "c"}}},
		{name: "quoted delimiter", delim: "::", input: "\"a::b\"::c\n", want: [][]string{{"a::b", "c"}}},
		{name: "non-ASCII delimiter", delim: "§", input: "x§y§\n", want: [][]string{{"x", "y", ""}}},
		{name: "tab pair", delim: "\t\t", input: "a\tb\t\tc", want: [][]string{{"a\tb", "c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fastparser.DefaultConfig()
			cfg.Delimiter = tt.delim
			got, err := parseAll(tt.input, cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantErr    error
		wantRecord int
		wantField  int
		wantLine   int
	}{
		{name: "unterminated quote", input: "a::\"open\nmore", wantErr: fastparser.ErrUnterminatedQuote, wantRecord: 1, wantField: 1, wantLine: 2},
		{name: "data after quote", input: "ok\n\"a\"b::c\n", wantErr: fastparser.ErrDataAfterQuote, wantRecord: 2, wantField: 0, wantLine: 2},
	}

	cfg := fastparser.DefaultConfig()
	cfg.Delimiter = "::"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAll(tt.input, cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var se *fastparser.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not a *SyntaxError", err)
			}
			if se.Record != tt.wantRecord || se.Field != tt.wantField || se.Line != tt.wantLine {
				t.Errorf("error at record %d field %d line %d, want %d/%d/%d",
					se.Record, se.Field, se.Line, tt.wantRecord, tt.wantField, tt.wantLine)
			}
		})
	}
}

func TestParser_MaxFieldSize(t *testing.T) {
	cfg := fastparser.DefaultConfig()
	cfg.Delimiter = "::"
	cfg.MaxFieldSize = 3

	if _, err := parseAll("abc::d\n", cfg); err != nil {
		t.Errorf("field of exactly max size: %v", err)
	}
	if _, err := parseAll("abcd::e\n", cfg); !errors.Is(err, fastparser.ErrFieldTooLarge) {
		t.Errorf("field over max size: error = %v", err)
	}
}

func TestParser_Recover(t *testing.T) {
	cfg := fastparser.DefaultConfig()
	cfg.Delimiter = "||"
	p := NewParserWithConfig("a||b\n\"x\"y||z\nc||d\n", cfg)
	defer p.Close()

	if _, err := p.NextRecord(); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if _, err := p.NextRecord(); !errors.Is(err, fastparser.ErrDataAfterQuote) {
		t.Fatalf("second record error = %v", err)
	}
	if p.Cursor().State() != "Error" {
		t.Errorf("cursor state = %s, want Error", p.Cursor().State())
	}

	p.Recover()
	rec, err := p.NextRecord()
	if err != nil {
		t.Fatalf("after Recover: %v", err)
	}
	if got := rec.Fields(); !reflect.DeepEqual(got, []string{"c", "d"}) {
		t.Errorf("after Recover = %q", got)
	}
	if rec.Number != 3 || rec.Line != 3 {
		t.Errorf("record %d on line %d, want 3 on 3", rec.Number, rec.Line)
	}
	if _, err := p.NextRecord(); err != io.EOF {
		t.Errorf("want io.EOF, got %v", err)
	}
}

func TestParser_ReadFailureIsFatal(t *testing.T) {
	p := New(stream.NewSource(iotest.ErrReader(iotest.ErrTimeout), 0), fastparser.DefaultConfig())
	defer p.Close()

	if _, err := p.NextRecord(); !errors.Is(err, iotest.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	p.Recover()
	if _, err := p.NextRecord(); !errors.Is(err, iotest.ErrTimeout) {
		t.Errorf("read failure not sticky: %v", err)
	}
}

func TestParser_Chunked(t *testing.T) {
	long := strings.Repeat("w\xc3\xb6rd ", 20000)
	tests := []struct {
		name  string
		delim string
		input string
		first []string
		count int
	}{
		{name: "runes across reads", delim: "::", input: strings.Repeat("h\xc3\xa9llo::w\xc3\xb6rld\n", 500), first: []string{"h\xc3\xa9llo", "w\xc3\xb6rld"}, count: 500},
		{name: "latin-1", delim: "::", input: "\xe9t\xe9::x\n\"\xe0\"::\xff\n", first: []string{"\xe9t\xe9", "x"}, count: 2},
		{name: "non-ASCII delimiter", delim: "§", input: "caf\xc3\xa9§\xc2\xa8§x\r\ny§z", first: []string{"caf\xc3\xa9", "\xc2\xa8", "x"}, count: 2},
		{name: "field over window", delim: "::", input: long + "::b\nc::d\n", first: []string{long, "b"}, count: 2},
		{name: "quoted field over window", delim: "::", input: "\"" + long + "\"\"\"::b\nc::d", first: []string{long + "\"", "b"}, count: 2},
	}

	readers := map[string]func(io.Reader) io.Reader{
		"one byte": iotest.OneByteReader,
		"half":     iotest.HalfReader,
		"data err": iotest.DataErrReader,
	}

	for _, tt := range tests {
		cfg := fastparser.DefaultConfig()
		cfg.Delimiter = tt.delim
		want, err := fastparser.ReadAll(NewParserWithConfig(tt.input, cfg))
		if err != nil {
			t.Fatalf("%s: in-memory error = %v", tt.name, err)
		}
		if len(want) != tt.count {
			t.Fatalf("%s: in-memory read %d records, want %d", tt.name, len(want), tt.count)
		}
		if !reflect.DeepEqual(want[0], tt.first) {
			t.Fatalf("%s: first record %.40q, want %.40q", tt.name, want[0], tt.first)
		}
		for name, wrap := range readers {
			if name == "one byte" && len(tt.input) > 1<<16 {
				continue
			}
			t.Run(tt.name+"/"+name, func(t *testing.T) {
				p := New(stream.NewSource(wrap(strings.NewReader(tt.input)), 64), cfg)
				defer p.Close()
				got, err := fastparser.ReadAll(p)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("chunked records differ from in-memory records (%d vs %d records)", len(got), len(want))
				}
			})
		}
	}
}

func TestParser_InMemoryMatchesMachine(t *testing.T) {
	cfg := fastparser.DefaultConfig()
	input := "\xe9t\xe9,x\n" + strings.Repeat("y", 70000) + ",z\n"
	want, err := fastparser.ParseWithConfig([]byte(input), cfg, fastparser.ModeFlexible)
	if err != nil {
		t.Fatalf("machine error = %v", err)
	}
	got, err := fastparser.ReadAll(NewParserWithConfig(input, cfg))
	if err != nil {
		t.Fatalf("parser error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parser and machine disagree on %d vs %d records", len(got), len(want))
	}
}

// repeatReader yields an endless run of one byte.
type repeatReader struct {
	b    byte
	read int
}

func (r *repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
	}
	r.read += len(p)
	return len(p), nil
}

func TestParser_MaxFieldSizeStreaming(t *testing.T) {
	cfg := fastparser.DefaultConfig()
	cfg.Delimiter = "::"
	cfg.MaxFieldSize = 16

	src := &repeatReader{b: 'x'}
	p := New(stream.NewSource(io.LimitReader(src, 32<<20), 0), cfg)
	defer p.Close()

	_, err := p.NextRecord()
	if !errors.Is(err, fastparser.ErrFieldTooLarge) {
		t.Fatalf("error = %v, want ErrFieldTooLarge", err)
	}
	if src.read > 1<<20 {
		t.Errorf("read %d bytes before rejecting the field", src.read)
	}
}
