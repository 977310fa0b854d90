package fastparser

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/shapestone/shape-csv/v2/internal/stream"
)

// parseStream tokenizes input read one byte at a time through a tiny buffer,
// so every state has to survive a refill.
func parseStream(input string, cfg Config, mode Mode) ([][]string, error) {
	src := stream.NewSource(iotest.OneByteReader(strings.NewReader(input)), 16)
	m := New(src, cfg, mode)
	defer m.Close()
	return ReadAll(m)
}

var modes = []struct {
	name string
	mode Mode
}{
	{"fast", ModeFast},
	{"flexible", ModeFlexible},
}

func TestMachine_BasicParsing(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{name: "empty input", input: "", want: [][]string{}},
		{name: "single field", input: "a", want: [][]string{{"a"}}},
		{name: "simple record", input: "a,b,c\n", want: [][]string{{"a", "b", "c"}}},
		{name: "quoted delimiter", input: "a,\"b,c\",d\n", want: [][]string{{"a", "b,c", "d"}}},
		{name: "doubled quote", input: "a,\"b\"\"c\",d\n", want: [][]string{{"a", `b"c`, "d"}}},
		{name: "CRLF records", input: "a,b\r\nc,d", want: [][]string{{"a", "b"}, {"c", "d"}}},
		{name: "CR records", input: "a,b\rc,d\r", want: [][]string{{"a", "b"}, {"c", "d"}}},
		{name: "blank lines skipped", input: "a\n\n\r\nb\n", want: [][]string{{"a"}, {"b"}}},
		{name: "trailing empty field", input: "a,\n", want: [][]string{{"a", ""}}},
		{name: "trailing empty field at EOF", input: "a,", want: [][]string{{"a", ""}}},
		{name: "all empty fields", input: ",,\n", want: [][]string{{"", "", ""}}},
		{name: "quoted newline", input: "\"x\ny\",z\n", want: [][]string{{"x\ny", "z"}}},
		{name: "quoted CRLF", input: "\"x\r\ny\"\r\n", want: [][]string{{"x\r\ny"}}},
		{name: "bare quote is data", input: "a\"b,c\n", want: [][]string{{`a"b`, "c"}}},
		{name: "empty quoted field", input: "\"\"\n", want: [][]string{{""}}},
		{name: "quoted field at EOF", input: "\"a\"", want: [][]string{{"a"}}},
		{name: "escaped quote at end", input: "\"a\"\"\"", want: [][]string{{`a"`}}},
		{name: "long unquoted run", input: "abcdefghijklmnopqrstuvwxyz,0123456789\n", want: [][]string{{"abcdefghijklmnopqrstuvwxyz", "0123456789"}}},
	}

	for _, tt := range tests {
		for _, m := range modes {
			t.Run(tt.name+"/"+m.name, func(t *testing.T) {
				got, err := ParseWithConfig([]byte(tt.input), DefaultConfig(), m.mode)
				if err != nil {
					t.Fatalf("ParseWithConfig() error = %v", err)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("ParseWithConfig() = %q, want %q", got, tt.want)
				}

				got, err = parseStream(tt.input, DefaultConfig(), m.mode)
				if err != nil {
					t.Fatalf("streamed parse error = %v", err)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("streamed parse = %q, want %q", got, tt.want)
				}
			})
		}
	}
}

func TestMachine_Errors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantErr    error
		wantRecord int
		wantField  int
	}{
		{name: "unterminated quote", input: "a,\"unterminated\n", wantErr: ErrUnterminatedQuote, wantRecord: 1, wantField: 1},
		{name: "data after closing quote", input: "\"a\"b,c\n", wantErr: ErrDataAfterQuote, wantRecord: 1, wantField: 0},
		{name: "error in second record", input: "ok\nx,\"y\"z\n", wantErr: ErrDataAfterQuote, wantRecord: 2, wantField: 1},
	}

	for _, tt := range tests {
		for _, m := range modes {
			t.Run(tt.name+"/"+m.name, func(t *testing.T) {
				_, err := parseStream(tt.input, DefaultConfig(), m.mode)
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				var se *SyntaxError
				if !errors.As(err, &se) {
					t.Fatalf("error %T is not a *SyntaxError", err)
				}
				if se.Record != tt.wantRecord || se.Field != tt.wantField {
					t.Errorf("error at record %d field %d, want record %d field %d",
						se.Record, se.Field, tt.wantRecord, tt.wantField)
				}
			})
		}
	}
}

func TestMachine_ErrorIsTerminalUntilRecover(t *testing.T) {
	input := "a,b\n\"x\"y,z\nc,d\n"
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			m := New(stream.NewBytesSource([]byte(input)), DefaultConfig(), mode.mode)
			defer m.Close()

			if _, err := m.NextRecord(); err != nil {
				t.Fatalf("first record: %v", err)
			}
			_, err := m.NextRecord()
			if !errors.Is(err, ErrDataAfterQuote) {
				t.Fatalf("second record error = %v", err)
			}
			if _, again := m.NextRecord(); again != err {
				t.Fatalf("error not sticky: got %v", again)
			}
			if m.Cursor().State() != "Error" {
				t.Errorf("state = %s, want Error", m.Cursor().State())
			}

			m.Recover()
			rec, err := m.NextRecord()
			if err != nil {
				t.Fatalf("after Recover: %v", err)
			}
			if got := rec.Fields(); !reflect.DeepEqual(got, []string{"c", "d"}) {
				t.Errorf("after Recover = %q", got)
			}
			if rec.Number != 3 {
				t.Errorf("record number = %d, want 3", rec.Number)
			}
			if _, err := m.NextRecord(); err != io.EOF {
				t.Errorf("want io.EOF, got %v", err)
			}
		})
	}
}

func TestMachine_MaxFieldSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFieldSize = 3

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "exactly max", input: "abc,d\n"},
		{name: "one over max", input: "abcd,e\n", wantErr: true},
		{name: "quoted exactly max", input: "\"a,c\"\n"},
		{name: "quoted escape counts once", input: "\"a\"\"c\"\n"},
		{name: "quoted over max", input: "\"ab\"\"c\"\n", wantErr: true},
		{name: "last field over max at EOF", input: "a,bcde", wantErr: true},
	}

	for _, tt := range tests {
		for _, m := range modes {
			t.Run(tt.name+"/"+m.name, func(t *testing.T) {
				_, err := parseStream(tt.input, cfg, m.mode)
				if tt.wantErr {
					if !errors.Is(err, ErrFieldTooLarge) {
						t.Fatalf("error = %v, want ErrFieldTooLarge", err)
					}
					return
				}
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			})
		}
	}
}

func TestMachine_LineEndings(t *testing.T) {
	tests := []struct {
		name  string
		mode  LineEnding
		input string
		want  [][]string
	}{
		{name: "auto mixed", mode: LineEndingAuto, input: "a\r\nb\nc\rd", want: [][]string{{"a"}, {"b"}, {"c"}, {"d"}}},
		{name: "LF keeps CR", mode: LineEndingLF, input: "a\rb\nc\n", want: [][]string{{"a\rb"}, {"c"}}},
		{name: "CRLF keeps bare bytes", mode: LineEndingCRLF, input: "a\nb\r\nc\rd\r\n", want: [][]string{{"a\nb"}, {"c\rd"}}},
		{name: "CRLF trailing CR at EOF", mode: LineEndingCRLF, input: "a\r", want: [][]string{{"a\r"}}},
		{name: "CR keeps LF", mode: LineEndingCR, input: "a\nb\rc\r", want: [][]string{{"a\nb"}, {"c"}}},
	}

	for _, tt := range tests {
		for _, m := range modes {
			t.Run(tt.name+"/"+m.name, func(t *testing.T) {
				cfg := DefaultConfig()
				cfg.LineEnding = tt.mode
				got, err := parseStream(tt.input, cfg, m.mode)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("got %q, want %q", got, tt.want)
				}
			})
		}
	}
}

func TestMachine_Trim(t *testing.T) {
	input := "  a  ,  \"  b  \"  , c \n"
	tests := []struct {
		name  string
		trim  TrimMode
		delim string
		input string
		want  [][]string
	}{
		{name: "none", trim: TrimNone, delim: ",", input: " a , b \n", want: [][]string{{" a ", " b "}}},
		{name: "fields", trim: TrimFields, delim: ",", input: input, want: [][]string{{"a", "  b  ", "c"}}},
		{name: "inside quotes", trim: TrimInsideQuotes, delim: ",", input: input, want: [][]string{{"a", "b", "c"}}},
		{name: "tab delimiter is not space", trim: TrimFields, delim: "\t", input: "a\t\tb\n", want: [][]string{{"a", "", "b"}}},
		{name: "spaces around tabs", trim: TrimFields, delim: "\t", input: "a \t b\n", want: [][]string{{"a", "b"}}},
	}

	for _, tt := range tests {
		for _, m := range modes {
			t.Run(tt.name+"/"+m.name, func(t *testing.T) {
				cfg := DefaultConfig()
				cfg.Trim = tt.trim
				cfg.Delimiter = tt.delim
				got, err := parseStream(tt.input, cfg, m.mode)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("got %q, want %q", got, tt.want)
				}
			})
		}
	}
}

func TestMachine_CommentsAndBlankLines(t *testing.T) {
	tests := []struct {
		name   string
		cfg    func(*Config)
		input  string
		want   [][]string
	}{
		{
			name:  "comment line skipped",
			cfg:   func(c *Config) { c.Comment = '#' },
			input: "#skip\na,b\n",
			want:  [][]string{{"a", "b"}},
		},
		{
			name:  "consecutive comments with CRLF",
			cfg:   func(c *Config) { c.Comment = '#' },
			input: "#c\r\n#d\na\n",
			want:  [][]string{{"a"}},
		},
		{
			name:  "comment byte inside a line is data",
			cfg:   func(c *Config) { c.Comment = '#' },
			input: "a#b,#c\n",
			want:  [][]string{{"a#b", "#c"}},
		},
		{
			name:  "comment without comments enabled",
			cfg:   func(c *Config) {},
			input: "#skip\n",
			want:  [][]string{{"#skip"}},
		},
		{
			name:  "blank lines kept",
			cfg:   func(c *Config) { c.IgnoreBlankLines = false },
			input: "a\n\nb\n",
			want:  [][]string{{"a"}, {""}, {"b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.cfg(&cfg)
			got, err := parseStream(tt.input, cfg, ModeFlexible)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMachine_EscapeCharacter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Escape = '\\'

	tests := []struct {
		name    string
		input   string
		want    [][]string
		wantErr error
	}{
		{name: "escaped quote", input: `"a\"b",c` + "\n", want: [][]string{{`a"b`, "c"}}},
		{name: "escaped escape", input: `"a\\b"` + "\n", want: [][]string{{`a\b`}}},
		{name: "escape before other byte", input: `"a\nb"` + "\n", want: [][]string{{`a\nb`}}},
		{name: "doubled quote is not an escape", input: `"a""b"` + "\n", wantErr: ErrDataAfterQuote},
		{name: "dangling escape", input: `"a\`, wantErr: ErrUnterminatedQuote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStream(tt.input, cfg, ModeFlexible)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMachine_RecordPositions(t *testing.T) {
	m := New(stream.NewBytesSource([]byte("a\n\"b\nc\"\n\nd\n")), DefaultConfig(), ModeFlexible)
	defer m.Close()

	wantLines := []int{1, 2, 5}
	for i, want := range wantLines {
		rec, err := m.NextRecord()
		if err != nil {
			t.Fatalf("record %d: %v", i+1, err)
		}
		if rec.Number != i+1 {
			t.Errorf("record %d: Number = %d", i+1, rec.Number)
		}
		if rec.Line != want {
			t.Errorf("record %d: Line = %d, want %d", i+1, rec.Line, want)
		}
	}
}

func TestMachine_CursorSurvivesReadFailure(t *testing.T) {
	// TimeoutReader fails the second Read, leaving the machine mid-quote.
	src := stream.NewSource(iotest.TimeoutReader(strings.NewReader("\"abc")), 16)
	m := New(src, DefaultConfig(), ModeFast)
	defer m.Close()

	_, err := m.NextRecord()
	if !errors.Is(err, iotest.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if !m.Cursor().InQuotes() {
		t.Errorf("cursor state = %s, want inside quotes", m.Cursor().State())
	}
	if _, again := m.NextRecord(); !errors.Is(again, iotest.ErrTimeout) {
		t.Errorf("read failure not sticky: %v", again)
	}
}

func TestMachine_FieldBytesAliasRecord(t *testing.T) {
	m := New(stream.NewBytesSource([]byte("ab,cd\n")), DefaultConfig(), ModeFast)
	defer m.Close()

	rec, err := m.NextRecord()
	if err != nil {
		t.Fatal(err)
	}
	if rec.NumFields() != 2 {
		t.Fatalf("NumFields = %d", rec.NumFields())
	}
	if got := string(rec.FieldBytes(1)); got != "cd" {
		t.Errorf("FieldBytes(1) = %q", got)
	}
	if rec.FieldBytes(2) != nil || rec.FieldBytes(-1) != nil {
		t.Error("out of range FieldBytes should be nil")
	}
	clone := rec.Clone()
	if got := clone.Field(0); got != "ab" {
		t.Errorf("clone Field(0) = %q", got)
	}
}
