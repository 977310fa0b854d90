//go:build go1.18
// +build go1.18

package parser

import (
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/shapestone/shape-csv/v2/internal/fastparser"
	"github.com/shapestone/shape-csv/v2/internal/stream"
)

// FuzzParser checks that the general parser agrees with the byte machine.
// Run with: go test -fuzz=FuzzParser -fuzztime=30s ./internal/parser
func FuzzParser(f *testing.F) {
	seeds := []string{
		"",
		"a",
		"a,b,c",
		"a,b\nc,d",
		"\"quoted\"",
		"\"with,comma\"",
		"\"with\"\"quote\"",
		"\"multi\nline\"",
		"\r\n",
		",,",
		"\"\"\"\"",
		"\"a\"x",
		"\"open",
		"\xe9,caf\xc3",
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		cfg := fastparser.DefaultConfig()
		want, wantErr := fastparser.ParseWithConfig([]byte(input), cfg, fastparser.ModeFlexible)
		got, err := fastparser.ReadAll(NewParserWithConfig(input, cfg))
		if (err == nil) != (wantErr == nil) {
			t.Fatalf("error = %v, machine error = %v", err, wantErr)
		}
		if err == nil && !reflect.DeepEqual(got, want) {
			t.Fatalf("parser = %q, machine = %q", got, want)
		}

		chunked := New(stream.NewSource(iotest.HalfReader(strings.NewReader(input)), 16), cfg)
		got, err = fastparser.ReadAll(chunked)
		if (err == nil) != (wantErr == nil) {
			t.Fatalf("chunked error = %v, machine error = %v", err, wantErr)
		}
		if err == nil && !reflect.DeepEqual(got, want) {
			t.Fatalf("chunked parser = %q, machine = %q", got, want)
		}
	})
}
