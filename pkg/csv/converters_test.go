package csv

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestConverters_Parse(t *testing.T) {
	d := DefaultDialect()
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	tests := []struct {
		name    string
		conv    Converter
		field   string
		want    any
		wantErr bool
	}{
		{"int", IntConverter{}, "-42", int64(-42), false},
		{"int empty", IntConverter{}, "", int64(0), false},
		{"int hex", IntConverter{Base: 16}, "ff", int64(255), false},
		{"int invalid", IntConverter{}, "4x", nil, true},
		{"uint", UintConverter{}, "42", uint64(42), false},
		{"uint negative", UintConverter{}, "-1", nil, true},
		{"float", FloatConverter{}, "1.5e3", 1500.0, false},
		{"float empty", FloatConverter{}, "", 0.0, false},
		{"float invalid", FloatConverter{}, "abc", nil, true},
		{"bool yes", BoolConverter{}, "YES", true, false},
		{"bool off", BoolConverter{}, "off", false, false},
		{"bool empty", BoolConverter{}, "", false, false},
		{"bool custom", BoolConverter{True: [][]byte{[]byte("si")}}, "si", true, false},
		{"bool case sensitive", BoolConverter{CaseSensitive: true}, "TRUE", nil, true},
		{"bool invalid", BoolConverter{}, "maybe", nil, true},
		{"time empty", TimeConverter{}, "", time.Time{}, false},
		{"date", TimeConverter{Layout: time.DateOnly}, "2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
		{"date invalid", TimeConverter{Layout: time.DateOnly}, "2024-02-30", nil, true},
		{"uuid", UUIDConverter{}, id.String(), id, false},
		{"uuid invalid", UUIDConverter{}, "not-a-uuid", nil, true},
		{"bytes", BytesConverter{}, "raw", []byte("raw"), false},
		{"text", TextConverter{}, "hello", "hello", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.conv.Parse([]byte(tt.field), d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.field, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.field, diff)
			}
		})
	}
}

func TestConverters_Append(t *testing.T) {
	d := DefaultDialect()
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	when := time.Date(2024, 2, 29, 13, 4, 5, 0, time.UTC)
	tests := []struct {
		name    string
		conv    Converter
		value   any
		want    string
		wantErr bool
	}{
		{"int8", IntConverter{}, int8(-7), "-7", false},
		{"int binary", IntConverter{Base: 2}, 5, "101", false},
		{"int nil", IntConverter{}, nil, "", false},
		{"int wrong type", IntConverter{}, uint(1), "", true},
		{"uint16", UintConverter{}, uint16(9), "9", false},
		{"float shortest", FloatConverter{}, 0.1, "0.1", false},
		{"float32", FloatConverter{}, float32(2.5), "2.5", false},
		{"decimal", DecimalConverter{}, decimal.RequireFromString("123.4500"), "123.45", false},
		{"bool", BoolConverter{}, true, "true", false},
		{"bool custom", BoolConverter{False: [][]byte{[]byte("nope")}}, false, "nope", false},
		{"time", TimeConverter{}, when, "2024-02-29T13:04:05Z", false},
		{"time pointer", TimeConverter{Layout: time.Kitchen}, &when, "1:04PM", false},
		{"uuid", UUIDConverter{}, id, id.String(), false},
		{"null uuid", UUIDConverter{}, uuid.NullUUID{}, "", false},
		{"bytes", BytesConverter{}, []byte("raw"), "raw", false},
		{"text stringer", TextConverter{}, time.Second, "1s", false},
		{"text wrong type", TextConverter{}, 3, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.conv.Append([]byte("prefix:"), tt.value, d)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedValue) {
					t.Fatalf("Append(%v) error = %v, want ErrUnsupportedValue", tt.value, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Append(%v) error = %v", tt.value, err)
			}
			if !strings.HasPrefix(string(got), "prefix:") {
				t.Fatalf("Append(%v) dropped the destination prefix: %q", tt.value, got)
			}
			if s := strings.TrimPrefix(string(got), "prefix:"); s != tt.want {
				t.Errorf("Append(%v) = %q, want %q", tt.value, s, tt.want)
			}
			if n := tt.conv.MaxLen(tt.value); n > 0 && len(tt.want) > n {
				t.Errorf("MaxLen(%v) = %d, shorter than output %q", tt.value, n, tt.want)
			}
		})
	}
}

func TestWithNulls(t *testing.T) {
	d := DefaultDialect()
	conv := WithNulls(IntConverter{}, DefaultNulls)

	for _, field := range []string{"", "NULL", "n/a", "-"} {
		got, err := conv.Parse([]byte(field), d)
		if err != nil || got != nil {
			t.Errorf("Parse(%q) = %v, %v, want nil", field, got, err)
		}
	}
	if got, err := conv.Parse([]byte("12"), d); err != nil || got != int64(12) {
		t.Errorf("Parse(12) = %v, %v", got, err)
	}

	out, err := WithNulls(IntConverter{}, NewNullSet("NULL")).Append(nil, nil, d)
	if err != nil || string(out) != "NULL" {
		t.Errorf("Append(nil) = %q, %v, want NULL", out, err)
	}
	if n := WithNulls(IntConverter{}, NewNullSet("NULL")).MaxLen(nil); n != 4 {
		t.Errorf("MaxLen(nil) = %d, want 4", n)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	want := []string{"bool", "bytes", "date", "decimal", "float", "int", "text", "time", "uint", "uuid"}
	if diff := cmp.Diff(want, reg.Tags()); diff != "" {
		t.Errorf("Tags() mismatch (-want +got):\n%s", diff)
	}

	if err := reg.Register("int", IntConverter{Base: 16}); !errors.Is(err, ErrConverterExists) {
		t.Errorf("Register(int) error = %v, want ErrConverterExists", err)
	}
	if err := reg.Register("hex", IntConverter{Base: 16}); err != nil {
		t.Fatalf("Register(hex) error = %v", err)
	}
	conv, ok := reg.Lookup("hex")
	if !ok {
		t.Fatal("Lookup(hex) not found")
	}
	if v, err := conv.Parse([]byte("10"), DefaultDialect()); err != nil || v != int64(16) {
		t.Errorf("hex Parse(10) = %v, %v, want 16", v, err)
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Error("Lookup(missing) found a converter")
	}
	if _, ok := NewRegistry().Lookup("hex"); ok {
		t.Error("registration leaked into a new registry")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := NewRegistry()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			_ = reg.Register(strings.Repeat("x", i+1), TextConverter{})
			reg.Lookup("int")
			reg.Tags()
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if got := len(reg.Tags()); got != 18 {
		t.Errorf("len(Tags()) = %d, want 18", got)
	}
}
