package fastparser

import (
	"bytes"
	"testing"

	"github.com/shapestone/shape-csv/v2/internal/stream"
)

// Benchmark data sets
var (
	// Medium CSV: 100 rows x 10 columns of unquoted data
	mediumCSV = generateCSV(100, 10, false)

	// Large CSV: 1000 rows x 10 columns of unquoted data
	largeCSV = generateCSV(1000, 10, false)

	// Quoted CSV: 100 rows x 10 columns with quoted fields
	quotedCSV = generateCSV(100, 10, true)
)

// generateCSV creates a CSV with specified dimensions
func generateCSV(rows, cols int, quoted bool) []byte {
	var data []byte
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				data = append(data, ',')
			}
			if quoted {
				data = append(data, '"')
			}
			data = append(data, "field"...)
			if quoted {
				data = append(data, '"')
			}
		}
		data = append(data, '\n')
	}
	return data
}

func benchmarkMachine(b *testing.B, data []byte, mode Mode) {
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m := New(stream.NewSource(bytes.NewReader(data), 0), DefaultConfig(), mode)
		for {
			if _, err := m.NextRecord(); err != nil {
				break
			}
		}
		m.Close()
	}
}

func BenchmarkMachine_Fast_Medium(b *testing.B)     { benchmarkMachine(b, mediumCSV, ModeFast) }
func BenchmarkMachine_Flexible_Medium(b *testing.B) { benchmarkMachine(b, mediumCSV, ModeFlexible) }
func BenchmarkMachine_Fast_Large(b *testing.B)      { benchmarkMachine(b, largeCSV, ModeFast) }
func BenchmarkMachine_Flexible_Large(b *testing.B)  { benchmarkMachine(b, largeCSV, ModeFlexible) }
func BenchmarkMachine_Fast_Quoted(b *testing.B)     { benchmarkMachine(b, quotedCSV, ModeFast) }

func BenchmarkParse_Large(b *testing.B) {
	b.SetBytes(int64(len(largeCSV)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(largeCSV); err != nil {
			b.Fatal(err)
		}
	}
}
