package csv

import (
	"io"
)

// Scanner provides a streaming interface for reading CSV records one at a time.
// Records are read incrementally through a Reader, so memory use does not
// grow with the input.
//
// Example usage:
//
//	file, _ := os.Open("data.csv")
//	defer file.Close()
//
//	scanner := csv.NewScanner(file).SetHasHeaders(true)
//	for scanner.Scan() {
//	    record := scanner.Record()
//	    name, _ := record.GetByName("name")
//	    fmt.Println(name)
//	}
//	if err := scanner.Err(); err != nil {
//	    // handle error
//	}
type Scanner struct {
	src         io.Reader
	opts        ReaderOptions
	r           *Reader
	hasHeaders  bool
	reuseRecord bool
	headers     []string
	fields      []string
	row         *Row
	err         error
	done        bool
}

// NewScanner creates a new Scanner that reads CSV from the given io.Reader
// with the default reader options. By default, the scanner assumes no
// headers. Use SetHasHeaders(true) to treat the first row as headers.
func NewScanner(reader io.Reader) *Scanner {
	return NewScannerWithOptions(reader, DefaultReaderOptions())
}

// NewScannerWithOptions creates a Scanner with custom reader options. Invalid
// options are reported by Err after the first Scan.
func NewScannerWithOptions(reader io.Reader, opts ReaderOptions) *Scanner {
	return &Scanner{
		src:     reader,
		opts:    opts,
		headers: []string{},
	}
}

// SetHasHeaders sets whether the first row should be treated as headers.
// If true, the first row will be used as column names for GetByName() access.
// Returns the Scanner for method chaining.
func (s *Scanner) SetHasHeaders(hasHeaders bool) *Scanner {
	s.hasHeaders = hasHeaders
	return s
}

// SetReuseRecord sets whether the scanner should reuse the fields slice of
// the Record between calls to Scan. This reduces allocations but means a
// previous Record is overwritten by the next Scan.
// Returns the Scanner for method chaining.
func (s *Scanner) SetReuseRecord(reuse bool) *Scanner {
	s.reuseRecord = reuse
	return s
}

// Scan advances the scanner to the next record.
// It returns false when there are no more records or an error occurs.
// After Scan returns false, the Err method will return any error that occurred.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	if s.r == nil {
		if !s.open() {
			return false
		}
	}
	row, err := s.r.Read()
	if err != nil {
		s.finish(err)
		return false
	}
	s.row = row
	if s.reuseRecord {
		s.fields = row.AppendStrings(s.fields[:0])
	} else {
		s.fields = row.Strings()
	}
	return true
}

func (s *Scanner) open() bool {
	r, err := NewReader(s.src, s.opts)
	if err != nil {
		s.finish(err)
		return false
	}
	s.r = r
	if s.hasHeaders {
		row, err := r.Read()
		if err != nil {
			s.finish(err)
			return false
		}
		s.headers = row.Strings()
	}
	return true
}

func (s *Scanner) finish(err error) {
	s.done = true
	s.row = nil
	if err != io.EOF {
		s.err = err
	}
	if s.r != nil {
		s.r.Close()
	}
}

// Record returns the current record.
// This should only be called after Scan() returns true.
//
// When ReuseRecord is enabled, the returned Record shares memory with the
// next one. Copy its fields if you need to retain them.
func (s *Scanner) Record() Record {
	if s.row == nil {
		return Record{fields: []string{}, headers: s.headers, dialect: s.opts.Dialect}
	}
	return Record{fields: s.fields, headers: s.headers, dialect: s.opts.Dialect}
}

// Row returns the current record without copying its fields. The Row is only
// valid until the next call to Scan.
func (s *Scanner) Row() *Row {
	return s.row
}

// Err returns the error, if any, that was encountered during scanning.
// It returns nil if no error occurred or at EOF.
func (s *Scanner) Err() error {
	return s.err
}

// Errors returns the record errors held by PolicyCollect.
func (s *Scanner) Errors() []*RecordError {
	if s.r == nil {
		return nil
	}
	return s.r.Errors()
}

// Headers returns the column headers if SetHasHeaders(true) was called.
// Returns an empty slice if no headers were set.
// This is available after the first call to Scan().
func (s *Scanner) Headers() []string {
	return s.headers
}
