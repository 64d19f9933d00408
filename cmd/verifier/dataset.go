package verifier

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Row maps a column name to its decoded value. Columns absent from a record
// are present with an empty value.
type Row map[string]string

// Dataset is one CSV file read fully into memory.
type Dataset struct {
	Path   string
	Header []string
	Rows   []Row
}

// HasColumn reports whether name appears in the header.
func (d *Dataset) HasColumn(name string) bool {
	for _, col := range d.Header {
		if col == name {
			return true
		}
	}
	return false
}

// LoadFile reads a CSV dataset from disk.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Load(path, f)
}

// Load decodes a CSV stream with a required header row. A leading UTF-8
// byte-order mark is dropped and invalid UTF-8 is a FormatError.
// source names the stream in errors.
func Load(source string, r io.Reader) (*Dataset, error) {
	decoded := transform.NewReader(r, transform.Chain(encoding.UTF8Validator, unicode.BOMOverride(transform.Nop)))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &FormatError{Source: source, Reason: ErrMissingHeader}
	}
	if err != nil {
		return nil, &FormatError{Source: source, Reason: ErrMalformedCSV, Detail: "header", Err: err}
	}

	ds := &Dataset{Path: source, Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &FormatError{Source: source, Reason: ErrMalformedCSV, Err: err}
		}

		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}
