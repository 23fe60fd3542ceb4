// Package dataset parses equipment CSV files and validates and aggregates
// their rows.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrNoHeader   = errors.New("csv file has no header row")
	ErrNoRows     = errors.New("csv file has no data rows")
	ErrWideRecord = errors.New("csv record has more fields than the header")
)

// naTokens are cell values read as "no value", matching the usual spreadsheet
// and dataframe conventions.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// Table is a parsed CSV file. Index holds, for every record, its zero based
// position among the data records of the source file, so diagnostics keep
// pointing at the original line after blank rows were dropped.
type Table struct {
	Columns []string
	Records [][]string
	Index   []int
}

// Len returns the number of data records.
func (t *Table) Len() int {
	return len(t.Records)
}

// Column returns the position of name in Columns or -1.
func (t *Table) Column(name string) int {
	for i, column := range t.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

// Head returns a view on the first n records.
func (t *Table) Head(n int) *Table {
	if n < 0 || n > t.Len() {
		n = t.Len()
	}
	return &Table{
		Columns: t.Columns,
		Records: t.Records[:n],
		Index:   t.Index[:n],
	}
}

// Values returns every cell of a column in record order.
func (t *Table) Values(name string) []string {
	col := t.Column(name)
	if col < 0 {
		return nil
	}
	values := make([]string, 0, t.Len())
	for _, record := range t.Records {
		values = append(values, record[col])
	}
	return values
}

// ParseCSV reads a complete CSV document. The first record is the header;
// shorter records are padded with empty cells while longer ones fail the
// parse. Bare quotes inside unquoted cells are kept as text. Records whose
// cells are all NA tokens are dropped.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table := &Table{Columns: header}
	for position := 0; ; position++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, expected %d", ErrWideRecord, line, len(record), len(header))
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		if blankRecord(record) {
			continue
		}
		table.Records = append(table.Records, record)
		table.Index = append(table.Index, position)
	}

	return table, nil
}

// IsMissing reports whether the cell counts as having no value.
func IsMissing(value string) bool {
	if _, ok := naTokens[value]; ok {
		return true
	}
	return strings.TrimSpace(value) == ""
}

// blankRecord matches cells against the NA tokens only, so a record of
// whitespace cells is kept and reported as missing values.
func blankRecord(record []string) bool {
	for _, value := range record {
		if _, ok := naTokens[value]; !ok {
			return false
		}
	}
	return true
}
