// Package tabular parses raw delimited extracts into logical-field rows.
// Header spellings drift across file eras, so columns are resolved
// against ordered candidate lists instead of literal names.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

var (
	ErrEmptyFile    = errors.New("file contains no data rows")
	ErrNoUnitColumn = errors.New("no unit identifier column detected in header")
)

// Row is one data line resolved to logical fields. Only fields that were
// both present in the header and non-blank in the line appear.
type Row map[Field]string

// Get returns the raw cell for a field, empty string when absent.
func (r Row) Get(f Field) string { return r[f] }

// Has reports whether the field resolved to a non-blank cell.
func (r Row) Has(f Field) bool { return r[f] != "" }

// Result is the output of parsing one extract file.
type Result struct {
	Rows         []Row
	Category     FileCategory
	BusinessDate *time.Time // nil when the filename carries no date
	TotalRows    int        // data lines seen, blank lines excluded
	SkippedRows  int        // rows dropped for missing/malformed identifier
}

var numericIDRe = regexp.MustCompile(`^\d+$`)

// Parse reads delimited text and resolves every non-blank data line
// against the logical field list. Rows missing the unit identifier are
// skipped and counted, never fatal; in strict mode the identifier must
// also be purely numeric. Quoted cells containing the delimiter are
// handled by the reader.
func Parse(r io.Reader, filename string, strict bool) (*Result, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := ResolveFields(header)
	if _, ok := idx[FieldUnitID]; !ok {
		return nil, ErrNoUnitColumn
	}

	res := &Result{
		Category:     CategoryFromName(filename),
		BusinessDate: BusinessDateFromName(filename),
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.SkippedRows++
			continue
		}
		if isBlank(record) {
			continue
		}
		res.TotalRows++

		row := resolveRow(record, idx)
		id := row.Get(FieldUnitID)
		if id == "" {
			res.SkippedRows++
			continue
		}
		if strict && !numericIDRe.MatchString(id) {
			res.SkippedRows++
			continue
		}

		res.Rows = append(res.Rows, row)
	}

	return res, nil
}

func resolveRow(record []string, idx FieldIndex) Row {
	row := make(Row, len(idx))
	for field, col := range idx {
		if col >= len(record) {
			continue
		}
		val := strings.TrimSpace(record[col])
		if val == "" {
			continue
		}
		row[field] = val
	}
	return row
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// stripBOM wraps a reader to strip a UTF-8 BOM if present.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, err := r.Read(buf)
	if err != nil || n < 3 {
		return io.MultiReader(strings.NewReader(string(buf[:n])), r)
	}
	if buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf[:n])), r)
}
