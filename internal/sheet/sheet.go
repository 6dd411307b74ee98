// Package sheet converts Excel workbooks into the CSV form the rest of
// the pipeline ingests. Vendors deliver the same extracts as .csv one
// week and .xlsx the next, so conversion happens up front and the
// parser only ever sees CSV.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrNoSheets = errors.New("workbook contains no sheets")

// IsWorkbook reports whether the filename looks like an Excel workbook.
func IsWorkbook(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ToCSV reads the first sheet of a workbook and renders it as CSV.
// Trailing empty cells are kept so every row has the header's width,
// which keeps downstream column indexes stable.
func ToCSV(workbook []byte) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(workbook))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		padded := row
		if len(row) < width {
			padded = make([]string, width)
			copy(padded, row)
		}
		if err := w.Write(padded); err != nil {
			return nil, fmt.Errorf("write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
