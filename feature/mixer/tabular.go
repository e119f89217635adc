package mixer

import (
	"bytes"
	"encoding/csv"
	"io"
	"path"
	"strings"

	"mixer-report/core/errors"

	"github.com/xuri/excelize/v2"
)

// ParseExport decodes a CSV or XLSX export into a Table.
// The format follows the object name's extension. skipRows banner rows are
// dropped before the header. Empty cells become nil; CSV lines with a field
// count different from the header are skipped.
func ParseExport(name string, r io.Reader, sheet string, skipRows int) (Table, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv", ".txt":
		return parseCSV(r, skipRows)
	case ".xlsx", ".xlsm":
		return parseXLSX(r, sheet, skipRows)
	default:
		return Table{}, errors.Mark(errors.Newf("unsupported export format %q", name), errors.ErrSourceUnavailable)
	}
}

func parseCSV(r io.Reader, skipRows int) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, errors.Mark(errors.Wrap(err, "read csv"), errors.ErrParse)
	}
	return tableFromRecords(records, skipRows, true), nil
}

func parseXLSX(r io.Reader, sheet string, skipRows int) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, errors.Mark(errors.Wrap(err, "open xlsx"), errors.ErrParse)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Table{}, errors.Mark(errors.New("xlsx has no sheets"), errors.ErrParse)
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, errors.Mark(errors.Wrapf(err, "read sheet %s", sheet), errors.ErrParse)
	}
	// Trailing empty cells are trimmed by excelize, so short rows are padded instead of dropped.
	return tableFromRecords(records, skipRows, false), nil
}

func tableFromRecords(records [][]string, skipRows int, strict bool) Table {
	skipRows = max(skipRows, 0)
	if skipRows >= len(records) {
		return Table{}
	}
	records = records[skipRows:]

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	table := Table{Columns: header}
	for _, rec := range records[1:] {
		if strict && len(rec) != len(header) {
			continue
		}
		if isEmptyRecord(rec) {
			continue
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) && strings.TrimSpace(rec[i]) != "" {
				row[col] = strings.TrimSpace(rec[i])
			} else {
				row[col] = nil
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteCSV renders columns and rows as CSV.
func WriteCSV(columns []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
