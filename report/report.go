// Package report persists scan matches to a spreadsheet (.xlsx) or CSV file.
// An existing report is extended: new rows go after the last non-empty row and
// earlier rows are left as they were.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"textfinder/search"
)

// Header is the first row of every report.
var Header = []string{"File Name", "Row", "Column", "Content"}

// DefaultSheet is the worksheet used for new .xlsx reports.
const DefaultSheet = "Sheet1"

// ErrUnsupportedFormat is returned for report paths that are neither .xlsx nor .csv.
var ErrUnsupportedFormat = errors.New("unsupported report format (want .xlsx or .csv)")

// Options control how a report is written.
type Options struct {
	// Sheet names the worksheet for .xlsx reports; empty means DefaultSheet.
	// An existing workbook without that sheet is written to its first sheet.
	Sheet string
}

// Write appends matches to the report at path, creating it with a header row
// when missing. Matches are written in search.MatchSet.Sorted order. The whole
// read-modify-write runs under "<path>.lock" and lands with an atomic rename.
// It returns the number of rows appended.
func Write(path string, matches search.MatchSet, opts Options) (int, error) {
	format := strings.ToLower(filepath.Ext(path))
	if format != ".xlsx" && format != ".csv" {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}

	lock := newFileLock(path)
	if err := lock.Lock(); err != nil {
		return 0, err
	}
	defer lock.Unlock()

	rows := matches.Sorted()
	var (
		data []byte
		err  error
	)
	switch format {
	case ".xlsx":
		data, err = buildWorkbook(path, rows, opts)
	case ".csv":
		data, err = buildCSV(path, rows)
	}
	if err != nil {
		return 0, err
	}
	if err := atomicWrite(path, data); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// cellValues renders a match as worksheet cells: the row index stays numeric,
// not-applicable positions and text are strings.
func cellValues(m search.Match) []interface{} {
	var row interface{} = search.NotApplicable
	if m.Row.Valid {
		row = m.Row.Index
	}
	return []interface{}{CleanCell(m.FileName), row, CleanCell(m.Column.String()), CleanCell(m.Content)}
}

func buildWorkbook(path string, matches []search.Match, opts Options) ([]byte, error) {
	sheet := opts.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}

	var f *excelize.File
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open existing report %s: %w", path, err)
		}
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			sheet = f.GetSheetList()[0]
		}
	} else if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		if sheet != DefaultSheet {
			if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("name sheet %q: %w", sheet, err)
			}
		}
	} else {
		return nil, fmt.Errorf("stat report %s: %w", path, err)
	}
	defer f.Close()

	existing, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	next := lastNonEmptyRow(existing) + 1 // 1-based row for the next write

	if next == 1 {
		header := make([]interface{}, len(Header))
		for i, h := range Header {
			header[i] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		next = 2
	}

	for _, m := range matches {
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return nil, err
		}
		values := cellValues(m)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", next, err)
		}
		next++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// lastNonEmptyRow returns the 1-based number of the last row holding any
// non-blank cell, or 0.
func lastNonEmptyRow(rows [][]string) int {
	for i := len(rows) - 1; i >= 0; i-- {
		for _, v := range rows[i] {
			if strings.TrimSpace(v) != "" {
				return i + 1
			}
		}
	}
	return 0
}

func buildCSV(path string, matches []search.Match) ([]byte, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read existing report %s: %w", path, err)
	}

	var buf bytes.Buffer
	buf.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buf.WriteByte('\n')
	}

	w := csv.NewWriter(&buf)
	if len(bytes.TrimSpace(existing)) == 0 {
		buf.Reset()
		if err := w.Write(Header); err != nil {
			return nil, err
		}
	}
	for _, m := range matches {
		record := m.Record()
		for i := range record {
			record[i] = CleanCell(record[i])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}
