package search

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/richardlehane/mscfb"
	"github.com/xuri/excelize/v2"
)

// missingCellValues are cell texts treated as empty, the conventional spreadsheet
// markers for "no value".
var missingCellValues = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// gridUnits turns a grid whose first non-blank row is the header into one unit
// per non-empty data cell. Blank rows are dropped before rows are numbered, so
// Row is the 0-based index among data rows.
func gridUnits(grid [][]string) []Unit {
	for len(grid) > 0 && isBlankRecord(grid[0]) {
		grid = grid[1:]
	}
	if len(grid) == 0 {
		return nil
	}
	header := columnLabels(grid[0])

	var units []Unit
	index := 0
	for _, record := range grid[1:] {
		if isBlankRecord(record) {
			continue
		}
		for col, value := range record {
			if missingCellValues[value] {
				continue
			}
			label := unnamedLabel(col)
			if col < len(header) {
				label = header[col]
			}
			units = append(units, Unit{Text: value, Row: Row(index), Column: Column(label)})
		}
		index++
	}
	return units
}

// columnLabels names header cells: empty ones become "Unnamed: <i>" and repeated
// names get ".1", ".2", ... suffixes in order of appearance.
func columnLabels(header []string) []string {
	labels := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		label := h
		if label == "" {
			label = unnamedLabel(i)
		}
		if n, dup := seen[label]; dup {
			base := label
			for {
				n++
				label = base + "." + strconv.Itoa(n)
				if _, taken := seen[label]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[label] = 0
		labels[i] = label
	}
	return labels
}

func unnamedLabel(i int) string { return "Unnamed: " + strconv.Itoa(i) }

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// CSVExtractor reads comma-separated files.
type CSVExtractor struct{}

func (e *CSVExtractor) Name() string   { return "csv" }
func (e *CSVExtractor) Family() Family { return FamilyTabular }

// Extract implements the Extractor interface for CSV files. A data row wider
// than the header is a parse error.
func (e *CSVExtractor) Extract(path string, _ Granularity) ([]Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var grid [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if len(grid) > 0 && len(record) > len(grid[0]) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("parse csv: expected %d fields in line %d, saw %d", len(grid[0]), line, len(record))
		}
		grid = append(grid, record)
	}
	return gridUnits(grid), nil
}

// XLSXExtractor reads the first worksheet of .xlsx workbooks.
type XLSXExtractor struct{}

func (e *XLSXExtractor) Name() string   { return "xlsx" }
func (e *XLSXExtractor) Family() Family { return FamilyTabular }

// Extract implements the Extractor interface for XLSX files
func (e *XLSXExtractor) Extract(path string, _ Granularity) ([]Unit, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return gridUnits(grid), nil
}

var errNoWorkbookStream = errors.New("no Workbook stream in compound file")

// XLSExtractor reads the first worksheet of legacy BIFF .xls workbooks.
type XLSExtractor struct{}

func (e *XLSExtractor) Name() string   { return "xls" }
func (e *XLSExtractor) Family() Family { return FamilyTabular }

// Extract implements the Extractor interface for XLS files. The OLE2 container
// is checked for a workbook stream before the BIFF reader, which panics on
// some malformed input, is allowed near the file.
func (e *XLSExtractor) Extract(path string, _ Granularity) (units []Unit, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := checkWorkbookStream(data); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			units = nil
			err = fmt.Errorf("read xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}

	grid := sheetGrid(int(sheet.MaxRow), func(i int) xlsRow {
		if row := sheet.Row(i); row != nil {
			return row
		}
		return nil
	})
	return gridUnits(grid), nil
}

// xlsRow is the slice of *xls.Row that sheetGrid reads.
type xlsRow interface {
	FirstCol() int
	LastCol() int
	Col(int) string
}

// sheetGrid lays rows 0..maxRow out by column index. A missing row stays
// empty, and cells before FirstCol stay "" so column positions line up with
// the header row.
func sheetGrid(maxRow int, row func(int) xlsRow) [][]string {
	var grid [][]string
	for i := 0; i <= maxRow; i++ {
		r := row(i)
		if r == nil || r.LastCol() <= 0 {
			grid = append(grid, nil)
			continue
		}
		record := make([]string, r.LastCol())
		for col := max(r.FirstCol(), 0); col < r.LastCol(); col++ {
			record[col] = r.Col(col)
		}
		grid = append(grid, record)
	}
	return grid
}

// checkWorkbookStream verifies data is a compound file holding a BIFF workbook.
func checkWorkbookStream(data []byte) error {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("open compound file: %w", err)
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name == "Workbook" || entry.Name == "Book" {
			return nil
		}
	}
	return errNoWorkbookStream
}
