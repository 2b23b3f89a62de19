package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnLabels(t *testing.T) {
	got := columnLabels([]string{"Name", "", "Name", "Age", "Name", "Name.1"})
	assert.Equal(t, []string{"Name", "Unnamed: 1", "Name.1", "Age", "Name.2", "Name.1.1"}, got)
}

func TestGridUnits(t *testing.T) {
	grid := [][]string{
		{"", ""},
		{"Name", "Note"},
		{"cat", "NaN"},
		{"", "  "},
		{"dog", "N/A", "extra"},
	}
	units := gridUnits(grid)
	assert.Equal(t, []Unit{
		{Text: "cat", Row: Row(0), Column: Column("Name")},
		{Text: "dog", Row: Row(1), Column: Column("Name")},
		{Text: "extra", Row: Row(1), Column: Column("Unnamed: 2")},
	}, units)

	assert.Empty(t, gridUnits(nil))
	assert.Empty(t, gridUnits([][]string{{"Only", "Header"}}))
}

func TestCSVExtractor(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "people.csv", "\xEF\xBB\xBFName,Name,City\r\n\"Smith, cat\",Jo,NULL\r\n,,\r\nAl,cat,Paris\r\n")

	units, err := (&CSVExtractor{}).Extract(path, GranularityLine)
	require.NoError(t, err)
	assert.Equal(t, []Unit{
		{Text: "Smith, cat", Row: Row(0), Column: Column("Name")},
		{Text: "Jo", Row: Row(0), Column: Column("Name.1")},
		{Text: "Al", Row: Row(1), Column: Column("Name")},
		{Text: "cat", Row: Row(1), Column: Column("Name.1")},
		{Text: "Paris", Row: Row(1), Column: Column("City")},
	}, units)
}

func TestCSVExtractor_RowWiderThanHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv", "a,b\n1,2\n1,2,3\n")

	_, err := (&CSVExtractor{}).Extract(path, GranularityLine)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 fields in line 3, saw 3")
}

func TestXLSXExtractor_FirstSheetOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeXLSX(t, dir, "book.xlsx", [][]string{
		{"Animal", "Sound"},
		{"cat", "meow"},
	})

	units, err := (&XLSXExtractor{}).Extract(path, GranularityParagraph)
	require.NoError(t, err)
	assert.Equal(t, []Unit{
		{Text: "cat", Row: Row(0), Column: Column("Animal")},
		{Text: "meow", Row: Row(0), Column: Column("Sound")},
	}, units)
}

func TestCheckWorkbookStream_RejectsNonCompound(t *testing.T) {
	assert.Error(t, checkWorkbookStream([]byte("PK\x03\x04 definitely not OLE2")))
}

// fakeRow mimics an xls row whose cells start at first.
type fakeRow struct {
	first int
	cells []string
}

func (r fakeRow) FirstCol() int    { return r.first }
func (r fakeRow) LastCol() int     { return r.first + len(r.cells) }
func (r fakeRow) Col(i int) string { return r.cells[i-r.first] }

func TestSheetGrid_ColumnAttribution(t *testing.T) {
	rows := map[int]fakeRow{
		1: {first: 0, cells: []string{"Animal", "Sound", "Home"}},
		2: {first: 1, cells: []string{"meow", "barn"}},
		4: {first: 0, cells: []string{"cat"}},
	}
	grid := sheetGrid(4, func(i int) xlsRow {
		if r, ok := rows[i]; ok {
			return r
		}
		return nil
	})
	assert.Equal(t, [][]string{
		nil,
		{"Animal", "Sound", "Home"},
		{"", "meow", "barn"},
		nil,
		{"cat"},
	}, grid)

	assert.Equal(t, []Unit{
		{Text: "meow", Row: Row(0), Column: Column("Sound")},
		{Text: "barn", Row: Row(0), Column: Column("Home")},
		{Text: "cat", Row: Row(1), Column: Column("Animal")},
	}, gridUnits(grid))
}

func TestSheetGrid_EmptyRowsKeepPosition(t *testing.T) {
	grid := sheetGrid(1, func(i int) xlsRow {
		if i == 0 {
			return fakeRow{first: 0}
		}
		return fakeRow{first: 0, cells: []string{"x"}}
	})
	assert.Equal(t, [][]string{nil, {"x"}}, grid)
}
