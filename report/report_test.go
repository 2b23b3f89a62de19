package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"textfinder/search"
)

func sampleMatches() search.MatchSet {
	return search.NewMatchSet(
		search.Match{FileName: "notes.txt", Content: "the cat sat"},
		search.Match{FileName: "pets.xlsx", Row: search.Row(2), Column: search.Column("Name"), Content: "cat"},
	)
}

func readSheet(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestWrite_NewWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")

	n, err := Write(path, sampleMatches(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, [][]string{
		Header,
		{"notes.txt", "N/A", "N/A", "the cat sat"},
		{"pets.xlsx", "2", "Name", "cat"},
	}, readSheet(t, path, DefaultSheet))

	_, err = os.Stat(path + ".lock")
	assert.NoError(t, err, "lock file stays next to the report")
}

func TestWrite_AppendsToWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	_, err := Write(path, sampleMatches(), Options{})
	require.NoError(t, err)

	more := search.NewMatchSet(search.Match{FileName: "b.txt", Content: "another cat"})
	n, err := Write(path, more, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows := readSheet(t, path, DefaultSheet)
	require.Len(t, rows, 4)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"notes.txt", "N/A", "N/A", "the cat sat"}, rows[1])
	assert.Equal(t, []string{"b.txt", "N/A", "N/A", "another cat"}, rows[3])
}

func TestWrite_NamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	_, err := Write(path, sampleMatches(), Options{Sheet: "Matches"})
	require.NoError(t, err)
	assert.Len(t, readSheet(t, path, "Matches"), 3)

	// a workbook without the requested sheet is extended on its first sheet
	_, err = Write(path, search.NewMatchSet(search.Match{FileName: "c.txt", Content: "cat"}), Options{Sheet: "Other"})
	require.NoError(t, err)
	assert.Len(t, readSheet(t, path, "Matches"), 4)
}

func TestWrite_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	_, err := Write(path, sampleMatches(), Options{})
	require.NoError(t, err)
	_, err = Write(path, search.NewMatchSet(search.Match{FileName: "c.txt", Content: "a \"quoted\", cat"}), Options{})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		Header,
		{"notes.txt", "N/A", "N/A", "the cat sat"},
		{"pets.xlsx", "2", "Name", "cat"},
		{"c.txt", "N/A", "N/A", "a \"quoted\", cat"},
	}, records)
}

func TestWrite_CSVWithoutTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("File Name,Row,Column,Content\nold.txt,N/A,N/A,old cat"), 0o644))

	_, err := Write(path, search.NewMatchSet(search.Match{FileName: "new.txt", Content: "new cat"}), Options{})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "File Name,Row,Column,Content\nold.txt,N/A,N/A,old cat\nnew.txt,N/A,N/A,new cat\n", string(data))
}

func TestWrite_EmptyMatchesStillCreatesReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	n, err := Write(path, search.MatchSet{}, Options{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, [][]string{Header}, readSheet(t, path, DefaultSheet))
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	_, err := Write(filepath.Join(t.TempDir(), "report.txt"), sampleMatches(), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWrite_ConcurrentWritersSerialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := search.NewMatchSet(search.Match{FileName: "f.txt", Content: strings.Repeat("x", i+1)})
			_, err := Write(path, m, Options{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 9)
	assert.Equal(t, Header, records[0])
}

func TestCleanCell(t *testing.T) {
	assert.Equal(t, "a\tb\nc", CleanCell("a\x00\tb\x1b\nc\x0c"))
	assert.Equal(t, "plain", CleanCell("plain"))

	long := strings.Repeat("é", excelize.TotalCellChars+10)
	assert.Equal(t, excelize.TotalCellChars, len([]rune(CleanCell(long))))
}

func TestLastNonEmptyRow(t *testing.T) {
	assert.Equal(t, 0, lastNonEmptyRow(nil))
	assert.Equal(t, 2, lastNonEmptyRow([][]string{{"h"}, {"a"}, {" ", ""}, {}}))
}
