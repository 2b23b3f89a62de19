package search

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textfinder/search/pdf/pdftest"
)

func TestFileProcessor_TextLines(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "the cat sat\nno match here\n   cat again  \ncategory\n")

	res := NewFileProcessor().Process(path, mustQuery(t, "cat", GranularityLine))
	require.Nil(t, res.Err)
	assert.False(t, res.Skipped)
	assert.Equal(t, NewMatchSet(
		textMatch("notes.txt", "the cat sat"),
		textMatch("notes.txt", "cat again"),
	), res.Matches)
}

func TestFileProcessor_GranularitySplit(t *testing.T) {
	dir := t.TempDir()
	fp := NewFileProcessor()

	path := writeFile(t, dir, "a.txt", "alpha beta\n\ngamma cat")
	for _, g := range []Granularity{GranularityLine, GranularityParagraph} {
		res := fp.Process(path, mustQuery(t, "cat", g))
		assert.Equal(t, NewMatchSet(textMatch("a.txt", "gamma cat")), res.Matches, "granularity %s", g)
	}

	path = writeFile(t, dir, "b.txt", "cat\nsat")
	res := fp.Process(path, mustQuery(t, "cat sat", GranularityLine))
	assert.Empty(t, res.Matches)

	res = fp.Process(path, mustQuery(t, "cat sat", GranularityParagraph))
	assert.Equal(t, NewMatchSet(textMatch("b.txt", "cat\nsat")), res.Matches)
}

func TestFileProcessor_Deduplicates(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dup.txt", "a cat\nsomething\na cat\n  a cat\n")

	res := NewFileProcessor().Process(path, mustQuery(t, "cat", GranularityLine))
	assert.Len(t, res.Matches, 1)
	assert.True(t, res.Matches.Contains(textMatch("dup.txt", "a cat")))
}

func TestFileProcessor_CRLF(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "win.txt", "first cat\r\nsecond\r\nthird cat\r\n")

	res := NewFileProcessor().Process(path, mustQuery(t, "cat", GranularityLine))
	assert.Equal(t, NewMatchSet(
		textMatch("win.txt", "first cat"),
		textMatch("win.txt", "third cat"),
	), res.Matches)
}

func TestFileProcessor_ExtensionFiltering(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "server.log", "the cat sat\n")

	res := NewFileProcessor().Process(path, mustQuery(t, "cat", GranularityLine, "txt"))
	assert.True(t, res.Skipped)
	assert.Nil(t, res.Err)
	assert.Empty(t, res.Matches)

	txt := writeFile(t, dir, "server.TXT", "the cat sat\n")
	res = NewFileProcessor().Process(txt, mustQuery(t, "cat", GranularityLine, ".txt"))
	assert.False(t, res.Skipped)
	assert.Len(t, res.Matches, 1)
}

func TestNewQuery_RejectsUnsupportedExtension(t *testing.T) {
	_, err := NewQuery("cat", GranularityLine, []string{"txt", "log"})
	assert.ErrorIs(t, err, ErrUnsupportedExtension)

	_, err = NewQuery("cat", Granularity("word"), nil)
	assert.ErrorIs(t, err, ErrUnknownGranularity)

	q, err := NewQuery("cat", GranularityLine, nil)
	require.NoError(t, err)
	for _, ext := range SupportedExtensions() {
		assert.True(t, q.Allows("file."+ext), ext)
	}
}

func TestFileProcessor_Docx(t *testing.T) {
	dir := t.TempDir()
	path := writeDocx(t, dir, "report.docx",
		"Intro paragraph",
		"The cat sat\non the mat",
		"  Another cat line  ",
	)
	fp := NewFileProcessor()

	res := fp.Process(path, mustQuery(t, "cat", GranularityParagraph))
	require.Nil(t, res.Err)
	assert.Equal(t, NewMatchSet(
		textMatch("report.docx", "The cat sat\non the mat"),
		textMatch("report.docx", "Another cat line"),
	), res.Matches)

	res = fp.Process(path, mustQuery(t, "cat", GranularityLine))
	require.Nil(t, res.Err)
	assert.Equal(t, NewMatchSet(
		textMatch("report.docx", "The cat sat"),
		textMatch("report.docx", "Another cat line"),
	), res.Matches)
}

func TestFileProcessor_PDF(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scan.pdf", string(pdftest.Build([][]string{
		{"the cat", "sat down", "", "last word is cat"},
		{"sat on page two"},
	})))
	fp := NewFileProcessor()

	res := fp.Process(path, mustQuery(t, "cat sat", GranularityParagraph))
	require.Nil(t, res.Err)
	assert.Equal(t, NewMatchSet(textMatch("scan.pdf", "the cat\nsat down")), res.Matches)

	res = fp.Process(path, mustQuery(t, "cat sat", GranularityLine))
	require.Nil(t, res.Err)
	assert.Empty(t, res.Matches)

	res = fp.Process(path, mustQuery(t, "cat", GranularityLine))
	require.Nil(t, res.Err)
	assert.Equal(t, NewMatchSet(
		textMatch("scan.pdf", "the cat"),
		textMatch("scan.pdf", "last word is cat"),
	), res.Matches)

	res = fp.Process(path, mustQuery(t, "two", GranularityParagraph))
	require.Nil(t, res.Err)
	assert.Equal(t, NewMatchSet(textMatch("scan.pdf", "sat on page two")), res.Matches)
}

func TestFileProcessor_TabularAttribution(t *testing.T) {
	dir := t.TempDir()
	rows := [][]string{
		{"Id", "Name", "Notes"},
		{"1", "dog", ""},
		{"2", "bird", "category"},
		{"3", "cat", "a Cat here"},
	}
	fp := NewFileProcessor()

	var csvText strings.Builder
	for _, r := range rows {
		csvText.WriteString(strings.Join(r, ",") + "\n")
	}
	csvPath := writeFile(t, dir, "pets.csv", csvText.String())
	xlsxPath := writeXLSX(t, dir, "pets.xlsx", rows)

	for _, path := range []string{csvPath, xlsxPath} {
		res := fp.Process(path, mustQuery(t, "cat", GranularityLine))
		require.Nil(t, res.Err, path)

		name := filepath.Base(path)
		assert.Equal(t, NewMatchSet(
			Match{FileName: name, Row: Row(2), Column: Column("Name"), Content: "cat"},
			Match{FileName: name, Row: Row(2), Column: Column("Notes"), Content: "a Cat here"},
		), res.Matches, path)
	}
}

func TestFileProcessor_TabularContentNotTrimmed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pad.csv", "Name\n  cat  \n")

	res := NewFileProcessor().Process(path, mustQuery(t, "cat", GranularityLine))
	assert.True(t, res.Matches.Contains(Match{FileName: "pad.csv", Row: Row(0), Column: Column("Name"), Content: "  cat  "}))
}

func TestFileProcessor_FailuresAreValues(t *testing.T) {
	dir := t.TempDir()
	fp := NewFileProcessor()
	q := mustQuery(t, "cat", GranularityLine)

	tests := []struct {
		name    string
		content string
		stage   Stage
		format  string
	}{
		{"broken.docx", "not a zip archive", StageExtract, "document"},
		{"broken.xlsx", "not a workbook", StageExtract, "xlsx"},
		{"broken.xls", "not a compound file", StageExtract, "xls"},
		{"broken.pdf", "%PDF-1.4 garbage", StageExtract, "pdf"},
		{"latin1.txt", "caf\xe9 cat", StageExtract, "text"},
		{"wide.csv", "a,b\n1,2,3\n", StageExtract, "csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name, tt.content)
			res := fp.Process(path, q)
			require.NotNil(t, res.Err)
			assert.Equal(t, tt.stage, res.Err.Stage)
			assert.Equal(t, tt.format, res.Err.Format)
			assert.Equal(t, path, res.Err.Path)
			assert.Empty(t, res.Matches)
		})
	}

	res := fp.Process(filepath.Join(dir, "missing.txt"), q)
	require.NotNil(t, res.Err)
	assert.Equal(t, StageExtract, res.Err.Stage)
}

func TestFileProcessor_SizeGuard(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.txt", strings.Repeat("cat ", 100))

	fp := NewFileProcessor()
	fp.MaxFileSize = 64
	res := fp.Process(path, mustQuery(t, "cat", GranularityLine))
	require.NotNil(t, res.Err)
	assert.ErrorIs(t, res.Err, ErrFileTooLarge)
	assert.Equal(t, StageOpen, res.Err.Stage)
}

type slowExtractor struct{ delay time.Duration }

func (e *slowExtractor) Name() string   { return "slow" }
func (e *slowExtractor) Family() Family { return FamilyText }
func (e *slowExtractor) Extract(string, Granularity) ([]Unit, error) {
	time.Sleep(e.delay)
	return []Unit{{Text: "cat"}}, nil
}

type panicExtractor struct{}

func (e *panicExtractor) Name() string   { return "panic" }
func (e *panicExtractor) Family() Family { return FamilyText }
func (e *panicExtractor) Extract(string, Granularity) ([]Unit, error) {
	panic("malformed input")
}

func TestFileProcessor_Timeout(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "slow.txt", "cat")

	fp := NewFileProcessor()
	fp.Registry.extractors["txt"] = &slowExtractor{delay: 500 * time.Millisecond}
	fp.FileTimeout = 20 * time.Millisecond

	res := fp.Process(path, mustQuery(t, "cat", GranularityLine))
	require.NotNil(t, res.Err)
	assert.Equal(t, StageTimeout, res.Err.Stage)
	assert.ErrorIs(t, res.Err, ErrTimeout)
	assert.Empty(t, res.Matches)
}

func TestFileProcessor_RecoversExtractorPanic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "boom.txt", "cat")

	fp := NewFileProcessor()
	fp.Registry.extractors["txt"] = &panicExtractor{}

	res := fp.Process(path, mustQuery(t, "cat", GranularityLine))
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Err.Error(), "malformed input")

	fp.FileTimeout = time.Second
	res = fp.Process(path, mustQuery(t, "cat", GranularityLine))
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Err.Error(), "malformed input")
}

func BenchmarkFileProcessor_Text(b *testing.B) {
	dir := b.TempDir()
	var sb strings.Builder
	for i := 0; i < 2000; i++ {
		sb.WriteString("lorem ipsum dolor sit amet consectetur adipiscing elit\n")
	}
	sb.WriteString("motor vehicles early\n")
	path := filepath.Join(dir, "bench.txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		b.Fatal(err)
	}
	q, err := NewQuery("vehicles", GranularityLine, nil)
	if err != nil {
		b.Fatal(err)
	}
	fp := NewFileProcessor()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if res := fp.Process(path, q); len(res.Matches) != 1 {
			b.Fatalf("expected one match, got %d", len(res.Matches))
		}
	}
}
