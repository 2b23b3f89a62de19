package search

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"textfinder/search/pdf"
)

// ErrUnsupportedExtension is returned for an extension outside the supported format set.
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// Family separates formats whose units are text segments from formats whose units are cells.
type Family int

const (
	FamilyText Family = iota
	FamilyTabular
)

func (f Family) String() string {
	if f == FamilyTabular {
		return "tabular"
	}
	return "text"
}

// Unit is one searchable segment produced by an extractor. Text-family units
// carry no position; tabular units carry their row index and column label.
type Unit struct {
	Text   string
	Row    RowRef
	Column ColumnRef
}

// Extractor turns one file into searchable units.
type Extractor interface {
	// Name identifies the format in log lines.
	Name() string
	Family() Family
	// Extract reads the file at path. Tabular extractors ignore g.
	Extract(path string, g Granularity) ([]Unit, error)
}

// ExtractorRegistry maps lower-case extensions (without dot) to extractors.
type ExtractorRegistry struct {
	extractors map[string]Extractor
}

// NewExtractorRegistry creates a registry holding the built-in extractors.
func NewExtractorRegistry() *ExtractorRegistry {
	reg := &ExtractorRegistry{
		extractors: make(map[string]Extractor),
	}
	reg.registerBuiltIns()
	return reg
}

func (r *ExtractorRegistry) registerBuiltIns() {
	r.extractors["txt"] = &PlainTextExtractor{}
	r.extractors["docx"] = &DocumentExtractor{}
	r.extractors["pdf"] = &PDFExtractor{}

	r.extractors["csv"] = &CSVExtractor{}
	r.extractors["xls"] = &XLSExtractor{}
	r.extractors["xlsx"] = &XLSXExtractor{}
}

// GetExtractor returns the extractor for ext. A leading dot and case are ignored.
func (r *ExtractorRegistry) GetExtractor(ext string) (Extractor, bool) {
	ext = NormalizeExtension(ext)
	extractor, exists := r.extractors[ext]
	return extractor, exists
}

// Extensions lists the registered extensions in sorted order.
func (r *ExtractorRegistry) Extensions() []string {
	out := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

var builtIns = NewExtractorRegistry()

// SupportedExtensions is the closed set of extensions the search understands.
func SupportedExtensions() []string { return builtIns.Extensions() }

// IsSupportedExtension reports whether ext belongs to the supported set.
func IsSupportedExtension(ext string) bool {
	_, ok := builtIns.GetExtractor(ext)
	return ok
}

// NormalizeExtension lower-cases ext and strips a leading dot.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// FileExtension derives the normalized extension of a path.
func FileExtension(path string) string {
	return NormalizeExtension(filepath.Ext(path))
}

// textUnits wraps segments as position-less units.
func textUnits(segments []string) []Unit {
	units := make([]Unit, 0, len(segments))
	for _, s := range segments {
		units = append(units, Unit{Text: s})
	}
	return units
}

// PlainTextExtractor reads .txt files as UTF-8 (or BOM-marked UTF-16) text.
type PlainTextExtractor struct{}

func (e *PlainTextExtractor) Name() string   { return "text" }
func (e *PlainTextExtractor) Family() Family { return FamilyText }

// Extract implements the Extractor interface for plain text files
func (e *PlainTextExtractor) Extract(path string, g Granularity) ([]Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	return textUnits(Segment(normalizeNewlines(text), g)), nil
}

// DocumentExtractor reads paragraphs of .docx files (Office Open XML).
type DocumentExtractor struct{}

func (e *DocumentExtractor) Name() string   { return "document" }
func (e *DocumentExtractor) Family() Family { return FamilyText }

// Extract implements the Extractor interface for DOCX files. In line mode each
// paragraph is further split on its embedded line breaks.
func (e *DocumentExtractor) Extract(path string, g Granularity) ([]Unit, error) {
	paragraphs, err := readDocxParagraphs(path)
	if err != nil {
		return nil, err
	}
	if g == GranularityParagraph {
		return textUnits(paragraphs), nil
	}
	var lines []string
	for _, p := range paragraphs {
		lines = append(lines, strings.Split(p, "\n")...)
	}
	return textUnits(lines), nil
}

// PDFExtractor reads per-page text of .pdf files. Segmentation runs per page,
// so a paragraph never spans a page boundary.
type PDFExtractor struct{}

func (e *PDFExtractor) Name() string   { return "pdf" }
func (e *PDFExtractor) Family() Family { return FamilyText }

// Extract implements the Extractor interface for PDF files
func (e *PDFExtractor) Extract(path string, g Granularity) ([]Unit, error) {
	pages, err := pdf.PageTexts(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf pages: %w", err)
	}
	var units []Unit
	for _, page := range pages {
		units = append(units, textUnits(Segment(normalizeNewlines(page), g))...)
	}
	return units, nil
}
