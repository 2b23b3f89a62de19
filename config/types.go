package config

import (
	"slices"
	"strings"

	"textfinder/search"
)

// DocumentTypes defines the file extensions searched line by line or paragraph by paragraph
var DocumentTypes = []string{"txt", "docx", "pdf"}

// TabularTypes defines the file extensions searched cell by cell
var TabularTypes = []string{"csv", "xls", "xlsx"}

// ParseExtensions splits comma or space separated extension lists and
// normalizes each entry. Duplicates are dropped, order is kept.
func ParseExtensions(values []string) []string {
	var out []string
	for _, v := range values {
		for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			ext := search.NormalizeExtension(f)
			if ext != "" && !slices.Contains(out, ext) {
				out = append(out, ext)
			}
		}
	}
	return out
}

// GetFileTypeDescription returns a human-readable description of the selected file types
func GetFileTypeDescription(extensions []string) string {
	if len(extensions) == 0 {
		extensions = search.SupportedExtensions()
	}
	var docs, sheets []string
	for _, ext := range extensions {
		switch {
		case slices.Contains(DocumentTypes, ext):
			docs = append(docs, ext)
		case slices.Contains(TabularTypes, ext):
			sheets = append(sheets, ext)
		}
	}

	var parts []string
	if len(docs) > 0 {
		parts = append(parts, "documents ("+strings.Join(docs, ", ")+")")
	}
	if len(sheets) > 0 {
		parts = append(parts, "spreadsheets ("+strings.Join(sheets, ", ")+")")
	}
	return strings.Join(parts, " + ")
}
