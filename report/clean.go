package report

import (
	"regexp"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Control characters XML 1.0 cannot carry. Tab, newline and carriage return are kept.
var controlCharRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x{FFFE}\x{FFFF}]`)

// CleanCell makes s storable in a worksheet cell: XML-illegal control
// characters are removed and the text is cut to the per-cell character limit.
func CleanCell(s string) string {
	s = controlCharRegex.ReplaceAllString(s, "")
	if utf8.RuneCountInString(s) <= excelize.TotalCellChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:excelize.TotalCellChars])
}
