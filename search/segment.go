package search

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Granularity selects how text-bearing formats are cut into units.
type Granularity string

const (
	GranularityLine      Granularity = "line"
	GranularityParagraph Granularity = "paragraph"
)

// ErrUnknownGranularity is returned for anything other than "line" or "paragraph".
var ErrUnknownGranularity = errors.New("unknown granularity")

// ParseGranularity parses a granularity name, case-insensitively. Empty means line.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(GranularityLine):
		return GranularityLine, nil
	case string(GranularityParagraph):
		return GranularityParagraph, nil
	default:
		return "", fmt.Errorf("%w: %q (want line or paragraph)", ErrUnknownGranularity, s)
	}
}

// A blank-line run: a newline, optional whitespace, another newline.
var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Segment splits text into units at the given granularity. Units are returned
// untrimmed; callers match against them and trim only for the reported content.
func Segment(text string, g Granularity) []string {
	if g == GranularityParagraph {
		return paragraphBreak.Split(text, -1)
	}
	return strings.Split(text, "\n")
}

// normalizeNewlines maps \r\n and lone \r to \n.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
