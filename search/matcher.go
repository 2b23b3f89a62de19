package search

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrEmptyTarget is returned when the search text is empty or only whitespace.
var ErrEmptyTarget = errors.New("search text is empty")

// WordMatcher tests text units for a whole-word, case-insensitive occurrence of a target string.
type WordMatcher struct {
	target string
	re     *regexp.Regexp
}

// NewWordMatcher builds a matcher for target. The words of target are matched
// literally, with regexp metacharacters quoted; the whitespace between them
// matches any whitespace run, line breaks included. Word boundaries are
// checked on Unicode letters, digits and underscore.
func NewWordMatcher(target string) (*WordMatcher, error) {
	words := strings.Fields(target)
	if len(words) == 0 {
		return nil, ErrEmptyTarget
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	pattern := `(?i)` + strings.Join(words, `[\s\p{Z}]+`)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern for %q: %w", target, err)
	}
	return &WordMatcher{target: target, re: re}, nil
}

// Target returns the literal search text.
func (wm *WordMatcher) Target() string { return wm.target }

// Matches reports whether unit contains the target as a delimited word.
func (wm *WordMatcher) Matches(unit string) bool {
	_, _, ok := wm.next(unit, 0)
	return ok
}

// Highlight rewrites every occurrence of the target in unit with mark.
func (wm *WordMatcher) Highlight(unit string, mark func(string) string) string {
	var b strings.Builder
	last := 0
	for pos := 0; ; {
		start, end, ok := wm.next(unit, pos)
		if !ok {
			break
		}
		b.WriteString(unit[last:start])
		b.WriteString(mark(unit[start:end]))
		last, pos = end, end
	}
	if last == 0 {
		return unit
	}
	b.WriteString(unit[last:])
	return b.String()
}

// next finds the first delimited occurrence at or after byte offset from.
// A candidate failing the boundary check is retried one rune later, so
// overlapping occurrences are not skipped.
func (wm *WordMatcher) next(unit string, from int) (start, end int, ok bool) {
	for from <= len(unit) {
		loc := wm.re.FindStringIndex(unit[from:])
		if loc == nil {
			return 0, 0, false
		}
		start, end = from+loc[0], from+loc[1]
		if isBoundary(unit, start) && isBoundary(unit, end) {
			return start, end, true
		}
		_, size := utf8.DecodeRuneInString(unit[start:])
		if size == 0 {
			size = 1
		}
		from = start + size
	}
	return 0, 0, false
}

// isBoundary reports whether byte offset pos of s lies between a word rune
// and a non-word rune, the text edges counting as non-word.
func isBoundary(s string, pos int) bool {
	before, after := false, false
	if pos > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:pos])
		before = isWordRune(r)
	}
	if pos < len(s) {
		r, _ := utf8.DecodeRuneInString(s[pos:])
		after = isWordRune(r)
	}
	return before != after
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || r == '_'
}
