package search

import (
	"sort"
	"strconv"
	"strings"
)

// NotApplicable is the rendering of a row or column reference for non-tabular matches.
const NotApplicable = "N/A"

// RowRef is a tabular row index, or "not applicable" when Valid is false.
type RowRef struct {
	Index int
	Valid bool
}

// Row returns a populated row reference.
func Row(i int) RowRef { return RowRef{Index: i, Valid: true} }

func (r RowRef) String() string {
	if !r.Valid {
		return NotApplicable
	}
	return strconv.Itoa(r.Index)
}

// ColumnRef is a tabular column label, or "not applicable" when Valid is false.
type ColumnRef struct {
	Label string
	Valid bool
}

// Column returns a populated column reference.
func Column(label string) ColumnRef { return ColumnRef{Label: label, Valid: true} }

func (c ColumnRef) String() string {
	if !c.Valid {
		return NotApplicable
	}
	return c.Label
}

// Match is one attributed occurrence. It is a comparable value: two matches are
// the same match iff every field is equal, which is what MatchSet deduplicates on.
type Match struct {
	FileName string
	Row      RowRef
	Column   ColumnRef
	Content  string
}

// Record renders the match as the four report fields: file name, row, column, content.
func (m Match) Record() []string {
	return []string{m.FileName, m.Row.String(), m.Column.String(), m.Content}
}

// MatchSet is a set of matches keyed by full-tuple equality.
type MatchSet map[Match]struct{}

// NewMatchSet returns a set holding ms.
func NewMatchSet(ms ...Match) MatchSet {
	s := make(MatchSet, len(ms))
	for _, m := range ms {
		s.Add(m)
	}
	return s
}

func (s MatchSet) Add(m Match) { s[m] = struct{}{} }

func (s MatchSet) Contains(m Match) bool {
	_, ok := s[m]
	return ok
}

// Union adds every match of other into s and returns s.
func (s MatchSet) Union(other MatchSet) MatchSet {
	for m := range other {
		s[m] = struct{}{}
	}
	return s
}

// Sorted returns the matches ordered by file name, row, column and content.
func (s MatchSet) Sorted() []Match {
	out := make([]Match, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FileName != b.FileName {
			return a.FileName < b.FileName
		}
		if a.Row.Valid != b.Row.Valid {
			return !a.Row.Valid
		}
		if a.Row.Index != b.Row.Index {
			return a.Row.Index < b.Row.Index
		}
		if c := strings.Compare(a.Column.Label, b.Column.Label); c != 0 {
			return c < 0
		}
		return a.Content < b.Content
	})
	return out
}
