package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Default caps for content stream extraction.
const (
	DefaultPageCap    = 200        // maximum number of pages to process
	DefaultPerPageCap = 128 * 1024 // 128 KiB per-page text cap
)

var pageNumberRegex = regexp.MustCompile(`(\d+)\D*$`)

// ContentStreamPages dumps each page's content stream with pdfcpu and collects
// the string literals shown on it, one string per page in page order. Text
// objects (BT..ET) and next-line operators end a line.
//   - pageCap: maximum number of pages to include (use <=0 for default)
//   - perPageCap: maximum bytes of text per page (use <=0 for default)
func ContentStreamPages(path string, pageCap, perPageCap int) (pages []string, err error) {
	if pageCap <= 0 {
		pageCap = DefaultPageCap
	}
	if perPageCap <= 0 {
		perPageCap = DefaultPerPageCap
	}

	// Panic protection around library call.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()

	tmpDir, err := os.MkdirTemp("", "textfinder_pdfcpu_*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := api.ExtractContentFile(path, tmpDir, nil, nil); err != nil {
		return nil, fmt.Errorf("pdfcpu ExtractContentFile: %w", err)
	}

	ents, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	type dump struct {
		page int
		name string
	}
	dumps := make([]dump, 0, len(ents))
	for _, de := range ents {
		if de.IsDir() {
			continue
		}
		page := 0
		if m := pageNumberRegex.FindStringSubmatch(strings.TrimSuffix(de.Name(), filepath.Ext(de.Name()))); m != nil {
			page, _ = strconv.Atoi(m[1])
		}
		dumps = append(dumps, dump{page: page, name: de.Name()})
	}
	sort.Slice(dumps, func(i, j int) bool {
		if dumps[i].page != dumps[j].page {
			return dumps[i].page < dumps[j].page
		}
		return dumps[i].name < dumps[j].name
	})

	for _, d := range dumps {
		if len(pages) >= pageCap {
			break
		}
		data, err := os.ReadFile(filepath.Join(tmpDir, d.name))
		if err != nil {
			continue
		}
		pages = append(pages, contentStreamText(string(data), perPageCap))
	}
	return pages, nil
}

// contentStreamText collects text within balanced parentheses, honoring
// backslash escapes, and caps output size.
func contentStreamText(s string, maxOut int) string {
	var out strings.Builder
	depth := 0
	escape := false
	in := false
	for i := 0; i < len(s); i++ {
		if out.Len() >= maxOut {
			break
		}
		c := s[i]
		if !in {
			switch {
			case c == '(':
				in = true
				depth = 1
			case isOperator(s, i, "ET"), isOperator(s, i, "T*"):
				out.WriteByte('\n')
			case c == '\'' || c == '"':
				out.WriteByte('\n')
			}
			continue
		}
		if escape {
			out.WriteByte(unescape(c))
			escape = false
			continue
		}
		switch c {
		case '\\':
			escape = true
		case '(':
			depth++
			out.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				in = false
				out.WriteByte(' ')
			} else {
				out.WriteByte(c)
			}
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// isOperator reports whether op starts at s[i] as a whitespace-delimited token.
func isOperator(s string, i int, op string) bool {
	if !strings.HasPrefix(s[i:], op) {
		return false
	}
	if i > 0 && !isPDFSpace(s[i-1]) {
		return false
	}
	end := i + len(op)
	return end == len(s) || isPDFSpace(s[end])
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	default:
		return c
	}
}
