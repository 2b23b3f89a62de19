// Package pdf extracts plain text from PDF files one page at a time.
package pdf

import (
	"errors"
	"fmt"
	"os"

	lpdf "github.com/ledongthuc/pdf"
)

// ErrNoText is returned when neither extraction path yields any page text.
var ErrNoText = errors.New("no extractable text")

// PageTexts returns the plain text of every page in order. The text layer is
// read with ledongthuc/pdf; when that reader cannot open the file, string
// literals of the page content streams (via pdfcpu) are used instead.
func PageTexts(path string) ([]string, error) {
	pages, err := readPlainPages(path)
	if err == nil {
		return pages, nil
	}
	fallback, ferr := ContentStreamPages(path, DefaultPageCap, DefaultPerPageCap)
	if ferr != nil {
		return nil, fmt.Errorf("%w (fallback: %v)", err, ferr)
	}
	if len(fallback) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoText, err)
	}
	return fallback, nil
}

// readPlainPages opens the PDF with ledongthuc/pdf. Failures opening the
// document are returned; a page that panics or errors contributes "".
func readPlainPages(path string) (pages []string, err error) {
	// Guard against any panics from the PDF library.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := lpdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, pageText(reader, i))
	}
	return pages, nil
}

func pageText(reader *lpdf.Reader, i int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()
	page := reader.Page(i)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}
