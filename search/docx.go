package search

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var errNoDocumentPart = errors.New("word/document.xml not found")

// readDocxParagraphs returns the text of every w:p element in document order,
// including paragraphs inside table cells.
func readDocxParagraphs(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open document part: %w", err)
		}
		defer rc.Close()
		return parseDocxParagraphs(rc)
	}
	return nil, errNoDocumentPart
}

// parseDocxParagraphs streams a WordprocessingML document part. A paragraph slot is
// reserved when its w:p opens, so nested paragraphs (text boxes) keep start order.
func parseDocxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []*strings.Builder
		open       []int // indices into paragraphs, innermost last
		inText     bool
		inProps    int // depth inside w:pPr, where w:tab declares tab stops
	)

	current := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return paragraphs[open[len(open)-1]]
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				paragraphs = append(paragraphs, &strings.Builder{})
				open = append(open, len(paragraphs)-1)
			case "pPr":
				inProps++
			case "t":
				inText = true
			case "tab":
				if b := current(); b != nil && inProps == 0 {
					b.WriteByte('\t')
				}
			case "br", "cr":
				if b := current(); b != nil && inProps == 0 {
					b.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				if len(open) > 0 {
					open = open[:len(open)-1]
				}
			case "pPr":
				if inProps > 0 {
					inProps--
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if !inText {
				continue
			}
			if b := current(); b != nil {
				b.Write(t)
			}
		}
	}

	out := make([]string, len(paragraphs))
	for i, b := range paragraphs {
		out[i] = b.String()
	}
	return out, nil
}
