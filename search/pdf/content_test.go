package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentStreamText(t *testing.T) {
	stream := "BT /F1 12 Tf 72 712 Td (Hello cat) Tj T* (second \\(line\\)) Tj ET\nBT (next) Tj ET"
	got := contentStreamText(stream, DefaultPerPageCap)
	assert.Equal(t, "Hello cat \nsecond (line) \nnext \n", got)
}

func TestContentStreamText_Cap(t *testing.T) {
	got := contentStreamText("(abcdefghij) Tj", 4)
	assert.Equal(t, "abcd", got)
}

func TestContentStreamText_OperatorNeedsDelimiters(t *testing.T) {
	// "SET" is not the ET operator
	assert.Equal(t, "a ", contentStreamText("/SET (a) Tj", DefaultPerPageCap))
}

func TestPageTexts_Unreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\nnot really a pdf"), 0o644))

	_, err := PageTexts(path)
	assert.Error(t, err)
}
