package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"textfinder/config"
	"textfinder/search"
)

// previewLimit caps how many matches plain output lists; the report has all of them.
const previewLimit = 20

// terminalWidth returns the width of w when it is a terminal, 0 otherwise.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 0
	}
	return width
}

// createSeparator creates a separator line that fits the terminal width
func createSeparator(width int) string {
	switch {
	case width <= 0:
		width = 60
	case width > 120:
		width = 120
	}
	return separatorStyle.Render(strings.Repeat("━", width))
}

// truncateWidth shortens s to width display cells. A width of 0 or less disables truncation.
func truncateWidth(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// previewLine renders one match on a single line.
func previewLine(m search.Match) string {
	content := strings.Join(strings.Fields(m.Content), " ")
	if m.Row.Valid {
		return fmt.Sprintf("%s [row %d, %s]: %s", m.FileName, m.Row.Index, m.Column, content)
	}
	return fmt.Sprintf("%s: %s", m.FileName, content)
}

// printSearchInfo displays the scan configuration
func printSearchInfo(w io.Writer, inv *invocation, workers int) {
	width := terminalWidth(w)
	fmt.Fprintln(w, subHeaderStyle.Render("🚀 Whole-word search"))
	fmt.Fprintln(w, createSeparator(width))
	fmt.Fprintf(w, "%s %q (%s)\n", infoStyle.Render("Searching for:"), inv.req.Target, inv.req.Granularity)
	fmt.Fprintf(w, "%s %s\n", infoStyle.Render("Target files:"), config.GetFileTypeDescription(inv.req.Extensions))
	fmt.Fprintf(w, "%s %s\n", infoStyle.Render("Roots:"), strings.Join(inv.req.Roots, ", "))
	fmt.Fprintf(w, "%s %d\n", infoStyle.Render("Workers:"), workers)
	fmt.Fprintf(w, "%s %s\n", infoStyle.Render("Report:"), inv.output)
	fmt.Fprintln(w)
}

// printOutcome lists the first matches and the summary.
func printOutcome(w io.Writer, inv *invocation, out outcome) {
	if out.result != nil && len(out.result.Matches) > 0 {
		width := terminalWidth(w)
		sorted := out.result.Matches.Sorted()
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("📋 Found %d matches", len(sorted))))
		fmt.Fprintln(w, createSeparator(width))
		for i, m := range sorted {
			if i == previewLimit {
				fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("… and %d more in the report", len(sorted)-previewLimit)))
				break
			}
			fmt.Fprintln(w, truncateWidth(previewLine(m), width))
		}
		fmt.Fprintln(w)
	}
	printSummary(w, inv, out)
}

// printSummary prints the scan totals and the report line.
func printSummary(w io.Writer, inv *invocation, out outcome) {
	if out.result != nil {
		st := out.result.Stats
		if st.Matches == 0 {
			fmt.Fprintln(w, warningStyle.Render("🔍 No matches found"))
		}
		fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("📊 %d files searched, %d skipped, %d failed in %.2f seconds",
			st.FilesProcessed, st.FilesSkipped, st.FilesFailed, out.elapsed.Seconds())))
	}
	fmt.Fprintln(w, reportLine(inv, out))
}

func reportLine(inv *invocation, out outcome) string {
	if out.err != nil {
		return errorStyle.Render("✖ " + out.err.Error())
	}
	return successStyle.Render(fmt.Sprintf("📝 Report: %d row(s) appended to %s", out.written, inv.output))
}
