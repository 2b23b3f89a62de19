package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"textfinder/config"
	"textfinder/search"
)

var errInterrupted = errors.New("scan interrupted, report not written")

var titleCase = cases.Title(language.English)

// progressMsg updates the top progress line while loading.
// Format in View: "⏳ {Stage} [count]: filename"
type progressMsg struct {
	Stage string
	Count int
	Path  string
}

// progressTracker keeps the newest progress report from the scan goroutine.
type progressTracker struct {
	mu     sync.Mutex
	latest progressMsg
	have   bool
}

func (p *progressTracker) update(stage string, processed int, path string) {
	p.mu.Lock()
	p.latest = progressMsg{Stage: stage, Count: processed, Path: path}
	p.have = true
	p.mu.Unlock()
}

func (p *progressTracker) snapshot() (progressMsg, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.have
}

// Styles (shared with the usage output)
var (
	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7"))

	subHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dcfff")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a9b1d6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f7768e")).
			Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f7768e")).
			Bold(true)
)

// filePage is every match of one file, shown as one page of the result box.
type filePage struct {
	name    string
	matches []search.Match
}

// groupByFile splits sorted matches into one page per file name.
func groupByFile(sorted []search.Match) []filePage {
	var pages []filePage
	for _, m := range sorted {
		if n := len(pages); n > 0 && pages[n-1].name == m.FileName {
			pages[n-1].matches = append(pages[n-1].matches, m)
			continue
		}
		pages = append(pages, filePage{name: m.FileName, matches: []search.Match{m}})
	}
	return pages
}

type model struct {
	// Results and paging
	pages         []filePage
	currentPage   int
	totalPages    int
	contentScroll int

	// Session and timing
	started    time.Time
	searchTime time.Duration
	quitting   bool
	loading    bool
	outcome    *outcome

	// Window size
	width  int
	height int

	// Scan
	inv      *invocation
	engine   *search.SearchEngine
	matcher  *search.WordMatcher
	cancel   context.CancelFunc
	progress *progressTracker

	// UI state
	confirmSelected string // "yes" or "no"
	memUsageText    string // e.g., " • Heap 12.0 MB • Peak RSS 40.2 MB • CPU 97.0%"
	progressText    string // e.g., "Scanning [12]: report.pdf"
	scanned         int
}

func newModel(cancel context.CancelFunc, se *search.SearchEngine, inv *invocation) model {
	tracker := &progressTracker{}
	se.OnProgress = tracker.update
	matcher, _ := search.NewWordMatcher(inv.req.Target)
	return model{
		started:         time.Now(),
		loading:         true,
		inv:             inv,
		engine:          se,
		matcher:         matcher,
		cancel:          cancel,
		progress:        tracker,
		confirmSelected: "yes",
	}
}

// runLive runs the scan behind the full-screen view. Leaving the view cancels
// a scan still in progress, then waits for it: a report write that already
// began finishes, and the summary describes what actually happened.
func runLive(ctx context.Context, se *search.SearchEngine, inv *invocation) (outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(cancel, se, inv), tea.WithAltScreen())
	done := startScan(ctx, se, inv, p.Send)
	_, err := p.Run()
	cancel()
	out := <-done
	if err != nil {
		return out, err
	}
	printSummary(os.Stdout, inv, out)
	return out, nil
}

// startScan runs execute in the background. The outcome goes to send for the
// view and to the returned channel for the caller. send must not block once
// the view has exited, which holds for tea.Program.Send.
func startScan(ctx context.Context, se *search.SearchEngine, inv *invocation, send func(tea.Msg)) <-chan outcome {
	done := make(chan outcome, 1)
	go func() {
		out := execute(ctx, se, inv)
		done <- out
		send(searchResultMsg{outcome: out})
	}()
	return done
}

func (m model) Init() tea.Cmd {
	// Progress polling starts with the view; the scan itself is started by runLive.
	return tea.Batch(pollProgress(), m.memUsageTick())
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.loading && m.cancel != nil {
		m.cancel()
	}
	return m, tea.Quit
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// While loading, only allow quit
		if m.loading {
			switch msg.String() {
			case "q", "ctrl+c":
				return m.quit()
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m.quit()
		case "left", "h":
			m.confirmSelected = "yes"
			return m, nil
		case "right", "l":
			m.confirmSelected = "no"
			return m, nil

		case "enter":
			if m.confirmSelected == "no" {
				return m.quit()
			}
			// default/"yes": advance or quit if at end
			if m.currentPage < m.totalPages-1 {
				m.currentPage++
				m.contentScroll = 0
				return m, nil
			}
			return m.quit()

		case "n", " ":
			if m.currentPage < m.totalPages-1 {
				m.currentPage++
			}
			m.contentScroll = 0
			return m, nil
		case "p":
			if m.currentPage > 0 {
				m.currentPage--
			}
			m.contentScroll = 0
			return m, nil

		case "home":
			m.currentPage = 0
			m.contentScroll = 0
			return m, nil
		case "end":
			m.currentPage = m.totalPages - 1
			m.contentScroll = 0
			return m, nil
		case "up", "k":
			if m.contentScroll > 0 {
				m.contentScroll--
			}
			return m, nil
		case "down", "j":
			m.contentScroll++
			return m, nil
		case "pgup":
			m.contentScroll -= 5
			if m.contentScroll < 0 {
				m.contentScroll = 0
			}
			return m, nil
		case "pgdown":
			m.contentScroll += 5
			return m, nil
		}
		return m, nil

	case searchResultMsg:
		out := msg.outcome
		m.outcome = &out
		m.searchTime = out.elapsed
		if out.result != nil {
			m.pages = groupByFile(out.result.Matches.Sorted())
			m.scanned = int(out.result.Stats.FilesVisited)
		}
		m.totalPages = len(m.pages)
		if m.totalPages == 0 {
			m.totalPages = 1
		}
		m.currentPage = 0
		m.confirmSelected = "yes"
		m.loading = false
		return m, nil

	case memUsageMsg:
		m.memUsageText = msg.Text
		return m, m.memUsageTick()

	case progressTick:
		if !m.loading {
			return m, nil
		}
		if lp, ok := m.progress.snapshot(); ok {
			m.scanned = lp.Count
			m.progressText = fmt.Sprintf("%s [%d]: %s", titleCase.String(lp.Stage), lp.Count, lp.Path)
		}
		return m, pollProgress()
	}
	return m, nil
}

func (m model) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 120
	}
	if height <= 0 {
		height = 30
	}

	if m.quitting {
		return "Goodbye!\n"
	}

	// Build header lines
	var headerLines []string
	headerLines = append(headerLines, "", logo(), "")

	headerLines = append(headerLines, subHeaderStyle.Render(fmt.Sprintf("🔍 Searching: %q (%s)", m.inv.req.Target, m.inv.req.Granularity)))

	targetStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	headerLines = append(headerLines, targetStyled.Render(wrapTextWithIndent("📁 Target: ", config.GetFileTypeDescription(m.inv.req.Extensions), width-4)))
	headerLines = append(headerLines, targetStyled.Render(wrapTextWithIndent("📂 Roots: ", strings.Join(m.inv.req.Roots, ", "), width-4)))

	// Engine line with workers + RAM/CPU live
	engine := fmt.Sprintf("⚙️ Engine: Workers %d%s", m.engine.Workers, m.memUsageText)
	engineStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7"))
	headerLines = append(headerLines, engineStyled.Render(engine))

	// Elapsed search time (freezes after completion)
	var minutes float64
	if m.loading {
		minutes = time.Since(m.started).Minutes()
	} else {
		minutes = m.searchTime.Minutes()
	}
	matches := 0
	for _, p := range m.pages {
		matches += len(p.matches)
	}
	elapsed := fmt.Sprintf("⏱️ Searched: %.2f minutes • %d files • Matched: %d in %d files", minutes, m.scanned, matches, len(m.pages))
	elapsedStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	headerLines = append(headerLines, elapsedStyled.Render(elapsed))

	if m.outcome != nil {
		headerLines = append(headerLines, reportLine(m.inv, *m.outcome))
	}

	searchInfo := strings.Join(headerLines, "\n")
	headerHeight := strings.Count(searchInfo, "\n") + 1
	progressHeight := 1     // always reserved so the box does not move
	bottomStatusHeight := 1 // single line for the continue buttons
	footerHeight := 1

	var parts []string
	parts = append(parts, searchInfo)
	if m.loading {
		txt := "⏳ Processing"
		if m.progressText != "" {
			txt = "⏳ " + m.progressText
		}
		progressStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff"))
		parts = append(parts, progressStyled.Render(truncateWidth(txt, width-2)))
	} else {
		parts = append(parts, "")
	}

	// Main content box
	innerWidth := (width - 4) - 6
	if innerWidth < 10 {
		innerWidth = 10
	}
	var boxContent string
	switch {
	case m.loading:
		boxContent = "Searching..."
	case len(m.pages) == 0:
		boxContent = "No matches found."
	default:
		page := m.pages[m.currentPage]
		var b strings.Builder
		fmt.Fprintf(&b, "File: %s (%d matches)\n\n", page.name, len(page.matches))
		for i, match := range page.matches {
			label := subHeaderStyle.Render(matchLabel(i, match))
			b.WriteString(wrapTextWithIndent(label, m.highlight(match.Content), innerWidth))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "File %d of %d", m.currentPage+1, len(m.pages))
		boxContent = b.String()
	}

	boxOuterWidth := width - 4
	chromeHeight := 4
	contentHeight := height - headerHeight - progressHeight - bottomStatusHeight - footerHeight - chromeHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	// Window the box content according to contentScroll
	lines := strings.Split(boxContent, "\n")
	maxStart := 0
	if len(lines) > contentHeight {
		maxStart = len(lines) - contentHeight
	}
	start := m.contentScroll
	if start > maxStart {
		start = maxStart
	}
	end := start + contentHeight
	if end > len(lines) {
		end = len(lines)
	}
	window := strings.Join(lines[start:end], "\n")
	parts = append(parts, appStyle.Width(boxOuterWidth).Height(contentHeight).Render(window))

	// Non-scrolling bottom status
	var bottomStatus string
	if !m.loading && len(m.pages) > 0 {
		yesSel := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1a1b26")).
			Background(lipgloss.Color("#9ece6a")).
			Padding(0, 1)
		yesUn := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Padding(0, 1)
		noSel := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#c0caf5")).
			Background(lipgloss.Color("#414868")).
			Padding(0, 1)
		noUn := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89")).
			Padding(0, 1)

		var yesBtn, noBtn string
		if m.confirmSelected == "no" {
			yesBtn = yesUn.Render("[ Yes ]")
			noBtn = noSel.Render("[ No ]")
		} else {
			yesBtn = yesSel.Render("[ Yes ]")
			noBtn = noUn.Render("[ No ]")
		}
		bottomStatus = infoStyle.Render("Continue? ") + yesBtn + "    " + noBtn
	}
	parts = append(parts, bottomStatus)

	quitInstruction := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Align(lipgloss.Center).
		Render("🔚 'ENTER' continue • 'q' quit • p: previous • n: next • ↑/↓ scroll")
	parts = append(parts, quitInstruction)

	return strings.Join(parts, "\n")
}

func (m model) highlight(content string) string {
	if m.matcher == nil {
		return content
	}
	return m.matcher.Highlight(content, func(s string) string { return highlightStyle.Render(s) })
}

// matchLabel names a match by its cell for tabular files, by ordinal otherwise.
func matchLabel(i int, m search.Match) string {
	if m.Row.Valid {
		return fmt.Sprintf("Row %d • %s: ", m.Row.Index, m.Column)
	}
	return fmt.Sprintf("Match %d: ", i+1)
}

// Background search command
func wrapTextWithIndent(prefix, text string, width int) string {
	prefixWidth := lipgloss.Width(prefix)
	indent := strings.Repeat(" ", prefixWidth)
	wrapped := lipgloss.NewStyle().Width(width - prefixWidth).Render(text)
	return prefix + strings.ReplaceAll(wrapped, "\n", "\n"+indent)
}

func (m model) memUsageTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		mem, cpu := sampleMemoryAndCPU()
		return memUsageMsg{Text: fmt.Sprintf(" • Heap %s • Peak RSS %s • CPU %5.1f%%", formatBytes(mem.heap), formatBytes(mem.rss), cpu)}
	})
}

func pollProgress() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(time.Time) tea.Msg {
		return progressTick{}
	})
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// Messages for TUI updates
type searchResultMsg struct {
	outcome outcome
}

type memUsageMsg struct {
	Text string
}

type progressTick struct{}
