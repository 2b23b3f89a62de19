package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"textfinder/config"
	"textfinder/logger"
	"textfinder/report"
	"textfinder/search"
	"textfinder/volumes"
)

// Version is set at build time with -ldflags "-X textfinder/app.Version=...".
var Version = "1.0.0"

// options holds raw flag values before they are merged over the config file.
type options struct {
	configPath  string
	extensions  []string
	returnType  string
	output      string
	inputs      []string
	target      string
	workers     int
	logLevel    string
	logFile     string
	maxFileSize int64
	fileTimeout string
	plain       bool
}

// invocation is a fully resolved scan: merged config, request and report target.
type invocation struct {
	cfg    *config.Config
	req    search.Request
	output string
	plain  bool
}

// NewRootCommand creates the textfinder command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{})
}

func newRootCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "textfinder -s <word> -o <report.xlsx|report.csv> [-i <path>...]",
		Short: "Whole-word search across text, office and PDF files",
		Long: `textfinder searches txt, docx, pdf, csv, xls and xlsx files for a word or
phrase (whole word, case-insensitive) and appends every matching line,
paragraph or spreadsheet cell to an Excel or CSV report.

Without --input every available storage volume is searched. System
directories (Program Files, Windows, AppData) are never descended into.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&o.extensions, "file-extensions", "f", nil, "Comma-separated file types to search: "+strings.Join(search.SupportedExtensions(), ", ")+" (default all)")
	f.StringVarP(&o.returnType, "return-type", "r", string(search.GranularityLine), "Unit of text to return: line or paragraph")
	f.StringVarP(&o.output, "output", "o", "", "Report file to create or append to (.xlsx or .csv)")
	f.StringArrayVarP(&o.inputs, "input", "i", nil, "File or directory to search (repeatable; default every volume)")
	f.StringVarP(&o.target, "search", "s", "", "Word or phrase to search for")
	f.StringVar(&o.configPath, "config", "", "Path to a YAML or TOML config file")
	f.IntVar(&o.workers, "workers", 0, "Files processed in parallel (default one per CPU)")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	f.StringVar(&o.logFile, "log-file", "", "Also write logs to this file (rotated)")
	f.Int64Var(&o.maxFileSize, "max-file-size", 0, "Skip files larger than this many bytes (0 = unlimited)")
	f.StringVar(&o.fileTimeout, "file-timeout", "", "Give up on a single file after this long, e.g. 30s (0 = never)")
	f.BoolVar(&o.plain, "plain", false, "Print plain output instead of the live view")
	_ = cmd.MarkFlagRequired("search")
	_ = cmd.MarkFlagRequired("output")

	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		showUsage(c.OutOrStdout())
	})
	cmd.SetVersionTemplate(successStyle.Render("textfinder v{{.Version}}") + "\n")
	return cmd
}

// Run executes the root command and returns a process exit code.
func Run() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

// resolve merges changed flags over the config file and builds the request.
// Positional arguments are extra input roots.
func (o *options) resolve(cmd *cobra.Command, args []string) (*invocation, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("file-extensions") {
		cfg.Extensions = config.ParseExtensions(o.extensions)
	}
	if flags.Changed("return-type") {
		cfg.Granularity = o.returnType
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile.Path = o.logFile
	}
	if flags.Changed("max-file-size") {
		cfg.MaxFileSize = o.maxFileSize
	}
	if flags.Changed("file-timeout") {
		cfg.FileTimeout = o.fileTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	g, err := search.ParseGranularity(cfg.Granularity)
	if err != nil {
		return nil, err
	}
	if _, err := search.NewQuery(o.target, g, cfg.Extensions); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(o.output)) {
	case ".xlsx", ".csv":
	default:
		return nil, fmt.Errorf("%w: %q", report.ErrUnsupportedFormat, o.output)
	}

	if err := checkPositionalRoots(args); err != nil {
		return nil, err
	}
	roots := append(append([]string{}, o.inputs...), args...)
	if len(roots) == 0 {
		roots, err = volumes.Roots()
		if err != nil {
			return nil, fmt.Errorf("list volumes: %w", err)
		}
	}

	return &invocation{
		cfg: cfg,
		req: search.Request{
			Target:      o.target,
			Granularity: g,
			Extensions:  cfg.Extensions,
			Roots:       roots,
		},
		output: o.output,
		plain:  o.plain,
	}, nil
}

// checkPositionalRoots rejects a positional argument that names a file type
// rather than an existing path. "-f txt pdf" otherwise searches a root named
// "pdf" and silently drops pdf from the filter.
func checkPositionalRoots(args []string) error {
	for _, arg := range args {
		if !search.IsSupportedExtension(arg) {
			continue
		}
		if _, err := os.Stat(arg); err == nil {
			continue
		}
		return fmt.Errorf("%q looks like a file type, not an input path; pass types as -f txt,%s or repeat -f",
			arg, search.NormalizeExtension(arg))
	}
	return nil
}

func (o *options) run(cmd *cobra.Command, args []string) error {
	inv, err := o.resolve(cmd, args)
	if err != nil {
		return err
	}

	live := !inv.plain && interactive(cmd.OutOrStdout())

	// The live view owns the terminal, so logs go to the log file only.
	var console io.Writer = cmd.ErrOrStderr()
	if live {
		console = nil
	}
	log, closeLog, err := newLogger(inv.cfg, console)
	if err != nil {
		return err
	}
	defer closeLog()

	se, err := newEngine(inv.cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	log.LogScanStart(inv.req)
	var out outcome
	if live {
		out, err = runLive(ctx, se, inv)
		if err != nil {
			return err
		}
	} else {
		printSearchInfo(cmd.OutOrStdout(), inv, se.Workers)
		out = execute(ctx, se, inv)
		printOutcome(cmd.OutOrStdout(), inv, out)
	}

	if out.result != nil {
		log.LogScanSummary(out.result.Stats)
	}
	if out.err != nil {
		log.LogError(out.err.Error())
		return out.err
	}
	log.LogInfo(fmt.Sprintf("Wrote %d row(s) to %s", out.written, inv.output))
	return nil
}

// outcome is the end state of one scan plus its report write.
type outcome struct {
	result  *search.Result
	written int
	elapsed time.Duration
	err     error
}

// execute scans and appends the matches to the report. An interrupted scan
// writes nothing.
func execute(ctx context.Context, se *search.SearchEngine, inv *invocation) outcome {
	start := time.Now()
	res, err := se.Scan(ctx, inv.req)
	out := outcome{result: res, elapsed: time.Since(start)}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			out.err = errInterrupted
		} else {
			out.err = err
		}
		return out
	}
	out.written, err = report.Write(inv.output, res.Matches, report.Options{Sheet: inv.cfg.OutputSheet})
	if err != nil {
		out.err = fmt.Errorf("write report %s: %w", inv.output, err)
	}
	return out
}

// newLogger builds the leveled logger over console and the optional rotating
// log file. The returned func closes the file.
func newLogger(cfg *config.Config, console io.Writer) (logger.Logger, func(), error) {
	file, err := logger.OpenFile(logger.FileConfig{
		Path:       cfg.LogFile.Path,
		MaxSize:    cfg.LogFile.MaxSizeMB,
		MaxBackups: cfg.LogFile.MaxBackups,
		MaxAge:     cfg.LogFile.MaxAgeDays,
		Compress:   cfg.LogFile.Compress,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	closeFn := func() {}
	var fileWriter io.Writer
	if file != nil {
		fileWriter = file
		closeFn = func() { _ = file.Close() }
	}

	w := logger.Tee(console, fileWriter)
	if w == nil {
		return logger.NewNoOpLogger(), closeFn, nil
	}
	return logger.NewConsoleLogger(w, cfg.LogLevel), closeFn, nil
}

func newEngine(cfg *config.Config, log search.Logger) (*search.SearchEngine, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	se := search.NewSearchEngine()
	se.Processor.MaxFileSize = cfg.MaxFileSize
	se.Processor.FileTimeout = timeout
	se.Scanner = search.NewTreeScanner(cfg.Exclusions)
	if cfg.Workers > 0 {
		se.Workers = cfg.Workers
	}
	se.Logger = log
	return se, nil
}

// interactive reports whether w is a terminal the live view can take over.
func interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func logo() string {
	logoTop := " ▀█▀ █▀▀"
	logoBottom := fmt.Sprintf("  █  █▀   textfinder v%s", Version)
	if len(logoTop) < len(logoBottom) {
		logoTop += strings.Repeat(" ", len(logoBottom)-len(logoTop))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")).Render(logoTop + "\n" + logoBottom)
}

// showUsage (styled)
func showUsage(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, logo())
	fmt.Fprintln(w)

	fmt.Fprintln(w, subHeaderStyle.Render("USAGE"))
	fmt.Fprintln(w, infoStyle.Render(wrapTextWithIndent("  textfinder ", "-s <word> -o <report.xlsx|report.csv> [-i <path>...] [-f <ext>,<ext>] [-r line|paragraph] [flags]", 100)))
	fmt.Fprintln(w)

	fmt.Fprintln(w, subHeaderStyle.Render("FLAGS"))
	fmt.Fprintln(w, infoStyle.Render("  -s, --search WORD         Word or phrase to find (whole word, any case)"))
	fmt.Fprintln(w, infoStyle.Render("  -o, --output FILE         Report to create or append to (.xlsx or .csv)"))
	fmt.Fprintln(w, infoStyle.Render("  -i, --input PATH          File or directory to search; repeatable (default every volume)"))
	fmt.Fprintln(w, infoStyle.Render("  -f, --file-extensions X   "+strings.Join(search.SupportedExtensions(), ", ")+" (default all)"))
	fmt.Fprintln(w, infoStyle.Render("                            Comma-separated or repeated: -f txt,pdf or -f txt -f pdf"))
	fmt.Fprintln(w, infoStyle.Render("  -r, --return-type MODE    line or paragraph (default line)"))
	fmt.Fprintln(w, infoStyle.Render("      --config FILE         YAML or TOML defaults for every flag below"))
	fmt.Fprintln(w, infoStyle.Render("      --workers N           Files processed in parallel (default one per CPU)"))
	fmt.Fprintln(w, infoStyle.Render("      --max-file-size N     Skip files larger than N bytes (default unlimited)"))
	fmt.Fprintln(w, infoStyle.Render("      --file-timeout D      Give up on one file after D, e.g. 30s"))
	fmt.Fprintln(w, infoStyle.Render("      --log-level LEVEL     trace, debug, info, warn, error (default info)"))
	fmt.Fprintln(w, infoStyle.Render("      --log-file FILE       Also log to a rotated file"))
	fmt.Fprintln(w, infoStyle.Render("      --plain               Plain output instead of the live view"))
	fmt.Fprintln(w, infoStyle.Render("  -h, --help                Show help"))
	fmt.Fprintln(w, infoStyle.Render("  -v, --version             Show version"))
	fmt.Fprintln(w)

	fmt.Fprintln(w, subHeaderStyle.Render("EXAMPLES"))
	fmt.Fprintln(w, infoStyle.Render("  textfinder -s invoice -o hits.xlsx"))
	fmt.Fprintln(w, infoStyle.Render("  textfinder -s \"net total\" -r paragraph -i ~/Documents -o hits.xlsx"))
	fmt.Fprintln(w, infoStyle.Render("  textfinder -s alice -f csv,xlsx -i /srv/share -i /data -o people.csv"))
	fmt.Fprintln(w)
}
