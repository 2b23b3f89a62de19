package search

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

var (
	// ErrFileTooLarge is returned for files above the configured size cap.
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrTimeout is returned when extraction outlives the per-file time budget.
	ErrTimeout = errors.New("extraction timed out")
)

// Stage names where a per-file or per-directory failure happened.
type Stage string

const (
	StageOpen    Stage = "open"
	StageExtract Stage = "extract"
	StageTimeout Stage = "timeout"
	StageWalk    Stage = "walk"
)

// FileError is the typed failure a file or directory contributes instead of matches.
type FileError struct {
	Path   string
	Stage  Stage
	Format string
	Err    error
}

func (e *FileError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Stage, e.Path, e.Format, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// fields renders the failure as key=value pairs for log lines.
func (e *FileError) fields() string {
	var b strings.Builder
	fmt.Fprintf(&b, "path=%q stage=%s", e.Path, e.Stage)
	if e.Format != "" {
		fmt.Fprintf(&b, " format=%s", e.Format)
	}
	fmt.Fprintf(&b, " err=%q", e.Err.Error())
	return b.String()
}

// Query is a validated, compiled search request for a single target.
type Query struct {
	Matcher     *WordMatcher
	Granularity Granularity
	extensions  map[string]bool
}

// NewQuery compiles target and validates extensions against the supported set.
// An empty extension list selects every supported extension.
func NewQuery(target string, g Granularity, extensions []string) (*Query, error) {
	matcher, err := NewWordMatcher(target)
	if err != nil {
		return nil, err
	}
	if g != GranularityLine && g != GranularityParagraph {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}
	if len(extensions) == 0 {
		extensions = SupportedExtensions()
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = NormalizeExtension(ext)
		if !IsSupportedExtension(ext) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
		}
		allowed[ext] = true
	}
	return &Query{Matcher: matcher, Granularity: g, extensions: allowed}, nil
}

// Allows reports whether path has an allowed extension.
func (q *Query) Allows(path string) bool {
	return q.extensions[FileExtension(path)]
}

// FileResult is the outcome of processing one file: its matches, or the reason it has none.
type FileResult struct {
	Path    string
	Skipped bool // extension not allowed; no extraction attempted
	Matches MatchSet
	Err     *FileError
}

// FileProcessor runs the extractor for one file and applies the matcher.
type FileProcessor struct {
	Registry    *ExtractorRegistry
	MaxFileSize int64         // 0 means unlimited
	FileTimeout time.Duration // 0 means no time budget
	Concurrency *ConcurrencyManager
}

// NewFileProcessor returns a processor over the built-in extractors with no size or time guard.
func NewFileProcessor() *FileProcessor {
	return &FileProcessor{
		Registry:    NewExtractorRegistry(),
		Concurrency: NewConcurrencyManager(runtime.NumCPU()),
	}
}

// Process extracts and matches one file. It never returns an error: failures
// come back as FileResult.Err with an empty match set.
func (fp *FileProcessor) Process(path string, q *Query) FileResult {
	res := FileResult{Path: path, Matches: MatchSet{}}

	ext := FileExtension(path)
	if !q.Allows(path) {
		res.Skipped = true
		return res
	}
	extractor, ok := fp.Registry.GetExtractor(ext)
	if !ok {
		res.Skipped = true
		return res
	}

	fail := func(stage Stage, err error) FileResult {
		res.Err = &FileError{Path: path, Stage: stage, Format: extractor.Name(), Err: err}
		return res
	}

	if fp.MaxFileSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return fail(StageOpen, err)
		}
		if info.Size() > fp.MaxFileSize {
			return fail(StageOpen, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, info.Size(), fp.MaxFileSize))
		}
	}

	units, err := fp.extract(extractor, path, q.Granularity)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return fail(StageTimeout, err)
		}
		return fail(StageExtract, err)
	}

	name := filepath.Base(path)
	for _, u := range units {
		if !q.Matcher.Matches(u.Text) {
			continue
		}
		content := u.Text
		if extractor.Family() == FamilyText {
			content = strings.TrimSpace(content)
		}
		res.Matches.Add(Match{FileName: name, Row: u.Row, Column: u.Column, Content: content})
	}
	return res
}

// extract runs the extractor, under the time budget when one is set. Panics
// escaping an extractor become errors.
func (fp *FileProcessor) extract(extractor Extractor, path string, g Granularity) (units []Unit, err error) {
	run := func() {
		defer func() {
			if r := recover(); r != nil {
				units, err = nil, fmt.Errorf("extractor panic: %v", r)
			}
		}()
		units, err = extractor.Extract(path, g)
	}

	if fp.FileTimeout <= 0 {
		run()
		return units, err
	}

	cm := fp.Concurrency
	if cm == nil {
		cm = NewConcurrencyManager(1)
	}
	var (
		out    []Unit
		outErr error
	)
	if terr := cm.ExecuteWithTimeout(func() {
		u, e := extractor.Extract(path, g)
		out, outErr = u, e
	}, fp.FileTimeout); terr != nil {
		return nil, terr
	}
	return out, outErr
}
