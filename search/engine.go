package search

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Logger is the subset of the console logger the search core writes to.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) LogDebug(string) {}
func (NopLogger) LogWarn(string)  {}

// ProgressFunc is an optional callback to report progress like: stage, processed, path
type ProgressFunc func(stage string, processed int, path string)

// ConcurrencyManager handles bounded concurrency for heavy operations
type ConcurrencyManager struct {
	sem chan struct{}
}

func NewConcurrencyManager(slots int) *ConcurrencyManager {
	if slots < 1 {
		slots = 1
	}
	return &ConcurrencyManager{sem: make(chan struct{}, slots)}
}

func (cm *ConcurrencyManager) Acquire() {
	cm.sem <- struct{}{}
}

func (cm *ConcurrencyManager) Release() {
	<-cm.sem
}

// ExecuteWithTimeout runs fn in its own goroutine holding a slot. On timeout the
// caller gets ErrTimeout; fn keeps its slot until it returns, so abandoned
// extractions still count against the bound.
func (cm *ConcurrencyManager) ExecuteWithTimeout(fn func(), timeout time.Duration) error {
	cm.Acquire()
	done := make(chan error, 1)

	go func() {
		defer cm.Release()
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("extractor panic: %v", r)
				return
			}
			done <- nil
		}()
		fn()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

// Request is one scan invocation.
type Request struct {
	Target      string
	Granularity Granularity
	Extensions  []string // empty selects every supported extension
	Roots       []string
}

// Stats counts what a scan touched.
type Stats struct {
	FilesVisited   int64
	FilesProcessed int64
	FilesSkipped   int64
	FilesFailed    int64
	DirsSkipped    int64
	Matches        int
	Elapsed        time.Duration
}

// Result is the union of matches across all roots of a Request.
type Result struct {
	Matches MatchSet
	Stats   Stats
}

// SearchEngine wires the tree scanner, worker pool and file processor together.
type SearchEngine struct {
	Processor  *FileProcessor
	Scanner    *TreeScanner
	Workers    int
	Logger     Logger
	OnProgress ProgressFunc
}

// NewSearchEngine creates an engine with default exclusions and one worker per CPU.
func NewSearchEngine() *SearchEngine {
	return &SearchEngine{
		Processor: NewFileProcessor(),
		Scanner:   NewTreeScanner(DefaultExclusions()),
		Workers:   runtime.NumCPU(),
		Logger:    NopLogger{},
	}
}

func (se *SearchEngine) logger() Logger {
	if se.Logger == nil {
		return NopLogger{}
	}
	return se.Logger
}

// Scan searches every root and returns the union of their matches. The only
// errors are an invalid request and cancellation of ctx; in the latter case the
// matches found so far are returned with the error.
func (se *SearchEngine) Scan(ctx context.Context, req Request) (*Result, error) {
	q, err := NewQuery(req.Target, req.Granularity, req.Extensions)
	if err != nil {
		return nil, err
	}
	return se.scan(ctx, req.Roots, q)
}

// ScanRoot searches a single root, a file or a directory subtree.
func (se *SearchEngine) ScanRoot(ctx context.Context, root string, q *Query) (MatchSet, error) {
	res, err := se.scan(ctx, []string{root}, q)
	if res == nil {
		return MatchSet{}, err
	}
	return res.Matches, err
}

// ProcessFile runs the file processor on one path and logs its failure, if any.
func (se *SearchEngine) ProcessFile(path string, q *Query) MatchSet {
	res := se.Processor.Process(path, q)
	if res.Err != nil {
		se.logger().LogWarn("skipping file: " + res.Err.fields())
	}
	return res.Matches
}

func (se *SearchEngine) scan(ctx context.Context, roots []string, q *Query) (*Result, error) {
	start := time.Now()
	log := se.logger()

	jobs := make(chan string, 256)
	results := make(chan FileResult, 256)

	scanner := se.Scanner
	if scanner == nil {
		scanner = NewTreeScanner(DefaultExclusions())
	}
	walkStats := &walkCounters{}

	// Producers: one walker per root, all feeding the same job stream.
	g, gctx := errgroup.WithContext(ctx)
	for _, root := range roots {
		root := root
		g.Go(func() error {
			return scanner.Walk(gctx, root, walkStats, log, func(path string) bool {
				select {
				case jobs <- path:
					return true
				case <-gctx.Done():
					return false
				}
			})
		})
	}
	go func() {
		_ = g.Wait()
		close(jobs)
	}()

	pool := &workerPool{workers: se.Workers, processor: se.Processor, query: q}
	go pool.run(ctx, jobs, results)

	result := &Result{Matches: MatchSet{}}
	var processed int
	for fr := range results {
		processed++
		switch {
		case fr.Skipped:
			result.Stats.FilesSkipped++
		case fr.Err != nil:
			result.Stats.FilesFailed++
			log.LogWarn("skipping file: " + fr.Err.fields())
		default:
			result.Stats.FilesProcessed++
			if len(fr.Matches) > 0 {
				log.LogDebug(fmt.Sprintf("matched file: path=%q matches=%d", fr.Path, len(fr.Matches)))
			}
		}
		result.Matches.Union(fr.Matches)
		if se.OnProgress != nil {
			se.OnProgress("scanning", processed, fr.Path)
		}
	}

	result.Stats.FilesVisited = walkStats.files()
	result.Stats.DirsSkipped = walkStats.dirs()
	result.Stats.Matches = len(result.Matches)
	result.Stats.Elapsed = time.Since(start)
	if se.OnProgress != nil {
		se.OnProgress("done", processed, "")
	}
	return result, ctx.Err()
}

// walkCounters is shared by concurrent root walkers.
type walkCounters struct {
	mu          sync.Mutex
	filesSeen   int64
	dirsSkipped int64
}

func (c *walkCounters) addFile() {
	c.mu.Lock()
	c.filesSeen++
	c.mu.Unlock()
}

func (c *walkCounters) addSkippedDir() {
	c.mu.Lock()
	c.dirsSkipped++
	c.mu.Unlock()
}

func (c *walkCounters) files() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filesSeen
}

func (c *walkCounters) dirs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirsSkipped
}
