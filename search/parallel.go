package search

import (
	"context"
	"sync"
)

// workerPool processes discovered file paths in parallel. Each file is
// independent; results go to a single collector, which owns the union.
type workerPool struct {
	workers   int
	processor *FileProcessor
	query     *Query
}

// run starts the workers and closes results once jobs is drained.
func (p *workerPool) run(ctx context.Context, jobs <-chan string, results chan<- FileResult) {
	n := p.workers
	if n < 1 {
		n = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go p.worker(ctx, jobs, results, &wg)
	}
	wg.Wait()
	close(results)
}

// worker processes search jobs until jobs is closed. After cancellation it
// keeps draining jobs without processing them so producers never block.
func (p *workerPool) worker(ctx context.Context, jobs <-chan string, results chan<- FileResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for path := range jobs {
		if ctx.Err() != nil {
			continue
		}
		results <- p.processor.Process(path, p.query)
	}
}
