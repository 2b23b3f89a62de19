//go:build !unix

package app

import "runtime"

// sampleMemoryAndCPU reports heap only; RSS stands in as total runtime memory
// and CPU is not sampled.
func sampleMemoryAndCPU() (mem struct{ heap, rss uint64 }, cpu float64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	mem.heap = ms.HeapAlloc
	mem.rss = ms.Sys
	return
}
