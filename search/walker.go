package search

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExclusions are path fragments of system and per-user application data
// locations that are never descended into.
func DefaultExclusions() []string {
	return []string{
		"Program Files",
		"Program Files (x86)",
		"Windows",
		"AppData",
	}
}

// TreeScanner walks a root, applying the exclusion policy to directories.
type TreeScanner struct {
	exclusions []string // lower-cased
}

// NewTreeScanner creates a scanner skipping any directory whose path contains
// one of exclusions, case-insensitively.
func NewTreeScanner(exclusions []string) *TreeScanner {
	ts := &TreeScanner{}
	for _, e := range exclusions {
		if e = strings.TrimSpace(e); e != "" {
			ts.exclusions = append(ts.exclusions, strings.ToLower(e))
		}
	}
	return ts
}

// IsExcluded reports whether the directory path falls under the exclusion policy.
func (ts *TreeScanner) IsExcluded(dir string) bool {
	lower := strings.ToLower(dir)
	for _, e := range ts.exclusions {
		if strings.Contains(lower, e) {
			return true
		}
	}
	return false
}

// Walk calls emit for every regular file under root. A root naming a regular
// file is emitted directly without the exclusion check. Unreadable entries are
// logged and skipped. Walk stops when emit returns false or ctx is done, and
// only then returns a non-nil error.
func (ts *TreeScanner) Walk(ctx context.Context, root string, counters *walkCounters, log Logger, emit func(path string) bool) error {
	if counters == nil {
		counters = &walkCounters{}
	}

	info, err := os.Stat(root)
	if err != nil {
		log.LogWarn("skipping root: " + (&FileError{Path: root, Stage: StageWalk, Err: err}).fields())
		return nil
	}
	if info.Mode().IsRegular() {
		counters.addFile()
		if !emit(root) {
			return ctx.Err()
		}
		return nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Skip files and directories we can't access
			log.LogWarn("skipping entry: " + (&FileError{Path: path, Stage: StageWalk, Err: err}).fields())
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if ts.IsExcluded(path) {
				counters.addSkippedDir()
				log.LogDebug(fmt.Sprintf("excluded directory: path=%q", path))
				return filepath.SkipDir
			}
			return nil
		}

		if !isRegularFile(path, d) {
			return nil
		}
		counters.addFile()
		if !emit(path) {
			return ctx.Err()
		}
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// isRegularFile accepts regular files and symlinks resolving to regular files.
// Symlinked directories are not followed.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
