// Package history loads and persists query/command history files, per
// spec.md §6: one entry per line, UTF-8, newest last, truncated to a
// configured limit, skipping a push identical to the prior entry. Atomic
// write via temp-file-plus-rename, grounded on the teacher's
// tail/bookmark.go saveBookmarks pattern.
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads up to limit entries (oldest first) from path. A missing file
// is not an error; it yields an empty history.
func Load(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}

// Push appends entry to entries unless it equals the last entry, then
// truncates to limit (dropping the oldest).
func Push(entries []string, entry string, limit int) []string {
	if entry == "" {
		return entries
	}
	if len(entries) > 0 && entries[len(entries)-1] == entry {
		return entries
	}
	entries = append(entries, entry)
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}

// Save rewrites path atomically (temp file plus rename) with entries
// truncated to limit, newest last.
func Save(path string, entries []string, limit int) error {
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("history: create temp in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	w := bufio.NewWriter(tmp)
	for _, e := range entries {
		if _, err := w.WriteString(e); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("history: write %s: %w", tmpPath, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("history: write %s: %w", tmpPath, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("history: flush %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("history: close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("history: rename %s -> %s: %w", tmpPath, path, err)
	}
	return nil
}
