// Package wal is the pipeline's write-ahead log: one JSON record per line,
// appended and fsynced before the corresponding search result is trusted.
// Its only job is surviving a process crash, so reads are tolerant (a torn
// or corrupt line is skipped, never fatal) and Clear happens exactly once,
// after a whole batch has committed.
package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

// Entry is one logged search attempt. Err records a failed call for
// observability; failed attempts still count as attempted.
type Entry struct {
	Query string       `json:"query"`
	At    time.Time    `json:"at"`
	Jobs  []model.Lead `json:"jobs"`
	Err   string       `json:"err,omitempty"`
}

// Log is an append-only line-delimited JSON file. Safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New returns a log at path. The file is created on first append; a
// missing file reads as empty.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Append writes one timestamped record and forces it to disk before
// returning. A nil searchErr means the attempt succeeded (leads may still
// be empty).
func (l *Log) Append(query string, leads []model.Lead, searchErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Query: query,
		At:    l.now().UTC(),
		Jobs:  leads,
	}
	if searchErr != nil {
		entry.Err = searchErr.Error()
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode wal entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create wal directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open wal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append wal: %w", err)
	}
	// The record only counts once it is on disk, not in the page cache.
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync wal: %w", err)
	}
	return nil
}

// ReadAll parses every line it can. Malformed lines (torn writes, partial
// corruption) are dropped so one bad record never hides the rest.
func (l *Log) ReadAll() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	entries := make([]Entry, 0)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read wal: %w", err)
	}
	return entries, nil
}

// Clear deletes the log. Clearing an absent log is fine; the batch that
// produced it may have been empty.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := os.Remove(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Path returns the on-disk location, mainly for logs and diagnostics.
func (l *Log) Path() string {
	return l.path
}
