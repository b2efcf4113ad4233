// Package skiplog writes rows the destination rejected to a CSV side file so
// they can be inspected and replayed.
package skiplog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jszwec/csvutil"
)

// Entry is one rejected row.
type Entry struct {
	Line   int    `csv:"line"`
	Title  string `csv:"title"`
	Reason string `csv:"reason"`
}

// Log appends Entries to a CSV file. It is safe for concurrent use.
type Log struct {
	mu  sync.Mutex
	f   *os.File
	w   *csv.Writer
	enc *csvutil.Encoder
	n   int
}

// Open creates path (and missing parent directories) and writes the header.
// An existing file is truncated.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("skiplog: create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("skiplog: create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(Entry{}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("skiplog: write header: %w", err)
	}
	w.Flush()
	return &Log{f: f, w: w, enc: enc}, nil
}

// Add records a rejected row. Each entry is flushed so the file is current
// if the process is killed.
func (l *Log) Add(line int, title, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enc.Encode(Entry{Line: line, Title: title, Reason: reason}); err != nil {
		return fmt.Errorf("skiplog: encode line %d: %w", line, err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("skiplog: flush: %w", err)
	}
	l.n++
	return nil
}

// Count returns the number of entries written so far.
func (l *Log) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

// Path returns the file name.
func (l *Log) Path() string { return l.f.Name() }

// Close flushes and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.w.Flush()
	if err := l.w.Error(); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("skiplog: flush: %w", err)
	}
	return l.f.Close()
}
