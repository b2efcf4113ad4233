package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bqstream/internal/config"
)

func TestWriter_DefaultsToStdout(t *testing.T) {
	t.Parallel()

	w, c := Writer(config.Logging{})
	if w != os.Stdout {
		t.Fatalf("Writer() = %T, want os.Stdout", w)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
}

func TestWriter_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "bqstream.log")
	w, c := Writer(config.Logging{File: path, MaxSizeMB: 1})

	if _, err := w.Write([]byte("stream: sent line=2\n")); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "sent line=2") {
		t.Fatalf("log content = %q", b)
	}
}
