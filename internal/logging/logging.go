// Package logging configures the process-wide standard logger. Output goes
// to stdout by default, or to a size-rotated file when one is configured.
package logging

import (
	"io"
	"log"
	"os"

	"bqstream/internal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup points the standard logger at the destination described by cfg and
// returns a closer for the underlying writer. The closer is always non-nil.
func Setup(cfg config.Logging) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	w, closer := Writer(cfg)
	log.SetOutput(w)
	return closer
}

// Writer builds the log destination without installing it.
func Writer(cfg config.Logging) (io.Writer, io.Closer) {
	if cfg.File == "" {
		return os.Stdout, nopCloser{}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return lj, lj
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
