// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"bqstream/internal/datasource"
)

// ErrSourceNotFound is returned when the configured input path does not
// exist. It wraps os.ErrNotExist.
var ErrSourceNotFound = fmt.Errorf("source file not found: %w", os.ErrNotExist)

// Local is a filesystem data source that opens files from the local disk.
type Local struct {
	path string
	enc  encoding.Encoding
}

var _ datasource.Source = (*Local)(nil)

// Option configures a Local source.
type Option func(*Local) error

// WithEncoding decodes the file from the named encoding (a WHATWG label such
// as "windows-1250" or "shift_jis") to UTF-8. An empty name keeps UTF-8.
func WithEncoding(name string) Option {
	return func(l *Local) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil
		}
		enc, err := htmlindex.Get(name)
		if err != nil {
			return fmt.Errorf("source encoding %q: %w", name, err)
		}
		l.enc = enc
		return nil
	}
}

// NewLocal returns a Local data source bound to path.
func NewLocal(path string, opts ...Option) (*Local, error) {
	l := &Local{path: path}
	for _, o := range opts {
		if err := o(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// Behavior:
//   - A canceled context is returned immediately without touching the
//     filesystem.
//   - A missing file yields an error matching both ErrSourceNotFound and
//     os.ErrNotExist.
//   - Other filesystem errors are wrapped with the path.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(l.path)
		}
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	if l.enc == nil {
		return f, nil
	}
	return &decodedFile{
		Reader: transform.NewReader(f, l.enc.NewDecoder()),
		f:      f,
	}, nil
}

// Exists checks that path names a regular, readable file. It is the preflight
// run before any remote call is made.
func Exists(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound(path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		return fmt.Errorf("source %s is a directory", path)
	}
	return nil
}

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
}

type decodedFile struct {
	io.Reader
	f *os.File
}

func (d *decodedFile) Close() error { return d.f.Close() }
