// Package csv loads a delimited text file into memory as an ordered slice of
// rows keyed by canonical header names. Missing cells become nil.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"bqstream/internal/config"
	"bqstream/internal/datasource"
	"bqstream/pkg/records"
)

// DefaultNullValues are the cell values read as null when the parser options
// do not say otherwise. They match the NA tokens the titles export was
// produced with.
var DefaultNullValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// Options configures the CSV parser. The zero value is usable: comma
// defaults to ',' and NullValues to DefaultNullValues.
type Options struct {
	// Comma is the field delimiter.
	Comma rune

	// TrimSpace trims leading/trailing white space from each cell before the
	// null check, so a blank cell is null. Off by default: cells are sent
	// as they appear in the file.
	TrimSpace bool

	// LazyQuotes relaxes quote handling in encoding/csv.
	LazyQuotes bool

	// HeaderMap maps raw (trimmed) header names to canonical column names.
	HeaderMap map[string]string

	// NullValues lists cell values that become nil.
	NullValues []string
}

// OptionsFrom reads parser options from a pipeline options bag.
func OptionsFrom(o config.Options) Options {
	opt := Options{
		Comma:      o.Rune("comma", ','),
		TrimSpace:  o.Bool("trim_space", false),
		LazyQuotes: o.Bool("lazy_quotes", false),
		HeaderMap:  o.StringMap("header_map"),
	}
	if nv := o.StringSlice("null_values"); nv != nil {
		opt.NullValues = nv
	}
	return opt
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs but not for concurrent use.
type Parser struct {
	opt   Options
	nulls map[string]struct{}
}

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	if opt.Comma == 0 {
		opt.Comma = ','
	}
	nv := opt.NullValues
	if nv == nil {
		nv = DefaultNullValues
	}
	nulls := make(map[string]struct{}, len(nv))
	for _, v := range nv {
		nulls[v] = struct{}{}
	}
	return &Parser{opt: opt, nulls: nulls}
}

// ReadSource opens src and parses it completely.
func (p *Parser) ReadSource(ctx context.Context, src datasource.Source) ([]records.Row, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return p.Parse(ctx, rc)
}

// Parse consumes all CSV records from r. The first record is the header.
//
// Behavior:
//   - Header cells are trimmed, the UTF-8 BOM is stripped, HeaderMap is
//     applied, and the rest are canonicalized (see CanonicalHeader).
//   - Short rows are padded with nil; rows wider than the header abort the
//     read, as do quoting errors. Nothing is returned on failure.
//   - Row.Line is the physical line the record starts on.
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]records.Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = p.opt.Comma
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv header: file is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	headers, err := normalizeHeaders(h, p.opt)
	if err != nil {
		return nil, err
	}

	var out []records.Row
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if len(rec) > len(headers) {
			return nil, fmt.Errorf("parse csv: line %d: expected %d fields, got %d", line, len(headers), len(rec))
		}

		fields := make(records.Record, len(headers))
		for i, name := range headers {
			if i >= len(rec) {
				fields[name] = nil
				continue
			}
			fields[name] = p.cell(rec[i])
		}
		out = append(out, records.Row{Line: line, Fields: fields})
	}
}

// cell applies trimming and null normalization to a raw value.
func (p *Parser) cell(v string) any {
	if p.opt.TrimSpace {
		v = strings.TrimSpace(v)
	}
	if _, null := p.nulls[v]; null {
		return nil
	}
	return v
}

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// normalizeHeaders produces canonical header keys using HeaderMap (when
// provided) and CanonicalHeader otherwise. Blank headers become "col_N";
// duplicates are an error.
func normalizeHeaders(h []string, opt Options) ([]string, error) {
	res := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimSpace(strings.TrimPrefix(c, utf8BOM))
		}
		switch m, ok := opt.HeaderMap[c]; {
		case ok:
			res[i] = m
		case c == "":
			res[i] = fmt.Sprintf("col_%d", i)
		default:
			res[i] = CanonicalHeader(c)
		}
		if j, dup := seen[res[i]]; dup {
			return nil, fmt.Errorf("read csv header: columns %d and %d both map to %q", j+1, i+1, res[i])
		}
		seen[res[i]] = i
	}
	return res, nil
}

// CanonicalHeader folds a header cell to a column name: diacritics removed,
// lower-cased, runs of spaces and dashes replaced by a single underscore.
func CanonicalHeader(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	return strings.Join(strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == '-' || r == '\t'
	}), "_")
}
