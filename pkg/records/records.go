// Package records defines the in-memory row model shared by the reader,
// transformer, and storage layers.
package records

import (
	"fmt"
	"strconv"
)

// Record maps a column name to its value. Values are string, int64, float64,
// or nil. nil is the null marker: a missing cell is nil, never "".
type Record map[string]any

// Row is a Record together with the 1-based physical line it was read from
// (the header is line 1, so the first data row is line 2).
type Row struct {
	Line   int
	Fields Record
}

// String formats the value stored under key. Null and absent values yield "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
