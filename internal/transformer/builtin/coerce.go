package builtin

import (
	"log"
	"math"
	"strconv"

	"bqstream/internal/schema"
	"bqstream/pkg/records"
)

// Coerce converts string cells to the Go type of their schema column:
// INTEGER to int64 and FLOAT to float64. A value that does not parse is left
// as a string for the destination to accept or reject.
type Coerce struct {
	Schema schema.Schema
}

func (c Coerce) Apply(in []records.Row) []records.Row {
	for _, r := range in {
		for _, f := range c.Schema {
			s, ok := r.Fields[f.Name].(string)
			if !ok {
				continue
			}
			switch f.Type {
			case schema.Integer:
				if n, ok := parseInt(s); ok {
					r.Fields[f.Name] = n
					continue
				}
			case schema.Float:
				if x, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(x) && !math.IsInf(x, 0) {
					r.Fields[f.Name] = x
					continue
				}
			default:
				continue
			}
			log.Printf("coerce: line=%d field=%s value=%q is not %s; sending as-is", r.Line, f.Name, s, f.Type)
		}
	}
	return in
}

// parseInt accepts plain integers and integral floats such as "2019.0", the
// form an integer column takes once it has gaps.
func parseInt(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil || x != math.Trunc(x) || math.Abs(x) > 1<<53 {
		return 0, false
	}
	return int64(x), true
}
