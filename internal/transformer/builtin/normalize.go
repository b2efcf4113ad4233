package builtin

import (
	"strings"

	"bqstream/pkg/records"
)

// Normalize replaces non-breaking spaces and trims string values. A value
// that trims to "" becomes nil.
type Normalize struct{}

func (Normalize) Apply(in []records.Row) []records.Row {
	for _, r := range in {
		for k, v := range r.Fields {
			s, ok := v.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
			if s == "" {
				r.Fields[k] = nil
				continue
			}
			r.Fields[k] = s
		}
	}
	return in
}
