package builtin

import (
	"log"
	"sort"

	"bqstream/internal/schema"
	"bqstream/pkg/records"
)

// Project reduces every row to exactly the schema's columns: extra columns
// are dropped and absent ones are set to nil.
type Project struct {
	Schema schema.Schema
}

func (p Project) Apply(in []records.Row) []records.Row {
	if len(in) == 0 {
		return in
	}

	var dropped, missing []string
	for k := range in[0].Fields {
		if _, ok := p.Schema.Lookup(k); !ok {
			dropped = append(dropped, k)
		}
	}
	for _, f := range p.Schema {
		if _, ok := in[0].Fields[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(dropped) > 0 {
		sort.Strings(dropped)
		log.Printf("project: dropping columns not in table schema: %v", dropped)
	}
	if len(missing) > 0 {
		log.Printf("project: columns absent from source, sent as null: %v", missing)
	}

	for i := range in {
		out := make(records.Record, len(p.Schema))
		for _, f := range p.Schema {
			out[f.Name] = in[i].Fields[f.Name]
		}
		in[i].Fields = out
	}
	return in
}
