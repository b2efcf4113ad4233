// Package transformer applies an ordered chain of in-memory row transforms
// between parsing and loading.
package transformer

import (
	"fmt"

	"bqstream/internal/config"
	"bqstream/internal/schema"
	"bqstream/internal/transformer/builtin"
	"bqstream/pkg/records"
)

// Transformer rewrites a batch of rows. Implementations may mutate rows in
// place and return the same slice.
type Transformer interface {
	Apply([]records.Row) []records.Row
}

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in []records.Row) []records.Row {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// DefaultKinds is the chain used when a pipeline lists no transforms.
// Normalize rewrites cell content, so it is opt-in.
var DefaultKinds = []string{"project", "coerce"}

// Build constructs the chain described by transforms against the target schema.
// An empty list yields DefaultKinds.
func Build(transforms []config.Transform, s schema.Schema) (Chain, error) {
	if len(transforms) == 0 {
		for _, k := range DefaultKinds {
			transforms = append(transforms, config.Transform{Kind: k})
		}
	}

	chain := make(Chain, 0, len(transforms))
	for i, t := range transforms {
		switch t.Kind {
		case "normalize":
			chain = append(chain, builtin.Normalize{})
		case "project":
			chain = append(chain, builtin.Project{Schema: s})
		case "coerce":
			chain = append(chain, builtin.Coerce{Schema: s})
		default:
			return nil, fmt.Errorf("transform[%d]: unknown kind %q", i, t.Kind)
		}
	}
	return chain, nil
}
