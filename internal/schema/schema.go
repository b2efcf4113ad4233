// Package schema holds the column model of the destination table: an ordered
// list of (name, type) pairs that every backend renders into its own DDL.
package schema

import (
	"fmt"
	"strings"
)

// FieldType is the warehouse-level semantic type of a column.
type FieldType string

const (
	String  FieldType = "STRING"
	Integer FieldType = "INTEGER"
	Float   FieldType = "FLOAT"
)

// ParseFieldType resolves a type name case-insensitively. The BigQuery
// standard-SQL aliases INT64 and FLOAT64 are accepted.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STRING":
		return String, nil
	case "INTEGER", "INT64":
		return Integer, nil
	case "FLOAT", "FLOAT64":
		return Float, nil
	}
	return "", fmt.Errorf("schema: unknown field type %q", s)
}

// Field is a single column definition.
type Field struct {
	Name string    `json:"name" yaml:"name"`
	Type FieldType `json:"type" yaml:"type"`
}

// Schema is an ordered column list. Order is significant: it is the column
// order of CREATE TABLE and of positional INSERTs.
type Schema []Field

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

// Lookup returns the field named name.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate rejects empty schemas, empty or duplicate names, and unknown types.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schema: no fields")
	}
	seen := make(map[string]struct{}, len(s))
	for i, f := range s {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("schema: field %d has an empty name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema: duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		if _, err := ParseFieldType(string(f.Type)); err != nil {
			return fmt.Errorf("schema: field %q: %w", f.Name, err)
		}
	}
	return nil
}
