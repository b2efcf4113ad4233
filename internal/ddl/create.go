// Package ddl defines a small, backend-agnostic model for SQL DDL and renders
// CREATE TABLE statements from it for a given dialect.
package ddl

import (
	"fmt"
	"strings"

	"bqstream/internal/schema"
)

// Dialect captures the few ways SQL backends differ for CREATE TABLE.
type Dialect struct {
	// Name is used in error messages.
	Name string

	// QuoteIdent quotes a single identifier segment.
	QuoteIdent func(string) string

	// IfNotExists emits CREATE TABLE IF NOT EXISTS.
	IfNotExists bool

	// TypeFor maps a schema type to a column SQL type.
	TypeFor func(schema.FieldType) (string, error)
}

// DoubleQuote quotes an identifier ANSI-style: "name", embedded quotes doubled.
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// BracketQuote quotes an identifier T-SQL-style: [name], embedded ] doubled.
func BracketQuote(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// QuoteFQN quotes each dot-separated segment of fqn with quote.
func QuoteFQN(fqn string, quote func(string) string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}

// FromSchema builds a TableDef for fqn with one nullable column per schema
// field, typed through d.TypeFor.
func FromSchema(fqn string, s schema.Schema, d Dialect) (TableDef, error) {
	t := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(s))}
	for _, f := range s {
		typ, err := d.TypeFor(f.Type)
		if err != nil {
			return TableDef{}, fmt.Errorf("%s ddl: column %s: %w", d.Name, f.Name, err)
		}
		t.Columns = append(t.Columns, ColumnDef{Name: f.Name, SQLType: typ, Nullable: true})
	}
	return t, nil
}

// BuildCreateTableSQL renders:
//
//	CREATE TABLE [IF NOT EXISTS] <fqn> (
//	  <col> <type> [NOT NULL],
//	  ...
//	);
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	create := "CREATE TABLE "
	if d.IfNotExists {
		create += "IF NOT EXISTS "
	}
	return fmt.Sprintf("%s%s (\n  %s\n);", create, QuoteFQN(fqn, d.QuoteIdent), strings.Join(cols, ",\n  ")), nil
}
