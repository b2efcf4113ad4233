package ddl

// ColumnDef describes a single column. Name is unquoted; quoting happens at
// render time.
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds the table name in dotted form (e.g. "public.titles") and its
// ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
