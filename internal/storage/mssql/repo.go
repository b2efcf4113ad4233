// Package mssql implements the destination table on Microsoft SQL Server
// through sqlx and go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"bqstream/internal/ddl"
	"bqstream/internal/schema"
	"bqstream/internal/storage"
	"bqstream/pkg/records"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN     string
	Table   string // e.g. "dbo.titles"
	Columns []string
}

// Dialect renders T-SQL DDL. SQL Server has no CREATE TABLE IF NOT EXISTS;
// callers check TableExists first.
var Dialect = ddl.Dialect{
	Name:       "mssql",
	QuoteIdent: ddl.BracketQuote,
	TypeFor: func(t schema.FieldType) (string, error) {
		switch t {
		case schema.String:
			return "NVARCHAR(MAX)", nil
		case schema.Integer:
			return "BIGINT", nil
		case schema.Float:
			return "FLOAT", nil
		}
		return "", fmt.Errorf("unsupported type %q", t)
	},
}

// db is the subset of *sqlx.DB the repository uses.
type db interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  db
	cfg Config

	insertSQL string
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	sdb, err := sqlx.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlx.Open: %w", err)
	}
	if err := sdb.PingContext(ctx); err != nil {
		_ = sdb.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = sdb.Close() }
	return newRepo(sdb, cfg), closeFn, nil
}

func newRepo(d db, cfg Config) *Repository {
	return &Repository{db: d, cfg: cfg, insertSQL: buildInsertSQL(cfg.Table, cfg.Columns)}
}

// TableExists checks OBJECT_ID for a user table.
func (r *Repository) TableExists(ctx context.Context) (bool, error) {
	var n int
	q := "SELECT CASE WHEN OBJECT_ID(@p1, 'U') IS NULL THEN 0 ELSE 1 END"
	if err := r.db.GetContext(ctx, &n, q, r.cfg.Table); err != nil {
		return false, fmt.Errorf("mssql: table exists %s: %w", r.cfg.Table, err)
	}
	return n == 1, nil
}

// CreateTable issues CREATE TABLE for s.
func (r *Repository) CreateTable(ctx context.Context, s schema.Schema) error {
	td, err := ddl.FromSchema(r.cfg.Table, s, Dialect)
	if err != nil {
		return err
	}
	stmt, err := ddl.BuildCreateTableSQL(td, Dialect)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("mssql: create table: %w", err)
	}
	return nil
}

// InsertRow inserts one row. Conversion, truncation and constraint errors
// are reported as *storage.RowError.
func (r *Repository) InsertRow(ctx context.Context, row records.Row) error {
	arg := make(map[string]any, len(r.cfg.Columns))
	for _, c := range r.cfg.Columns {
		arg[c] = row.Fields[c]
	}
	_, err := r.db.NamedExecContext(ctx, r.insertSQL, arg)
	if err == nil {
		return nil
	}

	var me mssql.Error
	if errors.As(err, &me) && rowLevelErrors[me.Number] {
		return &storage.RowError{Line: row.Line, Reasons: []string{fmt.Sprintf("%d: %s", me.Number, me.Message)}}
	}
	return fmt.Errorf("mssql: insert line %d: %w", row.Line, err)
}

// rowLevelErrors are SQL Server error numbers caused by the row's values.
var rowLevelErrors = map[int32]bool{
	245:  true, // conversion failed
	515:  true, // cannot insert NULL
	547:  true, // constraint conflict
	2601: true, // duplicate key (unique index)
	2627: true, // duplicate key (constraint)
	2628: true, // string or binary data would be truncated
	8114: true, // error converting data type
	8115: true, // arithmetic overflow
	8152: true, // string or binary data would be truncated (legacy)
}

func buildInsertSQL(table string, cols []string) string {
	quoted := make([]string, len(cols))
	named := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ddl.BracketQuote(c)
		named[i] = ":" + c
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		ddl.QuoteFQN(table, ddl.BracketQuote),
		strings.Join(quoted, ", "),
		strings.Join(named, ", "),
	)
}
