// Package postgres implements the destination table on Postgres using pgx v5.
// Rows are written one parameterized INSERT at a time.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bqstream/internal/ddl"
	"bqstream/internal/schema"
	"bqstream/internal/storage"
	"bqstream/pkg/records"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN     string   // connection string for pgxpool
	Table   string   // target table, optionally schema-qualified, e.g. "public.titles"
	Columns []string // ordered INSERT columns
}

// Dialect renders Postgres DDL.
var Dialect = ddl.Dialect{
	Name:        "postgres",
	QuoteIdent:  ddl.DoubleQuote,
	IfNotExists: true,
	TypeFor: func(t schema.FieldType) (string, error) {
		switch t {
		case schema.String:
			return "TEXT", nil
		case schema.Integer:
			return "BIGINT", nil
		case schema.Float:
			return "DOUBLE PRECISION", nil
		}
		return "", fmt.Errorf("unsupported type %q", t)
	},
}

// conn is the subset of *pgxpool.Pool the repository uses.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	db  conn
	cfg Config

	insertSQL string
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	closeFn := func() { pool.Close() }
	return newRepo(pool, cfg), closeFn, nil
}

func newRepo(db conn, cfg Config) *Repository {
	return &Repository{db: db, cfg: cfg, insertSQL: buildInsertSQL(cfg.Table, cfg.Columns)}
}

// TableExists uses to_regclass, which honours search_path for unqualified
// names and returns NULL for missing relations.
func (r *Repository) TableExists(ctx context.Context) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", r.cfg.Table).Scan(&ok); err != nil {
		return false, fmt.Errorf("postgres: table exists %s: %w", r.cfg.Table, err)
	}
	return ok, nil
}

// CreateTable issues CREATE TABLE IF NOT EXISTS for s.
func (r *Repository) CreateTable(ctx context.Context, s schema.Schema) error {
	td, err := ddl.FromSchema(r.cfg.Table, s, Dialect)
	if err != nil {
		return err
	}
	stmt, err := ddl.BuildCreateTableSQL(td, Dialect)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: create table: %w", err)
	}
	return nil
}

// InsertRow inserts one row. Data exceptions (SQLSTATE class 22) and
// integrity violations (class 23) are reported as *storage.RowError.
func (r *Repository) InsertRow(ctx context.Context, row records.Row) error {
	args := make([]any, len(r.cfg.Columns))
	for i, c := range r.cfg.Columns {
		args[i] = row.Fields[c]
	}
	_, err := r.db.Exec(ctx, r.insertSQL, args...)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && isRowLevel(pgErr.Code) {
		return &storage.RowError{Line: row.Line, Reasons: []string{pgErr.Code + ": " + pgErr.Message}}
	}
	return fmt.Errorf("postgres: insert line %d: %w", row.Line, err)
}

func isRowLevel(sqlState string) bool {
	return strings.HasPrefix(sqlState, "22") || strings.HasPrefix(sqlState, "23")
}

func buildInsertSQL(table string, cols []string) string {
	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ddl.DoubleQuote(c)
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		ddl.QuoteFQN(table, ddl.DoubleQuote),
		strings.Join(quoted, ", "),
		strings.Join(params, ", "),
	)
}
