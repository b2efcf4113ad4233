// Package sqlite implements the destination table on SQLite through sqlx and
// the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"bqstream/internal/ddl"
	"bqstream/internal/schema"
	"bqstream/internal/storage"
	"bqstream/pkg/records"
)

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:titles.db?_pragma=busy_timeout(5000)"
	//   "titles.db"
	DSN string

	// Table is the target table. "main.titles" style names are accepted.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string
}

// Dialect renders SQLite DDL.
var Dialect = ddl.Dialect{
	Name:        "sqlite",
	QuoteIdent:  ddl.DoubleQuote,
	IfNotExists: true,
	TypeFor: func(t schema.FieldType) (string, error) {
		switch t {
		case schema.String:
			return "TEXT", nil
		case schema.Integer:
			return "INTEGER", nil
		case schema.Float:
			return "REAL", nil
		}
		return "", fmt.Errorf("unsupported type %q", t)
	},
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sqlx.DB
	cfg Config

	insertSQL string
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg, insertSQL: buildInsertSQL(cfg.Table, cfg.Columns)}, closeFn, nil
}

// TableExists looks the table up in sqlite_master.
func (r *Repository) TableExists(ctx context.Context) (bool, error) {
	master := "sqlite_master"
	name := r.cfg.Table
	if i := strings.LastIndex(name, "."); i >= 0 {
		master = ddl.DoubleQuote(name[:i]) + ".sqlite_master"
		name = name[i+1:]
	}

	var n int
	q := "SELECT COUNT(*) FROM " + master + " WHERE type = 'table' AND name = ?"
	if err := r.db.GetContext(ctx, &n, q, name); err != nil {
		return false, fmt.Errorf("sqlite: table exists %s: %w", r.cfg.Table, err)
	}
	return n > 0, nil
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
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}
	return nil
}

// InsertRow inserts one row with named parameters. Constraint and datatype
// mismatch failures are reported as *storage.RowError.
func (r *Repository) InsertRow(ctx context.Context, row records.Row) error {
	arg := make(map[string]any, len(r.cfg.Columns))
	for _, c := range r.cfg.Columns {
		arg[c] = row.Fields[c]
	}
	_, err := r.db.NamedExecContext(ctx, r.insertSQL, arg)
	if err == nil {
		return nil
	}

	var se *sqlite.Error
	if errors.As(err, &se) && isRowLevel(se.Code()) {
		return &storage.RowError{Line: row.Line, Reasons: []string{se.Error()}}
	}
	return fmt.Errorf("sqlite: insert line %d: %w", row.Line, err)
}

func isRowLevel(code int) bool {
	switch code & 0xff {
	case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_TOOBIG:
		return true
	}
	return false
}

func buildInsertSQL(table string, cols []string) string {
	quoted := make([]string, len(cols))
	named := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ddl.DoubleQuote(c)
		named[i] = ":" + c
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		ddl.QuoteFQN(table, ddl.DoubleQuote),
		strings.Join(quoted, ", "),
		strings.Join(named, ", "),
	)
}
