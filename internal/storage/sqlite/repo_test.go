package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"bqstream/internal/schema"
	"bqstream/internal/storage"
	"bqstream/pkg/records"
)

func newTestRepo(tb testing.TB, table string) *Repository {
	tb.Helper()
	dsn := filepath.Join(tb.TempDir(), "titles.db")
	r, closeFn, err := NewRepository(context.Background(), Config{
		DSN:     dsn,
		Table:   table,
		Columns: schema.Titles.Names(),
	})
	if err != nil {
		tb.Fatalf("NewRepository: %v", err)
	}
	tb.Cleanup(closeFn)
	return r
}

func countRows(tb testing.TB, r *Repository) int {
	tb.Helper()
	var n int
	if err := r.db.Get(&n, "SELECT COUNT(*) FROM "+r.cfg.Table); err != nil {
		tb.Fatalf("count rows: %v", err)
	}
	return n
}

func TestEnsureAndInsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRepo(t, "titles")

	exists, err := r.TableExists(ctx)
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if exists {
		t.Fatalf("TableExists = true on empty database")
	}

	if err := r.CreateTable(ctx, schema.Titles); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if exists, _ = r.TableExists(ctx); !exists {
		t.Fatalf("TableExists = false after CreateTable")
	}
	// IF NOT EXISTS makes a second create harmless.
	if err := r.CreateTable(ctx, schema.Titles); err != nil {
		t.Fatalf("second CreateTable: %v", err)
	}

	rows := []records.Row{
		{Line: 2, Fields: records.Record{"show_id": "s1", "title": "Dick Johnson Is Dead", "release_year": int64(2020), "popularity": 3.5}},
		{Line: 3, Fields: records.Record{"show_id": "s2", "title": "Blood & Water", "director": nil}},
	}
	for _, row := range rows {
		if err := r.InsertRow(ctx, row); err != nil {
			t.Fatalf("InsertRow line %d: %v", row.Line, err)
		}
	}
	if got := countRows(t, r); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}

	var year int64
	if err := r.db.Get(&year, `SELECT release_year FROM titles WHERE show_id = 's1'`); err != nil {
		t.Fatalf("select: %v", err)
	}
	if year != 2020 {
		t.Fatalf("release_year = %d, want 2020", year)
	}

	var nulls int
	if err := r.db.Get(&nulls, `SELECT COUNT(*) FROM titles WHERE show_id = 's2' AND director IS NULL AND release_year IS NULL`); err != nil {
		t.Fatalf("select nulls: %v", err)
	}
	if nulls != 1 {
		t.Fatalf("missing fields were not stored as NULL")
	}
}

func TestInsertRow_ConstraintIsRowError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRepo(t, "strict_titles")

	// A pre-existing table with a stricter layout than the one we would create.
	cols := "show_id TEXT PRIMARY KEY"
	for _, n := range schema.Titles.Names()[1:] {
		cols += `, "` + n + `"`
	}
	if _, err := r.db.ExecContext(ctx, "CREATE TABLE strict_titles ("+cols+")"); err != nil {
		t.Fatalf("create: %v", err)
	}

	row := records.Row{Line: 2, Fields: records.Record{"show_id": "s1", "title": "A"}}
	if err := r.InsertRow(ctx, row); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	dup := records.Row{Line: 3, Fields: records.Record{"show_id": "s1", "title": "B"}}
	err := r.InsertRow(ctx, dup)
	if !storage.IsRowError(err) {
		t.Fatalf("duplicate key err = %v, want RowError", err)
	}
	if got := countRows(t, r); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}
}

func TestInsertRow_MissingTableIsFatal(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t, "nope")
	err := r.InsertRow(context.Background(), records.Row{Line: 2, Fields: records.Record{}})
	if err == nil {
		t.Fatalf("expected error inserting into a missing table")
	}
	if storage.IsRowError(err) {
		t.Fatalf("missing table classified as RowError: %v", err)
	}
}

func TestTableExists_SchemaQualified(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRepo(t, "main.titles")
	if err := r.CreateTable(ctx, schema.Titles); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	ok, err := r.TableExists(ctx)
	if err != nil || !ok {
		t.Fatalf("TableExists = %v, %v; want true, nil", ok, err)
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{Table: "t"}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	got := buildInsertSQL("main.titles", []string{"title", "cast"})
	want := `INSERT INTO "main"."titles" ("title", "cast") VALUES (:title, :cast)`
	if got != want {
		t.Fatalf("buildInsertSQL = %q, want %q", got, want)
	}
}
