package postgres

import (
	"context"
	"reflect"
	"testing"

	"bqstream/internal/schema"
	"bqstream/internal/storage"
)

func TestPostgresStorageRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
		fake   = &Repository{}
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return fake, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind:   "postgres",
		DSN:    "postgres://u:p@localhost:5432/db?sslmode=disable",
		Table:  "public.titles",
		Schema: schema.Titles,
	})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}

	if gotCfg.DSN != "postgres://u:p@localhost:5432/db?sslmode=disable" || gotCfg.Table != "public.titles" {
		t.Fatalf("hook cfg = %+v", gotCfg)
	}
	if !reflect.DeepEqual(gotCfg.Columns, schema.Titles.Names()) {
		t.Fatalf("hook cfg.Columns = %v, want %v", gotCfg.Columns, schema.Titles.Names())
	}

	w, ok := repo.(*wrappedRepo)
	if !ok || w.Repository != fake {
		t.Fatalf("storage.New() = %T, want *wrappedRepo around fake", repo)
	}
	repo.Close()
	if !closed {
		t.Fatalf("wrappedRepo.Close() did not invoke closeFn")
	}
}
