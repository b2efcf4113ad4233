package mssql

import (
	"context"
	"reflect"
	"testing"

	"bqstream/internal/schema"
	"bqstream/internal/storage"
)

func TestMSSQLStorageRegistrationUsesNewRepositoryHook(t *testing.T) {
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
		Kind:   "mssql",
		DSN:    "sqlserver://sa:pw@localhost:1433?database=titles",
		Table:  "dbo.titles",
		Schema: schema.Titles,
	})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	if gotCfg.Table != "dbo.titles" || !reflect.DeepEqual(gotCfg.Columns, schema.Titles.Names()) {
		t.Fatalf("hook cfg = %+v", gotCfg)
	}
	if w, ok := repo.(*wrappedRepo); !ok || w.Repository != fake {
		t.Fatalf("storage.New() = %T, want *wrappedRepo around fake", repo)
	}
	repo.Close()
	if !closed {
		t.Fatalf("wrappedRepo.Close() did not invoke closeFn")
	}
}
