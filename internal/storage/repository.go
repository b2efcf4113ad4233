// Package storage contains the storage-agnostic contract for the destination
// table and a registry of backends. Concrete backends (bigquery, postgres,
// sqlite, mssql) register a Factory at init time; callers obtain a Repository
// through New without importing a backend directly.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bqstream/internal/schema"
	"bqstream/pkg/records"
)

// Repository is one destination table.
type Repository interface {
	// TableExists reports whether the destination table exists. A "not
	// found" answer is (false, nil); any other failure is an error.
	TableExists(ctx context.Context) (bool, error)

	// CreateTable creates the destination table with the given columns.
	CreateTable(ctx context.Context, s schema.Schema) error

	// InsertRow submits a single record. Row-level rejections are returned
	// as *RowError; any other error means the backend is unusable.
	InsertRow(ctx context.Context, row records.Row) error

	// Close releases connections held by the repository.
	Close()
}

// Config is the backend-neutral construction input handed to a Factory.
type Config struct {
	Kind string

	// DSN and Table configure the SQL backends.
	DSN   string
	Table string

	// Schema is the column layout; SQL backends use its order for INSERTs.
	Schema schema.Schema

	BigQuery BigQueryConfig
}

// BigQueryConfig identifies a BigQuery table.
type BigQueryConfig struct {
	ProjectID       string
	DatasetID       string
	TableID         string
	CredentialsFile string
	Endpoint        string
	Location        string
	DedupIDs        bool
}

// Factory constructs a Repository for a registered kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the Factory for kind. It is typically
// called from backend packages' init functions.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New constructs the Repository registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%q (registered: %v)", cfg.Kind, ListKinds())
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
