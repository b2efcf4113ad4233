package storage

import (
	"context"
	"fmt"
	"log"

	"bqstream/internal/schema"
)

// EnsureTable creates the destination table with s if it does not exist.
// When the table already exists no create call is made. Errors other than
// "not found" from the existence check are returned as-is (wrapped). An
// invalid schema fails before anything is created.
func EnsureTable(ctx context.Context, repo Repository, table string, s schema.Schema) error {
	exists, err := repo.TableExists(ctx)
	if err != nil {
		return fmt.Errorf("check table %s: %w", table, err)
	}
	if exists {
		log.Printf("schema: table %s already exists", table)
		return nil
	}

	if err := s.Validate(); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	log.Printf("schema: table %s not found, creating it with %d columns", table, len(s))
	if err := repo.CreateTable(ctx, s); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	log.Printf("schema: created table %s", table)
	return nil
}
