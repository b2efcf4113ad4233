// Package all wires all built-in storage backends into the storage factory.
//
// Importing it (usually as a blank import from the command's main package)
// runs each backend's init, which registers its Factory with the storage
// package:
//
//   - "bigquery" (bqstream/internal/storage/bigquery)
//   - "postgres" (bqstream/internal/storage/postgres)
//   - "mssql"    (bqstream/internal/storage/mssql)
//   - "sqlite"   (bqstream/internal/storage/sqlite)
package all

import (
	_ "bqstream/internal/storage/bigquery"
	_ "bqstream/internal/storage/mssql"
	_ "bqstream/internal/storage/postgres"
	_ "bqstream/internal/storage/sqlite"
)
