package bigquery

import (
	"context"

	"bqstream/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real API clients.
var newRepository = NewRepository

// wrappedRepo adapts *Repository to storage.Repository, adding a Close method
// that calls the cleanup function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("bigquery", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			ProjectID:       cfg.BigQuery.ProjectID,
			DatasetID:       cfg.BigQuery.DatasetID,
			TableID:         cfg.BigQuery.TableID,
			CredentialsFile: cfg.BigQuery.CredentialsFile,
			Endpoint:        cfg.BigQuery.Endpoint,
			Location:        cfg.BigQuery.Location,
			DedupIDs:        cfg.BigQuery.DedupIDs,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
}
