package sqlstore

import (
	"context"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/store"
)

// DumpJobs returns every job untouched: no PDF-path healing, migration
// must be lossless.
func (s *Store) DumpJobs(ctx context.Context) ([]*model.Job, error) {
	jobs, err := s.loadAllJobs(ctx)
	if err != nil {
		return nil, store.NewStorageError(backend, "dump jobs", err)
	}
	return jobs, nil
}

func (s *Store) DumpQueries(ctx context.Context) ([]*model.SearchQuery, error) {
	queries, err := s.loadQueries(ctx, true)
	if err != nil {
		return nil, store.NewStorageError(backend, "dump queries", err)
	}
	return queries, nil
}

func (s *Store) ImportJob(ctx context.Context, job *model.Job) error {
	if err := s.insertJob(ctx, job); err != nil {
		return store.NewStorageError(backend, "import job", err)
	}
	return nil
}

func (s *Store) ImportQuery(ctx context.Context, query *model.SearchQuery) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.NewStorageError(backend, "import query", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			err = store.NewStorageError(backend, "import query", err)
		}
	}()

	removed := 0
	if query.Removed {
		removed = 1
	}
	if _, err = tx.ExecContext(
		ctx,
		`INSERT INTO queries (username, id, text, removed, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.user, query.ID, query.Text, removed, query.CreatedAt.UTC(),
	); err != nil {
		return err
	}
	for _, entry := range query.ResultLog {
		if _, err = tx.ExecContext(
			ctx,
			`INSERT INTO query_results (username, query_id, at, lead_count) VALUES (?, ?, ?, ?)`,
			s.user, query.ID, entry.At.UTC(), entry.LeadCount,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
