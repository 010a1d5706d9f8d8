package pgstore

import (
	"context"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/store"
)

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

func (s *Store) ImportQuery(ctx context.Context, query *model.SearchQuery) error {
	if err := s.importQuery(ctx, query); err != nil {
		return store.NewStorageError(backend, "import query", err)
	}
	return nil
}

func (s *Store) importQuery(ctx context.Context, query *model.SearchQuery) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(
		ctx,
		`INSERT INTO queries (username, id, text, removed, created_at) VALUES ($1, $2, $3, $4, $5)`,
		s.user, query.ID, query.Text, query.Removed, query.CreatedAt.UTC(),
	); err != nil {
		return err
	}
	for _, entry := range query.ResultLog {
		if _, err = tx.Exec(
			ctx,
			`INSERT INTO query_results (username, query_id, logged_at, lead_count) VALUES ($1, $2, $3, $4)`,
			s.user, query.ID, entry.At.UTC(), entry.LeadCount,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
