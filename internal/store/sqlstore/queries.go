package sqlstore

import (
	"context"
	"strings"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/store"
)

func (s *Store) Save(ctx context.Context, texts []string) ([]*model.SearchQuery, error) {
	created, err := s.saveQueries(ctx, texts)
	if err != nil {
		return nil, store.NewStorageError(backend, "save queries", err)
	}
	return created, nil
}

func (s *Store) saveQueries(ctx context.Context, texts []string) (created []*model.SearchQuery, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Removed rows count toward the maximum so ids are never reissued.
	var max int
	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM queries WHERE username = ?`, s.user).Scan(&max); err != nil {
		return nil, err
	}

	created = make([]*model.SearchQuery, 0, len(texts))
	for i, text := range texts {
		q := &model.SearchQuery{
			ID:        max + i + 1,
			Text:      text,
			CreatedAt: s.now().UTC(),
		}
		if _, err = tx.ExecContext(
			ctx,
			`INSERT INTO queries (username, id, text, removed, created_at) VALUES (?, ?, ?, 0, ?)`,
			s.user, q.ID, q.Text, q.CreatedAt,
		); err != nil {
			return nil, err
		}
		created = append(created, q)
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) Active(ctx context.Context) ([]*model.SearchQuery, error) {
	queries, err := s.loadQueries(ctx, false)
	if err != nil {
		return nil, store.NewStorageError(backend, "list queries", err)
	}
	return queries, nil
}

func (s *Store) loadQueries(ctx context.Context, includeRemoved bool) ([]*model.SearchQuery, error) {
	q := `SELECT id, text, removed, created_at FROM queries WHERE username = ? ORDER BY id ASC`
	if !includeRemoved {
		q = `SELECT id, text, removed, created_at FROM queries WHERE username = ? AND removed = 0 ORDER BY id ASC`
	}
	rows, err := s.db.QueryContext(ctx, q, s.user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ordered := make([]*model.SearchQuery, 0)
	byID := make(map[int]*model.SearchQuery)
	for rows.Next() {
		var query model.SearchQuery
		var removed int
		if err := rows.Scan(&query.ID, &query.Text, &removed, &query.CreatedAt); err != nil {
			return nil, err
		}
		query.Removed = removed == 1
		ordered = append(ordered, &query)
		byID[query.ID] = &query
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachResultLogs(ctx, byID); err != nil {
		return nil, err
	}
	return ordered, nil
}

// attachResultLogs loads result rows in insertion order (rowid, not
// timestamp, so same-second appends keep their order).
func (s *Store) attachResultLogs(ctx context.Context, queries map[int]*model.SearchQuery) error {
	if len(queries) == 0 {
		return nil
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT query_id, at, lead_count FROM query_results WHERE username = ? ORDER BY rowid ASC`,
		s.user,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var queryID int
		var entry model.ResultEntry
		if err := rows.Scan(&queryID, &entry.At, &entry.LeadCount); err != nil {
			return err
		}
		if q, ok := queries[queryID]; ok {
			q.ResultLog = append(q.ResultLog, entry)
		}
	}
	return rows.Err()
}

func (s *Store) Remove(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids)+1)
	args = append(args, s.user)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE queries SET removed = 1 WHERE username = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return store.NewStorageError(backend, "remove queries", err)
	}
	return nil
}

func (s *Store) WriteResult(ctx context.Context, queryID int, leadCount int) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queries WHERE username = ? AND id = ?`, s.user, queryID).Scan(&n); err != nil {
		return store.NewStorageError(backend, "write result", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO query_results (username, query_id, at, lead_count) VALUES (?, ?, ?, ?)`,
		s.user, queryID, s.now().UTC(), leadCount,
	); err != nil {
		return store.NewStorageError(backend, "write result", err)
	}
	return nil
}

func (s *Store) ResultsTotal(ctx context.Context, queryID int) (int, error) {
	var total int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COALESCE(SUM(lead_count), 0) FROM query_results WHERE username = ? AND query_id = ?`,
		s.user, queryID,
	).Scan(&total)
	if err != nil {
		return 0, store.NewStorageError(backend, "results total", err)
	}
	return total, nil
}
