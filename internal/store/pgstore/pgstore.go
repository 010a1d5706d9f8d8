// Package pgstore is the PostgreSQL backend, schema-compatible in contract
// (not in dialect) with sqlstore. Multiple users share one database; rows
// are namespaced by username.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/store"
)

const backend = "postgres"

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    username TEXT NOT NULL,
    id TEXT NOT NULL,
    company TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    link TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    full_description TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    date_found TIMESTAMPTZ NOT NULL,
    addressee TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (username, id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_username_link
    ON jobs(username, link) WHERE link <> '';

CREATE TABLE IF NOT EXISTS cover_letters (
    username TEXT NOT NULL,
    job_id TEXT NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    pdf_path TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (username, job_id)
);

CREATE TABLE IF NOT EXISTS cover_letter_topics (
    username TEXT NOT NULL,
    job_id TEXT NOT NULL,
    pos INTEGER NOT NULL,
    requirement TEXT NOT NULL DEFAULT '',
    experience TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (username, job_id, pos)
);

CREATE TABLE IF NOT EXISTS job_questions (
    username TEXT NOT NULL,
    job_id TEXT NOT NULL,
    pos INTEGER NOT NULL,
    question TEXT NOT NULL DEFAULT '',
    answer TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (username, job_id, pos)
);

CREATE TABLE IF NOT EXISTS job_writing_instructions (
    username TEXT NOT NULL,
    job_id TEXT NOT NULL,
    pos INTEGER NOT NULL,
    instruction TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (username, job_id, pos)
);

CREATE TABLE IF NOT EXISTS job_queries (
    username TEXT NOT NULL,
    job_id TEXT NOT NULL,
    query_id INTEGER NOT NULL,
    PRIMARY KEY (username, job_id, query_id)
);

CREATE TABLE IF NOT EXISTS queries (
    username TEXT NOT NULL,
    id INTEGER NOT NULL,
    text TEXT NOT NULL,
    removed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (username, id)
);

CREATE TABLE IF NOT EXISTS query_results (
    seq BIGSERIAL PRIMARY KEY,
    username TEXT NOT NULL,
    query_id INTEGER NOT NULL,
    logged_at TIMESTAMPTZ NOT NULL,
    lead_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_results_username_query
    ON query_results(username, query_id);
`

// Store is the PostgreSQL backend for one user namespace.
type Store struct {
	pool *pgxpool.Pool
	user string
	now  func() time.Time
}

// Open connects to databaseURL, verifies the connection and ensures the
// schema exists.
func Open(ctx context.Context, databaseURL, user string) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	if user == "" {
		return nil, fmt.Errorf("user is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool, user: user, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Add(ctx context.Context, draft store.JobDraft) (*model.Job, error) {
	if draft.Link != "" {
		taken, err := s.HasLink(ctx, draft.Link)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, store.ErrDuplicateLink
		}
	}

	job := &model.Job{
		ID:              uuid.NewString(),
		Company:         draft.Company,
		Title:           draft.Title,
		Location:        draft.Location,
		Link:            draft.Link,
		Description:     draft.Description,
		FullDescription: draft.FullDescription,
		Language:        draft.Language,
		Addressee:       draft.Addressee,
		Status:          model.StatusPending,
		DateFound:       s.now().UTC(),
		QueryIDs:        append([]int(nil), draft.QueryIDs...),
	}
	if err := s.insertJob(ctx, job); err != nil {
		return nil, store.NewStorageError(backend, "add", err)
	}
	return job.Clone(), nil
}

func (s *Store) insertJob(ctx context.Context, job *model.Job) (err error) {
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
		`INSERT INTO jobs (
			username, id, company, title, location, link, description, full_description, language, status, date_found, addressee
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.user,
		job.ID,
		job.Company,
		job.Title,
		job.Location,
		job.Link,
		job.Description,
		job.FullDescription,
		job.Language,
		string(job.Status),
		job.DateFound.UTC(),
		job.Addressee,
	); err != nil {
		return err
	}

	if job.CoverLetterBody != "" || job.CoverLetterPDFPath != "" {
		if _, err = tx.Exec(
			ctx,
			`INSERT INTO cover_letters (username, job_id, body, pdf_path) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (username, job_id) DO UPDATE SET body = EXCLUDED.body, pdf_path = EXCLUDED.pdf_path`,
			s.user, job.ID, job.CoverLetterBody, job.CoverLetterPDFPath,
		); err != nil {
			return err
		}
	}
	if err = s.replaceTopics(ctx, tx, job.ID, job.CoverLetterTopics); err != nil {
		return err
	}
	if err = s.replaceQuestions(ctx, tx, job.ID, job.Questions); err != nil {
		return err
	}
	if err = s.replaceInstructions(ctx, tx, job.ID, job.WritingInstructions); err != nil {
		return err
	}
	if err = s.replaceQueryIDs(ctx, tx, job.ID, job.QueryIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	store.HealPDFPath(job)
	return job, nil
}

func (s *Store) loadJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.pool.QueryRow(
		ctx,
		`SELECT id, company, title, location, link, description, full_description, language, status, date_found, addressee
		 FROM jobs
		 WHERE username = $1 AND id = $2`,
		s.user, id,
	)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, store.NewStorageError(backend, "get", err)
	}
	if err := s.attachDetails(ctx, map[string]*model.Job{job.ID: job}); err != nil {
		return nil, store.NewStorageError(backend, "get", err)
	}
	return job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var job model.Job
	var status string
	if err := row.Scan(
		&job.ID,
		&job.Company,
		&job.Title,
		&job.Location,
		&job.Link,
		&job.Description,
		&job.FullDescription,
		&job.Language,
		&status,
		&job.DateFound,
		&job.Addressee,
	); err != nil {
		return nil, err
	}
	job.Status = model.Status(status)
	return &job, nil
}

func (s *Store) attachDetails(ctx context.Context, jobs map[string]*model.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	rows, err := s.pool.Query(ctx, `SELECT job_id, body, pdf_path FROM cover_letters WHERE username = $1`, s.user)
	if err != nil {
		return err
	}
	for rows.Next() {
		var jobID, body, pdfPath string
		if err := rows.Scan(&jobID, &body, &pdfPath); err != nil {
			rows.Close()
			return err
		}
		if job, ok := jobs[jobID]; ok {
			job.CoverLetterBody = body
			job.CoverLetterPDFPath = pdfPath
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.pool.Query(ctx, `SELECT job_id, requirement, experience FROM cover_letter_topics WHERE username = $1 ORDER BY job_id, pos`, s.user)
	if err != nil {
		return err
	}
	for rows.Next() {
		var jobID string
		var topic model.Topic
		if err := rows.Scan(&jobID, &topic.Requirement, &topic.Experience); err != nil {
			rows.Close()
			return err
		}
		if job, ok := jobs[jobID]; ok {
			job.CoverLetterTopics = append(job.CoverLetterTopics, topic)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.pool.Query(ctx, `SELECT job_id, question, answer FROM job_questions WHERE username = $1 ORDER BY job_id, pos`, s.user)
	if err != nil {
		return err
	}
	for rows.Next() {
		var jobID string
		var q model.Question
		if err := rows.Scan(&jobID, &q.Question, &q.Answer); err != nil {
			rows.Close()
			return err
		}
		if job, ok := jobs[jobID]; ok {
			job.Questions = append(job.Questions, q)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.pool.Query(ctx, `SELECT job_id, instruction FROM job_writing_instructions WHERE username = $1 ORDER BY job_id, pos`, s.user)
	if err != nil {
		return err
	}
	for rows.Next() {
		var jobID, instruction string
		if err := rows.Scan(&jobID, &instruction); err != nil {
			rows.Close()
			return err
		}
		if job, ok := jobs[jobID]; ok {
			job.WritingInstructions = append(job.WritingInstructions, instruction)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.pool.Query(ctx, `SELECT job_id, query_id FROM job_queries WHERE username = $1 ORDER BY job_id, query_id`, s.user)
	if err != nil {
		return err
	}
	for rows.Next() {
		var jobID string
		var queryID int
		if err := rows.Scan(&jobID, &queryID); err != nil {
			rows.Close()
			return err
		}
		if job, ok := jobs[jobID]; ok {
			job.QueryIDs = append(job.QueryIDs, queryID)
		}
	}
	rows.Close()
	return rows.Err()
}

func (s *Store) HasLink(ctx context.Context, link string) (bool, error) {
	if link == "" {
		return false, nil
	}
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE username = $1 AND link = $2`, s.user, link).Scan(&n)
	if err != nil {
		return false, store.NewStorageError(backend, "has link", err)
	}
	return n > 0, nil
}

func (s *Store) List(ctx context.Context) ([]*model.Job, error) {
	jobs, err := s.loadAllJobs(ctx)
	if err != nil {
		return nil, store.NewStorageError(backend, "list", err)
	}
	for _, j := range jobs {
		store.HealPDFPath(j)
	}
	return jobs, nil
}

func (s *Store) loadAllJobs(ctx context.Context) ([]*model.Job, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT id, company, title, location, link, description, full_description, language, status, date_found, addressee
		 FROM jobs
		 WHERE username = $1
		 ORDER BY date_found ASC, id ASC`,
		s.user,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ordered := make([]*model.Job, 0)
	byID := make(map[string]*model.Job)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		ordered = append(ordered, job)
		byID[job.ID] = job
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachDetails(ctx, byID); err != nil {
		return nil, err
	}
	return ordered, nil
}

func (s *Store) CountByStatus(ctx context.Context) (model.StatusCounts, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs WHERE username = $1 GROUP BY status`, s.user)
	if err != nil {
		return model.StatusCounts{}, store.NewStorageError(backend, "count", err)
	}
	defer rows.Close()

	var counts model.StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return model.StatusCounts{}, store.NewStorageError(backend, "count", err)
		}
		switch model.Status(status) {
		case model.StatusPending:
			counts.Pending += n
		case model.StatusInProgress:
			counts.InProgress += n
		case model.StatusApplied:
			counts.Applied += n
		case model.StatusDiscarded:
			counts.Discarded += n
		}
	}
	if err := rows.Err(); err != nil {
		return model.StatusCounts{}, store.NewStorageError(backend, "count", err)
	}
	return counts, nil
}

func (s *Store) Update(ctx context.Context, id string, patch store.JobPatch) error {
	current, err := s.loadJob(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		store.PanicMissingJob(backend, id)
	}
	if err != nil {
		return err
	}
	if err := store.ApplyPatch(current, patch); err != nil {
		return err
	}
	if err := s.writePatch(ctx, id, patch); err != nil {
		return store.NewStorageError(backend, "update", err)
	}
	return nil
}

func (s *Store) writePatch(ctx context.Context, id string, patch store.JobPatch) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	sets := make([]string, 0, 8)
	args := make([]any, 0, 10)
	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Status != nil {
		addSet("status", string(*patch.Status))
	}
	if patch.Company != nil {
		addSet("company", *patch.Company)
	}
	if patch.Title != nil {
		addSet("title", *patch.Title)
	}
	if patch.Location != nil {
		addSet("location", *patch.Location)
	}
	if patch.Description != nil {
		addSet("description", *patch.Description)
	}
	if patch.FullDescription != nil {
		addSet("full_description", *patch.FullDescription)
	}
	if patch.Language != nil {
		addSet("language", *patch.Language)
	}
	if patch.Addressee != nil {
		addSet("addressee", *patch.Addressee)
	}
	if len(sets) > 0 {
		args = append(args, s.user, id)
		query := fmt.Sprintf(
			`UPDATE jobs SET %s WHERE username = $%d AND id = $%d`,
			strings.Join(sets, ", "), len(args)-1, len(args),
		)
		if _, err = tx.Exec(ctx, query, args...); err != nil {
			return err
		}
	}

	if patch.FullDescription != nil && patch.CoverLetterTopics == nil {
		if _, err = tx.Exec(ctx, `DELETE FROM cover_letter_topics WHERE username = $1 AND job_id = $2`, s.user, id); err != nil {
			return err
		}
	}
	if patch.CoverLetterTopics != nil {
		if err = s.replaceTopics(ctx, tx, id, *patch.CoverLetterTopics); err != nil {
			return err
		}
	}
	if patch.Questions != nil {
		if err = s.replaceQuestions(ctx, tx, id, *patch.Questions); err != nil {
			return err
		}
	}
	if patch.WritingInstructions != nil {
		if err = s.replaceInstructions(ctx, tx, id, *patch.WritingInstructions); err != nil {
			return err
		}
	}
	if patch.CoverLetterBody != nil || patch.CoverLetterPDFPath != nil {
		if _, err = tx.Exec(
			ctx,
			`INSERT INTO cover_letters (username, job_id) VALUES ($1, $2)
			 ON CONFLICT (username, job_id) DO NOTHING`,
			s.user, id,
		); err != nil {
			return err
		}
		if patch.CoverLetterBody != nil {
			if _, err = tx.Exec(ctx, `UPDATE cover_letters SET body = $1 WHERE username = $2 AND job_id = $3`, *patch.CoverLetterBody, s.user, id); err != nil {
				return err
			}
		}
		if patch.CoverLetterPDFPath != nil {
			if _, err = tx.Exec(ctx, `UPDATE cover_letters SET pdf_path = $1 WHERE username = $2 AND job_id = $3`, *patch.CoverLetterPDFPath, s.user, id); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) replaceTopics(ctx context.Context, tx pgx.Tx, jobID string, topics []model.Topic) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cover_letter_topics WHERE username = $1 AND job_id = $2`, s.user, jobID); err != nil {
		return err
	}
	for i, topic := range topics {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO cover_letter_topics (username, job_id, pos, requirement, experience) VALUES ($1, $2, $3, $4, $5)`,
			s.user, jobID, i, topic.Requirement, topic.Experience,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) replaceQuestions(ctx context.Context, tx pgx.Tx, jobID string, questions []model.Question) error {
	if _, err := tx.Exec(ctx, `DELETE FROM job_questions WHERE username = $1 AND job_id = $2`, s.user, jobID); err != nil {
		return err
	}
	for i, q := range questions {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO job_questions (username, job_id, pos, question, answer) VALUES ($1, $2, $3, $4, $5)`,
			s.user, jobID, i, q.Question, q.Answer,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) replaceInstructions(ctx context.Context, tx pgx.Tx, jobID string, instructions []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM job_writing_instructions WHERE username = $1 AND job_id = $2`, s.user, jobID); err != nil {
		return err
	}
	for i, line := range instructions {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO job_writing_instructions (username, job_id, pos, instruction) VALUES ($1, $2, $3, $4)`,
			s.user, jobID, i, line,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) replaceQueryIDs(ctx context.Context, tx pgx.Tx, jobID string, queryIDs []int) error {
	if _, err := tx.Exec(ctx, `DELETE FROM job_queries WHERE username = $1 AND job_id = $2`, s.user, jobID); err != nil {
		return err
	}
	for _, queryID := range queryIDs {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO job_queries (username, job_id, query_id) VALUES ($1, $2, $3)`,
			s.user, jobID, queryID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Purge(ctx context.Context, id string) error {
	err := s.purge(ctx, id)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return err
	}
	return store.NewStorageError(backend, "purge", err)
}

func (s *Store) purge(ctx context.Context, id string) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `DELETE FROM jobs WHERE username = $1 AND id = $2`, s.user, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	for _, table := range []string{"cover_letters", "cover_letter_topics", "job_questions", "job_writing_instructions", "job_queries"} {
		if _, err = tx.Exec(ctx, `DELETE FROM `+table+` WHERE username = $1 AND job_id = $2`, s.user, id); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
