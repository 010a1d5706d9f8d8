// Package sqlstore is the SQLite backend. Jobs are normalized into
// per-concern tables (cover letters, topics, questions, writing
// instructions, provenance) keyed by (username, job_id); every mutation is
// a transaction touching only the changed columns and rows.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/store"
)

const backend = "sqlite"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is the SQLite backend for one user namespace.
type Store struct {
	db   *sql.DB
	user string
	now  func() time.Time
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path, user string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if user == "" {
		return nil, fmt.Errorf("user is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL needs a single writer connection; the pool would fan out and
	// trip SQLITE_BUSY under concurrent mutation.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, user: user, now: time.Now}
	if err := s.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		version := migrationVersion(filepath.Base(name))
		if version <= 0 {
			continue
		}
		var applied int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

// migrationVersion parses the numeric prefix of "NNN_name.sql"; anything
// without one is skipped.
func migrationVersion(name string) int {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return 0
	}
	return n
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

// insertJob writes a complete job, sub-tables included, in one transaction.
// Shared by Add and ImportJob.
func (s *Store) insertJob(ctx context.Context, job *model.Job) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(
		ctx,
		`INSERT INTO jobs (
			username, id, company, title, location, link, description, full_description, language, status, date_found, addressee
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
		if err = s.upsertCoverLetter(ctx, tx, job.ID, job.CoverLetterBody, job.CoverLetterPDFPath); err != nil {
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
	return tx.Commit()
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
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, company, title, location, link, description, full_description, language, status, date_found, addressee
		 FROM jobs
		 WHERE username = ? AND id = ?`,
		s.user, id,
	)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
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

// attachDetails fills sub-table fields for the given jobs in bulk.
func (s *Store) attachDetails(ctx context.Context, jobs map[string]*model.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT job_id, body, pdf_path FROM cover_letters WHERE username = ?`,
		s.user,
	)
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

	rows, err = s.db.QueryContext(
		ctx,
		`SELECT job_id, requirement, experience FROM cover_letter_topics WHERE username = ? ORDER BY job_id, position`,
		s.user,
	)
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

	rows, err = s.db.QueryContext(
		ctx,
		`SELECT job_id, question, answer FROM job_questions WHERE username = ? ORDER BY job_id, position`,
		s.user,
	)
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

	rows, err = s.db.QueryContext(
		ctx,
		`SELECT job_id, instruction FROM job_writing_instructions WHERE username = ? ORDER BY job_id, position`,
		s.user,
	)
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

	rows, err = s.db.QueryContext(
		ctx,
		`SELECT job_id, query_id FROM job_queries WHERE username = ? ORDER BY job_id, query_id`,
		s.user,
	)
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
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM jobs WHERE username = ? AND link = ?`,
		s.user, link,
	).Scan(&n)
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
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, company, title, location, link, description, full_description, language, status, date_found, addressee
		 FROM jobs
		 WHERE username = ?
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
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT status, COUNT(*) FROM jobs WHERE username = ? GROUP BY status`,
		s.user,
	)
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
	if err == store.ErrNotFound {
		store.PanicMissingJob(backend, id)
	}
	if err != nil {
		return err
	}
	// Validate the whole patch against the current state before touching
	// any row.
	if err := store.ApplyPatch(current, patch); err != nil {
		return err
	}
	if err := s.writePatch(ctx, id, patch); err != nil {
		return store.NewStorageError(backend, "update", err)
	}
	return nil
}

func (s *Store) writePatch(ctx context.Context, id string, patch store.JobPatch) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sets := make([]string, 0, 8)
	args := make([]any, 0, 10)
	addSet := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
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
		if _, err = tx.ExecContext(
			ctx,
			`UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE username = ? AND id = ?`,
			args...,
		); err != nil {
			return err
		}
	}

	// A rewritten description drops its topics unless the patch supplies
	// replacements.
	if patch.FullDescription != nil && patch.CoverLetterTopics == nil {
		if _, err = tx.ExecContext(
			ctx,
			`DELETE FROM cover_letter_topics WHERE username = ? AND job_id = ?`,
			s.user, id,
		); err != nil {
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
		if err = s.patchCoverLetter(ctx, tx, id, patch.CoverLetterBody, patch.CoverLetterPDFPath); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) upsertCoverLetter(ctx context.Context, tx *sql.Tx, jobID, body, pdfPath string) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO cover_letters (username, job_id, body, pdf_path)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(username, job_id) DO UPDATE SET
			body=excluded.body,
			pdf_path=excluded.pdf_path`,
		s.user, jobID, body, pdfPath,
	)
	return err
}

// patchCoverLetter updates only the provided columns, creating the row on
// first touch.
func (s *Store) patchCoverLetter(ctx context.Context, tx *sql.Tx, jobID string, body, pdfPath *string) error {
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO cover_letters (username, job_id) VALUES (?, ?)
		 ON CONFLICT(username, job_id) DO NOTHING`,
		s.user, jobID,
	); err != nil {
		return err
	}
	if body != nil {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE cover_letters SET body = ? WHERE username = ? AND job_id = ?`,
			*body, s.user, jobID,
		); err != nil {
			return err
		}
	}
	if pdfPath != nil {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE cover_letters SET pdf_path = ? WHERE username = ? AND job_id = ?`,
			*pdfPath, s.user, jobID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) replaceTopics(ctx context.Context, tx *sql.Tx, jobID string, topics []model.Topic) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cover_letter_topics WHERE username = ? AND job_id = ?`, s.user, jobID); err != nil {
		return err
	}
	for i, topic := range topics {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO cover_letter_topics (username, job_id, position, requirement, experience) VALUES (?, ?, ?, ?, ?)`,
			s.user, jobID, i, topic.Requirement, topic.Experience,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) replaceQuestions(ctx context.Context, tx *sql.Tx, jobID string, questions []model.Question) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM job_questions WHERE username = ? AND job_id = ?`, s.user, jobID); err != nil {
		return err
	}
	for i, q := range questions {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO job_questions (username, job_id, position, question, answer) VALUES (?, ?, ?, ?, ?)`,
			s.user, jobID, i, q.Question, q.Answer,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) replaceInstructions(ctx context.Context, tx *sql.Tx, jobID string, instructions []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM job_writing_instructions WHERE username = ? AND job_id = ?`, s.user, jobID); err != nil {
		return err
	}
	for i, line := range instructions {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO job_writing_instructions (username, job_id, position, instruction) VALUES (?, ?, ?, ?)`,
			s.user, jobID, i, line,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) replaceQueryIDs(ctx context.Context, tx *sql.Tx, jobID string, queryIDs []int) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM job_queries WHERE username = ? AND job_id = ?`, s.user, jobID); err != nil {
		return err
	}
	for _, queryID := range queryIDs {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO job_queries (username, job_id, query_id) VALUES (?, ?, ?)`,
			s.user, jobID, queryID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Purge(ctx context.Context, id string) error {
	err := s.purge(ctx, id)
	if err == store.ErrNotFound || err == nil {
		return err
	}
	return store.NewStorageError(backend, "purge", err)
}

func (s *Store) purge(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE username = ? AND id = ?`, s.user, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	for _, table := range []string{"cover_letters", "cover_letter_topics", "job_questions", "job_writing_instructions", "job_queries"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE username = ? AND job_id = ?`, s.user, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
