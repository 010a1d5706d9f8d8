// Package filestore persists jobs and queries as one JSON document per
// user, rewritten atomically on every mutation. The document lives in
// memory between writes; durability comes from the tmp+rename rewrite that
// every mutating call performs before returning.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/store"
	"github.com/jobscout/jobscout/pkg/file"
)

const backend = "file"

type document struct {
	Jobs    []*model.Job         `json:"jobs"`
	Queries []*model.SearchQuery `json:"queries"`
}

// Store is the flat-file backend. Safe for concurrent use within one
// process; cross-process writers are out of scope (single-writer
// assumption).
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
	now  func() time.Time
}

// Open loads (or creates) the document for user under dir.
func Open(dir, user string) (*Store, error) {
	if user == "" {
		return nil, fmt.Errorf("user is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &Store{
		path: filepath.Join(dir, user+".json"),
		now:  time.Now,
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, store.NewStorageError(backend, "open", err)
	}
	if err := json.Unmarshal(raw, &s.doc); err != nil {
		return nil, store.NewStorageError(backend, "open", fmt.Errorf("corrupt document %s: %w", s.path, err))
	}
	return s, nil
}

func (s *Store) Close() error { return nil }

// persist rewrites the whole document. Called with s.mu held.
func (s *Store) persist(op string) error {
	raw, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return store.NewStorageError(backend, op, err)
	}
	if err := file.WriteAtomic(s.path, raw, 0o644); err != nil {
		return store.NewStorageError(backend, op, err)
	}
	return nil
}

func (s *Store) findJob(id string) *model.Job {
	for _, j := range s.doc.Jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

func (s *Store) Add(ctx context.Context, draft store.JobDraft) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if draft.Link != "" {
		for _, j := range s.doc.Jobs {
			if j.Link == draft.Link {
				return nil, store.ErrDuplicateLink
			}
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
	s.doc.Jobs = append(s.doc.Jobs, job)
	if err := s.persist("add"); err != nil {
		return nil, err
	}
	return job.Clone(), nil
}

func (s *Store) Get(ctx context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.findJob(id)
	if job == nil {
		return nil, store.ErrNotFound
	}
	out := job.Clone()
	store.HealPDFPath(out)
	return out, nil
}

func (s *Store) HasLink(ctx context.Context, link string) (bool, error) {
	if link == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.doc.Jobs {
		if j.Link == link {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) List(ctx context.Context) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Job, 0, len(s.doc.Jobs))
	for _, j := range s.doc.Jobs {
		c := j.Clone()
		store.HealPDFPath(c)
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) CountByStatus(ctx context.Context) (model.StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts model.StatusCounts
	for _, j := range s.doc.Jobs {
		counts.Add(j.Status)
	}
	return counts, nil
}

func (s *Store) Update(ctx context.Context, id string, patch store.JobPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.findJob(id)
	if job == nil {
		store.PanicMissingJob(backend, id)
	}
	if err := store.ApplyPatch(job, patch); err != nil {
		return err
	}
	return s.persist("update")
}

func (s *Store) Purge(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, j := range s.doc.Jobs {
		if j.ID == id {
			s.doc.Jobs = append(s.doc.Jobs[:i], s.doc.Jobs[i+1:]...)
			return s.persist("purge")
		}
	}
	return store.ErrNotFound
}

func (s *Store) maxQueryID() int {
	max := 0
	for _, q := range s.doc.Queries {
		if q.ID > max {
			max = q.ID
		}
	}
	return max
}

func (s *Store) findQuery(id int) *model.SearchQuery {
	for _, q := range s.doc.Queries {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (s *Store) Save(ctx context.Context, texts []string) ([]*model.SearchQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.maxQueryID() + 1
	created := make([]*model.SearchQuery, 0, len(texts))
	for i, text := range texts {
		q := &model.SearchQuery{
			ID:        next + i,
			Text:      text,
			CreatedAt: s.now().UTC(),
		}
		s.doc.Queries = append(s.doc.Queries, q)
		created = append(created, q.Clone())
	}
	if err := s.persist("save"); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) Active(ctx context.Context) ([]*model.SearchQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.SearchQuery, 0, len(s.doc.Queries))
	for _, q := range s.doc.Queries {
		if q.Removed {
			continue
		}
		out = append(out, q.Clone())
	}
	return out, nil
}

func (s *Store) Remove(ctx context.Context, ids []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if q := s.findQuery(id); q != nil {
			q.Removed = true
		}
	}
	return s.persist("remove")
}

func (s *Store) WriteResult(ctx context.Context, queryID int, leadCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.findQuery(queryID)
	if q == nil {
		return store.ErrNotFound
	}
	q.ResultLog = append(q.ResultLog, model.ResultEntry{At: s.now().UTC(), LeadCount: leadCount})
	return s.persist("write result")
}

func (s *Store) ResultsTotal(ctx context.Context, queryID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.findQuery(queryID)
	if q == nil {
		return 0, nil
	}
	return q.ResultsTotal(), nil
}

func (s *Store) DumpJobs(ctx context.Context) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Job, 0, len(s.doc.Jobs))
	for _, j := range s.doc.Jobs {
		out = append(out, j.Clone())
	}
	return out, nil
}

func (s *Store) DumpQueries(ctx context.Context) ([]*model.SearchQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.SearchQuery, 0, len(s.doc.Queries))
	for _, q := range s.doc.Queries {
		out = append(out, q.Clone())
	}
	return out, nil
}

func (s *Store) ImportJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Jobs = append(s.doc.Jobs, job.Clone())
	return s.persist("import job")
}

func (s *Store) ImportQuery(ctx context.Context, query *model.SearchQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Queries = append(s.doc.Queries, query.Clone())
	return s.persist("import query")
}
