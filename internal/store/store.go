// Package store defines the persistence contract shared by every backend.
// Backends are interchangeable: the flat-file document store, the SQLite
// store and the Postgres store all satisfy the same interfaces and the same
// contract test suite.
package store

import (
	"context"
	"fmt"
	"os"

	"github.com/jobscout/jobscout/internal/model"
)

// JobDraft carries the caller-supplied fields for a new job. The store
// assigns id, status and dateFound itself.
type JobDraft struct {
	Company         string
	Title           string
	Link            string
	Location        string
	Description     string
	FullDescription string
	Language        string
	Addressee       string
	QueryIDs        []int
}

// JobPatch is a partial update: every non-nil field is persisted durably
// before Update returns. There is no separate save call.
type JobPatch struct {
	Status              *model.Status
	Company             *string
	Title               *string
	Location            *string
	Description         *string
	FullDescription     *string
	Language            *string
	Addressee           *string
	CoverLetterTopics   *[]model.Topic
	CoverLetterBody     *string
	CoverLetterPDFPath  *string
	Questions           *[]model.Question
	WritingInstructions *[]string
}

// IsZero reports whether the patch changes nothing.
func (p JobPatch) IsZero() bool {
	return p == JobPatch{}
}

// JobStore is the durable collection of jobs for one user.
//
// Update on an id that does not exist is a programming error and panics;
// persistence failures surface as *StorageError with the in-memory state
// left as-is (callers re-read before trusting it).
type JobStore interface {
	Add(ctx context.Context, draft JobDraft) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	HasLink(ctx context.Context, link string) (bool, error)
	List(ctx context.Context) ([]*model.Job, error)
	CountByStatus(ctx context.Context) (model.StatusCounts, error)
	Update(ctx context.Context, id string, patch JobPatch) error
	Purge(ctx context.Context, id string) error
}

// QueryStore is the durable collection of search queries for one user.
// Query ids grow monotonically and are never reused, removed rows included.
// Active returns the non-removed queries; removed rows stay on disk for id
// stability and audit.
type QueryStore interface {
	Save(ctx context.Context, texts []string) ([]*model.SearchQuery, error)
	Active(ctx context.Context) ([]*model.SearchQuery, error)
	Remove(ctx context.Context, ids []int) error
	WriteResult(ctx context.Context, queryID int, leadCount int) error
	ResultsTotal(ctx context.Context, queryID int) (int, error)
}

// Store is what a backend provides: jobs and queries behind one handle.
type Store interface {
	JobStore
	QueryStore
	Close() error
}

// ApplyPatch applies p to j in memory, enforcing the status transition
// table. Changing FullDescription clears CoverLetterTopics in the same
// apply so stale topics never survive a rewritten description; an explicit
// topics field in the same patch wins over the clear.
func ApplyPatch(j *model.Job, p JobPatch) error {
	if p.Status != nil {
		if err := model.CheckTransition(j.Status, *p.Status); err != nil {
			return err
		}
		j.Status = *p.Status
	}
	if p.Company != nil {
		j.Company = *p.Company
	}
	if p.Title != nil {
		j.Title = *p.Title
	}
	if p.Location != nil {
		j.Location = *p.Location
	}
	if p.Description != nil {
		j.Description = *p.Description
	}
	if p.FullDescription != nil {
		j.FullDescription = *p.FullDescription
		j.CoverLetterTopics = nil
	}
	if p.Language != nil {
		j.Language = *p.Language
	}
	if p.Addressee != nil {
		j.Addressee = *p.Addressee
	}
	if p.CoverLetterTopics != nil {
		j.CoverLetterTopics = append([]model.Topic(nil), (*p.CoverLetterTopics)...)
	}
	if p.CoverLetterBody != nil {
		j.CoverLetterBody = *p.CoverLetterBody
	}
	if p.CoverLetterPDFPath != nil {
		j.CoverLetterPDFPath = *p.CoverLetterPDFPath
	}
	if p.Questions != nil {
		j.Questions = append([]model.Question(nil), (*p.Questions)...)
	}
	if p.WritingInstructions != nil {
		j.WritingInstructions = append([]string(nil), (*p.WritingInstructions)...)
	}
	return nil
}

// HealPDFPath clears a cover letter PDF path that no longer points at an
// existing file. Backends call it on every job they hand out; the clearing
// is not written back.
func HealPDFPath(j *model.Job) {
	if j == nil || j.CoverLetterPDFPath == "" {
		return
	}
	if _, err := os.Stat(j.CoverLetterPDFPath); err != nil {
		j.CoverLetterPDFPath = ""
	}
}

// PanicMissingJob is the shared contract-violation panic for mutations
// addressed at an id the store has never seen.
func PanicMissingJob(backend, id string) {
	panic(fmt.Sprintf("%s store: update of unknown job id %q", backend, id))
}
