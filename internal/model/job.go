// Package model defines the persisted entities (Job, SearchQuery, Lead) and
// the job status state machine.
//
// Valid status graph:
//
//	pending ◄────► in_progress ────► applied
//	pending ─────────────────────► applied
//	applied ─────► in_progress              (reopen)
//	any     ─────► discarded
//	discarded ───► pending                  (restore)
//
// Every state may move to discarded; discarded is recoverable only through
// pending. There is no terminal state.
package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusApplied    Status = "applied"
	StatusDiscarded  Status = "discarded"
)

// validTransitions lists every allowed (from → to) pair. Self transitions
// are handled separately as no-ops.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusApplied, StatusDiscarded},
	StatusInProgress: {StatusPending, StatusApplied, StatusDiscarded},
	StatusApplied:    {StatusInProgress, StatusDiscarded},
	StatusDiscarded:  {StatusPending},
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusInProgress, StatusApplied, StatusDiscarded:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// AllStatuses returns every status in display order.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusApplied, StatusDiscarded}
}

// BadTransitionError reports a status change the state machine forbids.
type BadTransitionError struct {
	From Status
	To   Status
}

func (e *BadTransitionError) Error() string {
	return fmt.Sprintf("job status transition %s → %s is not allowed", e.From, e.To)
}

// CanTransition returns true when moving from → to is permitted. A
// same-state transition is always permitted (no-op).
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a *BadTransitionError when from → to is forbidden.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &BadTransitionError{From: from, To: to}
	}
	return nil
}

// Topic is one requirement↔experience mapping used to seed a cover letter.
type Topic struct {
	Requirement string `json:"requirement"`
	Experience  string `json:"experience"`
}

// Question is one application question and its drafted answer.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Job is a single discovered posting tracked through to application.
// It is a plain value object: nothing here touches storage. All mutation
// goes through a store so that every change is durably persisted.
type Job struct {
	ID       string `json:"id"`
	Company  string `json:"company"`
	Title    string `json:"title"`
	Location string `json:"location"`
	// Link is the posting URL and the sole dedup key. When non-empty it is
	// unique across all jobs of one user.
	Link            string `json:"link"`
	Description     string `json:"description"`
	FullDescription string `json:"full_description,omitempty"`
	// Language is the BCP-47 tag detected from the full description, empty
	// when unknown.
	Language string `json:"language,omitempty"`

	Status    Status    `json:"status"`
	DateFound time.Time `json:"date_found"`

	Addressee           string     `json:"addressee,omitempty"`
	CoverLetterTopics   []Topic    `json:"cover_letter_topics,omitempty"`
	CoverLetterBody     string     `json:"cover_letter_body,omitempty"`
	CoverLetterPDFPath  string     `json:"cover_letter_pdf_path,omitempty"`
	Questions           []Question `json:"questions,omitempty"`
	WritingInstructions []string   `json:"writing_instructions,omitempty"`

	// QueryIDs records which search queries produced this job. Empty for
	// manually added jobs.
	QueryIDs []int `json:"query_ids,omitempty"`
}

// IsApplied reports whether the job has been applied to. Legacy callers
// used job truthiness for this; keep it an explicit predicate.
func (j Job) IsApplied() bool {
	return j.Status == StatusApplied
}

// Clone returns a deep copy so callers can hand out jobs without aliasing
// the slices.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.CoverLetterTopics = append([]Topic(nil), j.CoverLetterTopics...)
	c.Questions = append([]Question(nil), j.Questions...)
	c.WritingInstructions = append([]string(nil), j.WritingInstructions...)
	c.QueryIDs = append([]int(nil), j.QueryIDs...)
	return &c
}

// StatusCounts holds one counter per lifecycle state.
type StatusCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Applied    int `json:"applied"`
	Discarded  int `json:"discarded"`
}

// Total is the number of jobs across all states.
func (c StatusCounts) Total() int {
	return c.Pending + c.InProgress + c.Applied + c.Discarded
}

// Add increments the counter for the given status.
func (c *StatusCounts) Add(s Status) {
	switch s {
	case StatusPending:
		c.Pending++
	case StatusInProgress:
		c.InProgress++
	case StatusApplied:
		c.Applied++
	case StatusDiscarded:
		c.Discarded++
	}
}
