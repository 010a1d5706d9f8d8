// Package storetest holds the persistence contract suite. Every backend
// must pass it unchanged; backend test files supply only a Factory.
package storetest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/store"
)

// Factory returns a store over a fresh, empty namespace plus a reopen
// function that closes the handle and reattaches to the same data. Reopen
// is how the suite proves writes hit disk, not a cache.
type Factory func(t *testing.T) (s store.Store, reopen func() store.Store)

func strPtr(s string) *string { return &s }

func statusPtr(s model.Status) *model.Status { return &s }

// Run exercises the full store contract against one backend.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, factory Factory)
	}{
		{"AddAssignsIdentity", testAddAssignsIdentity},
		{"AddPersistsImmediately", testAddPersistsImmediately},
		{"AddRejectsDuplicateLink", testAddRejectsDuplicateLink},
		{"GetMissing", testGetMissing},
		{"GetReturnsDetachedCopy", testGetReturnsDetachedCopy},
		{"HasLink", testHasLink},
		{"ListAndCountByStatus", testListAndCountByStatus},
		{"UpdateWriteThrough", testUpdateWriteThrough},
		{"UpdateStatusTransitions", testUpdateStatusTransitions},
		{"UpdateFullDescriptionClearsTopics", testUpdateFullDescriptionClearsTopics},
		{"UpdateUnknownIDPanics", testUpdateUnknownIDPanics},
		{"Purge", testPurge},
		{"PDFPathSelfHeals", testPDFPathSelfHeals},
		{"QueryIDsMonotonic", testQueryIDsMonotonic},
		{"QueryIDsNeverReused", testQueryIDsNeverReused},
		{"QueryRemoveSoftIdempotent", testQueryRemoveSoftIdempotent},
		{"QueryResultLog", testQueryResultLog},
		{"QueryDurability", testQueryDurability},
		{"PorterDumpsEverything", testPorterDumpsEverything},
		{"PorterImportPreserves", testPorterImportPreserves},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, factory)
		})
	}
}

func draft(link string) store.JobDraft {
	return store.JobDraft{
		Company:     "Acme",
		Title:       "Platform Engineer",
		Link:        link,
		Location:    "Berlin",
		Description: "build and run the platform",
	}
}

func testAddAssignsIdentity(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	before := time.Now().Add(-5 * time.Second)
	j, err := s.Add(ctx, store.JobDraft{
		Company:         "Acme",
		Title:           "Platform Engineer",
		Link:            "https://acme.example/jobs/1",
		Location:        "Berlin",
		Description:     "short summary",
		FullDescription: "the whole posting",
		Addressee:       "Jo Smith",
		QueryIDs:        []int{3, 7},
	})
	require.NoError(t, err)
	require.NotNil(t, j)

	assert.NotEmpty(t, j.ID)
	assert.Equal(t, model.StatusPending, j.Status)
	assert.True(t, j.DateFound.After(before), "dateFound should be set at add time")
	assert.Equal(t, []int{3, 7}, j.QueryIDs)

	got, err := s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "Platform Engineer", got.Title)
	assert.Equal(t, "https://acme.example/jobs/1", got.Link)
	assert.Equal(t, "Berlin", got.Location)
	assert.Equal(t, "short summary", got.Description)
	assert.Equal(t, "the whole posting", got.FullDescription)
	assert.Equal(t, "Jo Smith", got.Addressee)
	assert.Equal(t, []int{3, 7}, got.QueryIDs)
	assert.Equal(t, model.StatusPending, got.Status)

	// ids are unique across adds
	j2, err := s.Add(ctx, draft("https://acme.example/jobs/2"))
	require.NoError(t, err)
	assert.NotEqual(t, j.ID, j2.ID)
}

func testAddPersistsImmediately(t *testing.T, factory Factory) {
	s, reopen := factory(t)
	ctx := context.Background()

	j, err := s.Add(ctx, draft("https://acme.example/jobs/1"))
	require.NoError(t, err)

	s2 := reopen()
	defer s2.Close()

	got, err := s2.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
	assert.WithinDuration(t, j.DateFound, got.DateFound, time.Second)
}

func testAddRejectsDuplicateLink(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	_, err := s.Add(ctx, draft("https://acme.example/jobs/1"))
	require.NoError(t, err)

	_, err = s.Add(ctx, draft("https://acme.example/jobs/1"))
	require.ErrorIs(t, err, store.ErrDuplicateLink)

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Total())

	// empty links never collide
	_, err = s.Add(ctx, draft(""))
	require.NoError(t, err)
	_, err = s.Add(ctx, draft(""))
	require.NoError(t, err)
}

func testGetMissing(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()

	_, err := s.Get(context.Background(), "no-such-id")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testGetReturnsDetachedCopy(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	j, err := s.Add(ctx, store.JobDraft{Company: "Acme", Title: "Engineer", Link: "https://acme.example/jobs/1", QueryIDs: []int{1}})
	require.NoError(t, err)

	j.Company = "scribbled"
	j.QueryIDs[0] = 99

	got, err := s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, []int{1}, got.QueryIDs)

	got.Title = "scribbled too"
	again, err := s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "Engineer", again.Title)
}

func testHasLink(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	ok, err := s.HasLink(ctx, "https://acme.example/jobs/1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Add(ctx, draft("https://acme.example/jobs/1"))
	require.NoError(t, err)

	ok, err = s.HasLink(ctx, "https://acme.example/jobs/1")
	require.NoError(t, err)
	assert.True(t, ok)

	// the empty link is not a link
	_, err = s.Add(ctx, draft(""))
	require.NoError(t, err)
	ok, err = s.HasLink(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testListAndCountByStatus(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		j, err := s.Add(ctx, store.JobDraft{Company: "Acme", Title: "Engineer", Link: ""})
		require.NoError(t, err)
		ids = append(ids, j.ID)
	}
	require.NoError(t, s.Update(ctx, ids[3], store.JobPatch{Status: statusPtr(model.StatusApplied)}))
	require.NoError(t, s.Update(ctx, ids[4], store.JobPatch{Status: statusPtr(model.StatusDiscarded)}))

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCounts{Pending: 3, Applied: 1, Discarded: 1}, counts)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5, "discarded jobs still list")
}

func testUpdateWriteThrough(t *testing.T, factory Factory) {
	s, reopen := factory(t)
	ctx := context.Background()

	j, err := s.Add(ctx, draft("https://acme.example/jobs/1"))
	require.NoError(t, err)

	topics := []model.Topic{
		{Requirement: "Go", Experience: "five years of services"},
		{Requirement: "SQL", Experience: "schema design"},
	}
	questions := []model.Question{{Question: "Start date?", Answer: "Next month"}}
	instructions := []string{"no buzzwords", "two paragraphs"}

	require.NoError(t, s.Update(ctx, j.ID, store.JobPatch{
		Company:             strPtr("Initech"),
		Title:               strPtr("Staff Engineer"),
		Location:            strPtr("Remote"),
		Description:         strPtr("rewritten summary"),
		FullDescription:     strPtr("rewritten full text"),
		Language:            strPtr("de"),
		Addressee:           strPtr("Dr. Weber"),
		CoverLetterBody:     strPtr("Sehr geehrte Frau Weber,"),
		Questions:           &questions,
		WritingInstructions: &instructions,
	}))
	require.NoError(t, s.Update(ctx, j.ID, store.JobPatch{CoverLetterTopics: &topics}))
	require.NoError(t, s.Update(ctx, j.ID, store.JobPatch{Status: statusPtr(model.StatusInProgress)}))

	s2 := reopen()
	defer s2.Close()

	got, err := s2.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "Initech", got.Company)
	assert.Equal(t, "Staff Engineer", got.Title)
	assert.Equal(t, "Remote", got.Location)
	assert.Equal(t, "rewritten summary", got.Description)
	assert.Equal(t, "rewritten full text", got.FullDescription)
	assert.Equal(t, "de", got.Language)
	assert.Equal(t, "Dr. Weber", got.Addressee)
	assert.Equal(t, "Sehr geehrte Frau Weber,", got.CoverLetterBody)
	assert.Equal(t, topics, got.CoverLetterTopics)
	assert.Equal(t, questions, got.Questions)
	assert.Equal(t, instructions, got.WritingInstructions)
	assert.Equal(t, model.StatusInProgress, got.Status)
}

func testUpdateStatusTransitions(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	j, err := s.Add(ctx, draft("https://acme.example/jobs/1"))
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, j.ID, store.JobPatch{Status: statusPtr(model.StatusInProgress)}))
	require.NoError(t, s.Update(ctx, j.ID, store.JobPatch{Status: statusPtr(model.StatusApplied)}))
	require.NoError(t, s.Update(ctx, j.ID, store.JobPatch{Status: statusPtr(model.StatusDiscarded)}))

	err = s.Update(ctx, j.ID, store.JobPatch{Status: statusPtr(model.StatusApplied)})
	var bad *model.BadTransitionError
	require.ErrorAs(t, err, &bad)

	got, err := s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDiscarded, got.Status, "rejected transition must not change state")

	require.NoError(t, s.Update(ctx, j.ID, store.JobPatch{Status: statusPtr(model.StatusPending)}))
}

func testUpdateFullDescriptionClearsTopics(t *testing.T, factory Factory) {
	s, reopen := factory(t)
	ctx := context.Background()

	j, err := s.Add(ctx, draft("https://acme.example/jobs/1"))
	require.NoError(t, err)

	topics := []model.Topic{{Requirement: "Go", Experience: "services"}}
	require.NoError(t, s.Update(ctx, j.ID, store.JobPatch{FullDescription: strPtr("v1"), CoverLetterTopics: &topics}))
	require.NoError(t, s.Update(ctx, j.ID, store.JobPatch{FullDescription: strPtr("v2")}))

	s2 := reopen()
	defer s2.Close()

	got, err := s2.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.FullDescription)
	assert.Empty(t, got.CoverLetterTopics)
}

func testUpdateUnknownIDPanics(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()

	require.Panics(t, func() {
		_ = s.Update(context.Background(), "no-such-id", store.JobPatch{Company: strPtr("x")})
	})
}

func testPurge(t *testing.T, factory Factory) {
	s, reopen := factory(t)
	ctx := context.Background()

	j, err := s.Add(ctx, draft("https://acme.example/jobs/1"))
	require.NoError(t, err)
	keep, err := s.Add(ctx, draft("https://acme.example/jobs/2"))
	require.NoError(t, err)

	require.NoError(t, s.Purge(ctx, j.ID))

	_, err = s.Get(ctx, j.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	ok, err := s.HasLink(ctx, "https://acme.example/jobs/1")
	require.NoError(t, err)
	assert.False(t, ok, "purge frees the link")

	require.ErrorIs(t, s.Purge(ctx, j.ID), store.ErrNotFound)

	s2 := reopen()
	defer s2.Close()
	all, err := s2.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].ID)
}

func testPDFPathSelfHeals(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	pdf := filepath.Join(t.TempDir(), "letter.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o644))

	j, err := s.Add(ctx, draft("https://acme.example/jobs/1"))
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, j.ID, store.JobPatch{CoverLetterPDFPath: &pdf}))

	got, err := s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, pdf, got.CoverLetterPDFPath)

	require.NoError(t, os.Remove(pdf))
	got, err = s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CoverLetterPDFPath, "dangling path reads as unset")

	// healing is read-only: restore the file and the path is back
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o644))
	got, err = s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, pdf, got.CoverLetterPDFPath)
}

func testQueryIDsMonotonic(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	first, err := s.Save(ctx, []string{"golang berlin", "sre remote", "platform engineer"})
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, 1, first[0].ID)
	assert.Equal(t, 2, first[1].ID)
	assert.Equal(t, 3, first[2].ID)
	assert.Equal(t, "golang berlin", first[0].Text)

	second, err := s.Save(ctx, []string{"data engineer"})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 4, second[0].ID)
}

func testQueryIDsNeverReused(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	saved, err := s.Save(ctx, []string{"one", "two"})
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, []int{saved[1].ID}))

	// the removed id 2 still counts toward the maximum
	next, err := s.Save(ctx, []string{"three"})
	require.NoError(t, err)
	assert.Equal(t, 3, next[0].ID)

	require.NoError(t, s.Remove(ctx, []int{1, 3}))
	last, err := s.Save(ctx, []string{"four"})
	require.NoError(t, err)
	assert.Equal(t, 4, last[0].ID)
}

func testQueryRemoveSoftIdempotent(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	saved, err := s.Save(ctx, []string{"one", "two", "three"})
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, []int{saved[0].ID, saved[2].ID}))
	require.NoError(t, s.Remove(ctx, []int{saved[0].ID}), "re-removing is a no-op")
	require.NoError(t, s.Remove(ctx, []int{404}), "unknown ids are ignored")

	active, err := s.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "two", active[0].Text)
	assert.False(t, active[0].Removed)
}

func testQueryResultLog(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	saved, err := s.Save(ctx, []string{"golang berlin"})
	require.NoError(t, err)
	id := saved[0].ID

	total, err := s.ResultsTotal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	require.NoError(t, s.WriteResult(ctx, id, 7))
	require.NoError(t, s.WriteResult(ctx, id, 0))
	require.NoError(t, s.WriteResult(ctx, id, 3))

	total, err = s.ResultsTotal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, total)

	listed, err := s.Active(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].ResultLog, 3, "result log is append-only")
	assert.Equal(t, 7, listed[0].ResultLog[0].LeadCount)
	assert.Equal(t, 0, listed[0].ResultLog[1].LeadCount)
	assert.Equal(t, 3, listed[0].ResultLog[2].LeadCount)

	require.ErrorIs(t, s.WriteResult(ctx, 404, 1), store.ErrNotFound)

	// a query nobody logged against sums to zero
	total, err = s.ResultsTotal(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func testQueryDurability(t *testing.T, factory Factory) {
	s, reopen := factory(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, []string{"one", "two"})
	require.NoError(t, err)
	require.NoError(t, s.WriteResult(ctx, saved[0].ID, 5))
	require.NoError(t, s.Remove(ctx, []int{saved[1].ID}))

	s2 := reopen()
	defer s2.Close()

	active, err := s2.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, saved[0].ID, active[0].ID)

	total, err := s2.ResultsTotal(ctx, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	next, err := s2.Save(ctx, []string{"three"})
	require.NoError(t, err)
	assert.Equal(t, 3, next[0].ID, "removed rows still pin the id sequence after reopen")
}

func testPorterDumpsEverything(t *testing.T, factory Factory) {
	s, _ := factory(t)
	defer s.Close()
	ctx := context.Background()

	porter, ok := s.(store.Porter)
	require.True(t, ok, "every shipped backend migrates")

	saved, err := s.Save(ctx, []string{"one", "two"})
	require.NoError(t, err)
	require.NoError(t, s.WriteResult(ctx, saved[0].ID, 4))
	require.NoError(t, s.Remove(ctx, []int{saved[1].ID}))

	_, err = s.Add(ctx, draft("https://acme.example/jobs/1"))
	require.NoError(t, err)

	queries, err := porter.DumpQueries(ctx)
	require.NoError(t, err)
	require.Len(t, queries, 2, "dump includes removed rows")

	var removed *model.SearchQuery
	for _, q := range queries {
		if q.ID == saved[1].ID {
			removed = q
		}
	}
	require.NotNil(t, removed)
	assert.True(t, removed.Removed)

	jobs, err := porter.DumpJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func testPorterImportPreserves(t *testing.T, factory Factory) {
	s, reopen := factory(t)
	ctx := context.Background()

	porter, ok := s.(store.Porter)
	require.True(t, ok)

	found := time.Date(2024, 11, 5, 9, 30, 0, 0, time.UTC)
	job := &model.Job{
		ID:                  "imported-id",
		Company:             "Initech",
		Title:               "Engineer",
		Link:                "https://initech.example/jobs/9",
		Status:              model.StatusApplied,
		DateFound:           found,
		Language:            "en",
		CoverLetterTopics:   []model.Topic{{Requirement: "Go", Experience: "yes"}},
		Questions:           []model.Question{{Question: "Visa?", Answer: "None needed"}},
		WritingInstructions: []string{"be brief"},
		QueryIDs:            []int{2},
	}
	require.NoError(t, porter.ImportJob(ctx, job))

	query := &model.SearchQuery{
		ID:        2,
		Text:      "imported query",
		CreatedAt: found,
		Removed:   true,
		ResultLog: []model.ResultEntry{{At: found, LeadCount: 6}},
	}
	require.NoError(t, porter.ImportQuery(ctx, query))

	s2 := reopen()
	defer s2.Close()

	got, err := s2.Get(ctx, "imported-id")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApplied, got.Status)
	assert.WithinDuration(t, found, got.DateFound, time.Second)
	assert.Equal(t, job.CoverLetterTopics, got.CoverLetterTopics)
	assert.Equal(t, job.QueryIDs, got.QueryIDs)

	total, err := s2.ResultsTotal(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	next, err := s2.Save(ctx, []string{"after import"})
	require.NoError(t, err)
	assert.Equal(t, 3, next[0].ID, "imported removed query pins the sequence")
}
