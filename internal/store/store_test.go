package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobscout/jobscout/internal/model"
)

func strPtr(s string) *string { return &s }

func TestApplyPatchFields(t *testing.T) {
	j := &model.Job{
		ID:      "j1",
		Company: "Acme",
		Title:   "Engineer",
		Status:  model.StatusPending,
	}

	topics := []model.Topic{{Requirement: "Go", Experience: "builds services"}}
	err := ApplyPatch(j, JobPatch{
		Company:           strPtr("Initech"),
		Location:          strPtr("Berlin"),
		CoverLetterTopics: &topics,
		CoverLetterBody:   strPtr("Dear team,"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Initech", j.Company)
	assert.Equal(t, "Engineer", j.Title)
	assert.Equal(t, "Berlin", j.Location)
	assert.Equal(t, topics, j.CoverLetterTopics)
	assert.Equal(t, "Dear team,", j.CoverLetterBody)

	// the applied slice is detached from the caller's
	topics[0].Requirement = "changed"
	assert.Equal(t, "Go", j.CoverLetterTopics[0].Requirement)
}

func TestApplyPatchStatusTransition(t *testing.T) {
	j := &model.Job{ID: "j1", Status: model.StatusDiscarded}

	applied := model.StatusApplied
	err := ApplyPatch(j, JobPatch{Status: &applied})
	require.Error(t, err)

	var bad *model.BadTransitionError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, model.StatusDiscarded, j.Status, "rejected patch must not mutate")

	pending := model.StatusPending
	require.NoError(t, ApplyPatch(j, JobPatch{Status: &pending}))
	assert.Equal(t, model.StatusPending, j.Status)
}

func TestApplyPatchFullDescriptionClearsTopics(t *testing.T) {
	j := &model.Job{
		ID:                "j1",
		FullDescription:   "old text",
		CoverLetterTopics: []model.Topic{{Requirement: "Go", Experience: "yes"}},
	}

	require.NoError(t, ApplyPatch(j, JobPatch{FullDescription: strPtr("new text")}))
	assert.Equal(t, "new text", j.FullDescription)
	assert.Empty(t, j.CoverLetterTopics, "stale topics must not survive a rewritten description")

	// clearing the description counts as a change too
	j.CoverLetterTopics = []model.Topic{{Requirement: "Go", Experience: "yes"}}
	require.NoError(t, ApplyPatch(j, JobPatch{FullDescription: strPtr("")}))
	assert.Empty(t, j.CoverLetterTopics)
}

func TestApplyPatchExplicitTopicsWinOverClear(t *testing.T) {
	j := &model.Job{
		ID:                "j1",
		FullDescription:   "old",
		CoverLetterTopics: []model.Topic{{Requirement: "old", Experience: "old"}},
	}

	fresh := []model.Topic{{Requirement: "new req", Experience: "new exp"}}
	require.NoError(t, ApplyPatch(j, JobPatch{
		FullDescription:   strPtr("rewritten"),
		CoverLetterTopics: &fresh,
	}))
	assert.Equal(t, fresh, j.CoverLetterTopics)
}

func TestJobPatchIsZero(t *testing.T) {
	assert.True(t, JobPatch{}.IsZero())
	assert.False(t, JobPatch{Company: strPtr("Acme")}.IsZero())
}

func TestHealPDFPath(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "letter.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("%PDF"), 0o644))

	j := &model.Job{CoverLetterPDFPath: existing}
	HealPDFPath(j)
	assert.Equal(t, existing, j.CoverLetterPDFPath)

	j.CoverLetterPDFPath = filepath.Join(dir, "gone.pdf")
	HealPDFPath(j)
	assert.Empty(t, j.CoverLetterPDFPath)

	HealPDFPath(nil) // must not panic
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("file", "update", cause)
	require.Error(t, err)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "file", se.Backend)
	assert.Equal(t, "update", se.Op)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")

	assert.True(t, IsStorageError(err))
	assert.False(t, IsStorageError(cause))
	assert.NoError(t, NewStorageError("file", "update", nil))
}
