package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses() {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("archived")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archived")

	_, err = ParseStatus("")
	require.Error(t, err)
}

func TestCanTransitionMatrix(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:    {StatusInProgress, StatusApplied, StatusDiscarded},
		StatusInProgress: {StatusPending, StatusApplied, StatusDiscarded},
		StatusApplied:    {StatusInProgress, StatusDiscarded},
		StatusDiscarded:  {StatusPending},
	}

	isAllowed := func(from, to Status) bool {
		for _, s := range allowed[from] {
			if s == to {
				return true
			}
		}
		return false
	}

	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			want := from == to || isAllowed(from, to)
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCheckTransitionForbidden(t *testing.T) {
	err := CheckTransition(StatusDiscarded, StatusApplied)
	require.Error(t, err)

	var bad *BadTransitionError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, StatusDiscarded, bad.From)
	assert.Equal(t, StatusApplied, bad.To)
	assert.Contains(t, err.Error(), "discarded")
	assert.Contains(t, err.Error(), "applied")
}

func TestCheckTransitionSelfIsNoop(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.NoError(t, CheckTransition(s, s))
	}
}

func TestDiscardedRecoverableOnlyViaPending(t *testing.T) {
	assert.True(t, CanTransition(StatusDiscarded, StatusPending))
	assert.False(t, CanTransition(StatusDiscarded, StatusInProgress))
	assert.False(t, CanTransition(StatusDiscarded, StatusApplied))
}

func TestIsApplied(t *testing.T) {
	j := Job{Status: StatusApplied}
	assert.True(t, j.IsApplied())

	for _, s := range []Status{StatusPending, StatusInProgress, StatusDiscarded} {
		j.Status = s
		assert.False(t, j.IsApplied())
	}
}

func TestJobCloneIsDeep(t *testing.T) {
	orig := &Job{
		ID:                  "job-1",
		Company:             "Acme",
		Title:               "Engineer",
		Link:                "https://acme.example/jobs/1",
		Status:              StatusPending,
		DateFound:           time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		CoverLetterTopics:   []Topic{{Requirement: "Go", Experience: "5 years"}},
		Questions:           []Question{{Question: "Visa?", Answer: "No sponsorship needed"}},
		WritingInstructions: []string{"short paragraphs"},
		QueryIDs:            []int{1, 2},
	}

	c := orig.Clone()
	require.NotSame(t, orig, c)
	assert.Equal(t, orig, c)

	c.CoverLetterTopics[0].Requirement = "Rust"
	c.Questions[0].Answer = "changed"
	c.WritingInstructions[0] = "changed"
	c.QueryIDs[0] = 99

	assert.Equal(t, "Go", orig.CoverLetterTopics[0].Requirement)
	assert.Equal(t, "No sponsorship needed", orig.Questions[0].Answer)
	assert.Equal(t, "short paragraphs", orig.WritingInstructions[0])
	assert.Equal(t, 1, orig.QueryIDs[0])
}

func TestJobCloneNil(t *testing.T) {
	var j *Job
	assert.Nil(t, j.Clone())
}

func TestStatusCounts(t *testing.T) {
	var c StatusCounts
	c.Add(StatusPending)
	c.Add(StatusPending)
	c.Add(StatusPending)
	c.Add(StatusApplied)
	c.Add(StatusDiscarded)

	assert.Equal(t, StatusCounts{Pending: 3, Applied: 1, Discarded: 1}, c)
	assert.Equal(t, 5, c.Total())
}
