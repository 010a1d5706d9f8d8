package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryResultsTotal(t *testing.T) {
	q := &SearchQuery{ID: 1, Text: "golang backend berlin"}
	assert.Equal(t, 0, q.ResultsTotal())

	now := time.Now()
	q.ResultLog = []ResultEntry{
		{At: now.Add(-48 * time.Hour), LeadCount: 7},
		{At: now.Add(-24 * time.Hour), LeadCount: 0},
		{At: now, LeadCount: 3},
	}
	assert.Equal(t, 10, q.ResultsTotal())
}

func TestQueryCloneIsDeep(t *testing.T) {
	q := &SearchQuery{
		ID:        4,
		Text:      "sre remote",
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		ResultLog: []ResultEntry{{At: time.Now(), LeadCount: 2}},
	}

	c := q.Clone()
	require.NotSame(t, q, c)
	assert.Equal(t, q, c)

	c.ResultLog[0].LeadCount = 99
	assert.Equal(t, 2, q.ResultLog[0].LeadCount)
}

func TestLeadNormalize(t *testing.T) {
	l := Lead{
		Company:  "  Acme  ",
		Title:    "\tEngineer\n",
		Link:     " https://acme.example/jobs/1 ",
		Location: " Berlin ",
	}

	n := l.Normalize()
	assert.Equal(t, "Acme", n.Company)
	assert.Equal(t, "Engineer", n.Title)
	assert.Equal(t, "https://acme.example/jobs/1", n.Link)
	assert.Equal(t, "Berlin", n.Location)

	// value receiver: the original is untouched
	assert.Equal(t, "  Acme  ", l.Company)
}
