package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobscout/jobscout/internal/model"
)

func newPlainUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return New(&out, &errOut, ColorNever), &out, &errOut
}

func TestNormalizeColorMode(t *testing.T) {
	assert.Equal(t, ColorAlways, NormalizeColorMode("always"))
	assert.Equal(t, ColorAlways, NormalizeColorMode(" ALWAYS "))
	assert.Equal(t, ColorNever, NormalizeColorMode("never"))
	assert.Equal(t, ColorAuto, NormalizeColorMode(""))
	assert.Equal(t, ColorAuto, NormalizeColorMode("rainbow"))
}

func TestNormalizeFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, NormalizeFormat("json"))
	assert.Equal(t, FormatJSON, NormalizeFormat(" JSON "))
	assert.Equal(t, FormatTable, NormalizeFormat("table"))
	assert.Equal(t, FormatTable, NormalizeFormat(""))
}

func TestLeveledOutputGoesToTheRightStream(t *testing.T) {
	u, out, errOut := newPlainUI()

	u.Infof("searching %d queries", 3)
	u.Successf("done")
	u.Warnf("slow response")
	u.Errorf("boom: %v", assert.AnError)

	assert.Contains(t, out.String(), "searching 3 queries")
	assert.Contains(t, out.String(), "done")
	assert.Contains(t, errOut.String(), "slow response")
	assert.Contains(t, errOut.String(), "boom")
	// Plain mode writes no escape sequences.
	assert.NotContains(t, out.String(), "\x1b[")
	assert.NotContains(t, errOut.String(), "\x1b[")
}

func TestStatusTextPlain(t *testing.T) {
	u, _, _ := newPlainUI()
	assert.Equal(t, "pending", u.StatusText(model.StatusPending))
	assert.Equal(t, "applied", u.StatusText(model.StatusApplied))
}

func sampleJob() *model.Job {
	return &model.Job{
		ID:        "3f1c0a52-9b7e-4d26-a1cf-0f6f0cf0f6a1",
		Company:   "Acme",
		Title:     "Go Engineer",
		Location:  "Berlin",
		Link:      "https://acme.example/jobs/1",
		Status:    model.StatusPending,
		DateFound: time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC),
		QueryIDs:  []int{1, 3},
	}
}

func TestRenderJobsTable(t *testing.T) {
	u, out, _ := newPlainUI()

	require.NoError(t, u.RenderJobs([]*model.Job{sampleJob()}, FormatTable))

	got := out.String()
	assert.Contains(t, got, "ID")
	assert.Contains(t, got, "STATUS")
	assert.Contains(t, got, "3f1c0a52")
	assert.NotContains(t, got, "3f1c0a52-9b7e")
	assert.Contains(t, got, "Acme")
	assert.Contains(t, got, "pending")
	assert.Contains(t, got, "2025-06-12")
}

func TestRenderJobsEmpty(t *testing.T) {
	u, out, _ := newPlainUI()
	require.NoError(t, u.RenderJobs(nil, FormatTable))
	assert.Contains(t, out.String(), "No jobs yet")
}

func TestRenderJobsJSON(t *testing.T) {
	u, out, _ := newPlainUI()

	require.NoError(t, u.RenderJobs([]*model.Job{sampleJob()}, FormatJSON))

	var decoded []model.Job
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Acme", decoded[0].Company)
	assert.Equal(t, []int{1, 3}, decoded[0].QueryIDs)
}

func TestRenderJobDetail(t *testing.T) {
	u, out, _ := newPlainUI()
	j := sampleJob()
	j.FullDescription = "Long posting text."
	j.Language = "de"
	j.CoverLetterTopics = []model.Topic{{Requirement: "Go", Experience: "ten years"}}

	require.NoError(t, u.RenderJobDetail(j, FormatTable))

	got := out.String()
	assert.Contains(t, got, "Go Engineer at Acme")
	assert.Contains(t, got, j.ID)
	assert.Contains(t, got, "Long posting text.")
	assert.Contains(t, got, "Language:  de")
	assert.Contains(t, got, "Queries:   1, 3")
	assert.Contains(t, got, "Go: ten years")
}

func TestRenderQueries(t *testing.T) {
	u, out, _ := newPlainUI()
	queries := []*model.SearchQuery{
		{
			ID:        1,
			Text:      "golang berlin",
			CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
			ResultLog: []model.ResultEntry{
				{At: time.Now(), LeadCount: 2},
				{At: time.Now(), LeadCount: 3},
			},
		},
		{ID: 2, Text: "sre remote", CreatedAt: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)},
	}

	require.NoError(t, u.RenderQueries(queries, FormatTable))

	got := out.String()
	assert.Contains(t, got, "golang berlin")
	assert.Contains(t, got, "sre remote")
	// Two runs, five leads for the first query.
	assert.Regexp(t, `1\s+golang berlin\s+2025-05-01\s+2\s+5`, got)
}

func TestRenderStatusCounts(t *testing.T) {
	u, out, _ := newPlainUI()
	counts := model.StatusCounts{Pending: 3, Applied: 1, Discarded: 1}

	require.NoError(t, u.RenderStatusCounts(counts, FormatTable))

	got := out.String()
	assert.Regexp(t, `pending\s+3`, got)
	assert.Regexp(t, `applied\s+1`, got)
	assert.Regexp(t, `total\s+5`, got)
}
