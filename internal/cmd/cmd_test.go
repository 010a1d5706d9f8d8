package cmd

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobscout/jobscout/internal/config"
	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/pipeline"
	"github.com/jobscout/jobscout/internal/store"
	"github.com/jobscout/jobscout/internal/store/filestore"
	"github.com/jobscout/jobscout/internal/store/sqlstore"
	"github.com/jobscout/jobscout/internal/ui"
)

type testBuffers struct {
	out *bytes.Buffer
	err *bytes.Buffer
}

func newTestContext(t *testing.T) (*Context, *testBuffers) {
	t.Helper()
	dir := t.TempDir()
	buffers := &testBuffers{out: &bytes.Buffer{}, err: &bytes.Buffer{}}
	c := &Context{
		Out:     buffers.out,
		Err:     buffers.err,
		UI:      ui.New(buffers.out, buffers.err, ui.ColorNever),
		Config:  config.Config{Storage: config.StorageConfig{Backend: config.BackendFile, DataDir: dir}},
		Profile: config.Profile{Name: "tester"},
		Logger:  zerolog.Nop(),
	}
	return c, buffers
}

// openRaw opens the same backing store the commands under test use.
func openRaw(t *testing.T, c *Context) store.Store {
	t.Helper()
	st, err := filestore.Open(c.Config.Storage.DataDir, "tester")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCLIGrammar(t *testing.T) {
	parser, err := kong.New(NewCLI(),
		kong.Name("jobscout"),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": "test"},
	)
	require.NoError(t, err)

	cases := []struct {
		args []string
		want string
	}{
		{[]string{"run"}, "run"},
		{[]string{"run", "--query", "3", "--no-fetch"}, "run"},
		{[]string{"jobs", "list", "--counts"}, "jobs list"},
		{[]string{"jobs", "show", "abc123"}, "jobs show <id>"},
		{[]string{"jobs", "set-status", "abc", "applied"}, "jobs set-status <id> <status>"},
		{[]string{"queries", "add", "golang berlin"}, "queries add <text>"},
		{[]string{"queries", "remove", "1", "2"}, "queries remove <ids>"},
		{[]string{"profile", "init"}, "profile init"},
		{[]string{"migrate", "--to", "sqlite"}, "migrate"},
		{[]string{"version"}, "version"},
	}
	for _, tc := range cases {
		kctx, err := parser.Parse(tc.args)
		require.NoError(t, err, "args %v", tc.args)
		assert.Equal(t, tc.want, kctx.Command(), "args %v", tc.args)
	}
}

func TestJobsAddListShow(t *testing.T) {
	c, buffers := newTestContext(t)

	add := &JobsAddCmd{Company: "Acme", Title: "Go Engineer", Link: "https://acme.dev/jobs/1", Location: "Berlin"}
	require.NoError(t, add.Run(c))
	assert.Contains(t, buffers.out.String(), "Tracking Go Engineer at Acme")

	buffers.out.Reset()
	require.NoError(t, (&JobsListCmd{}).Run(c))
	assert.Contains(t, buffers.out.String(), "Acme")
	assert.Contains(t, buffers.out.String(), "pending")

	st := openRaw(t, c)
	jobs, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	buffers.out.Reset()
	show := &JobsShowCmd{ID: jobs[0].ID[:8]}
	require.NoError(t, show.Run(c))
	assert.Contains(t, buffers.out.String(), jobs[0].ID)
	assert.Contains(t, buffers.out.String(), "Go Engineer")
}

func TestJobsAddRejectsDuplicateLink(t *testing.T) {
	c, _ := newTestContext(t)

	add := &JobsAddCmd{Company: "Acme", Title: "Go Engineer", Link: "https://acme.dev/jobs/1"}
	require.NoError(t, add.Run(c))

	err := (&JobsAddCmd{Company: "Other", Title: "Clone", Link: "https://acme.dev/jobs/1"}).Run(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already tracking")
}

func TestJobsListStatusFilter(t *testing.T) {
	c, buffers := newTestContext(t)

	require.NoError(t, (&JobsAddCmd{Company: "Acme", Title: "Go Engineer"}).Run(c))
	require.NoError(t, (&JobsAddCmd{Company: "Beta", Title: "SRE"}).Run(c))

	st := openRaw(t, c)
	jobs, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	applied := model.StatusApplied
	require.NoError(t, st.Update(context.Background(), jobs[0].ID, store.JobPatch{Status: &applied}))

	buffers.out.Reset()
	require.NoError(t, (&JobsListCmd{Status: "applied"}).Run(c))
	assert.Contains(t, buffers.out.String(), "Acme")
	assert.NotContains(t, buffers.out.String(), "Beta")

	err = (&JobsListCmd{Status: "archived"}).Run(c)
	require.Error(t, err)
}

func TestJobsListCounts(t *testing.T) {
	c, buffers := newTestContext(t)

	require.NoError(t, (&JobsAddCmd{Company: "Acme", Title: "Go Engineer"}).Run(c))
	require.NoError(t, (&JobsAddCmd{Company: "Beta", Title: "SRE"}).Run(c))

	buffers.out.Reset()
	require.NoError(t, (&JobsListCmd{Counts: true}).Run(c))
	assert.Contains(t, buffers.out.String(), "pending")
	assert.Contains(t, buffers.out.String(), "2")
}

func TestJobsSetStatus(t *testing.T) {
	c, buffers := newTestContext(t)

	require.NoError(t, (&JobsAddCmd{Company: "Acme", Title: "Go Engineer"}).Run(c))
	st := openRaw(t, c)
	jobs, err := st.List(context.Background())
	require.NoError(t, err)
	id := jobs[0].ID

	require.NoError(t, (&JobsSetStatusCmd{ID: id, Status: "applied"}).Run(c))
	assert.Contains(t, buffers.out.String(), "is now applied")

	// applied cannot go straight back to pending
	err = (&JobsSetStatusCmd{ID: id, Status: "pending"}).Run(c)
	require.Error(t, err)

	err = (&JobsSetStatusCmd{ID: id, Status: "archived"}).Run(c)
	require.Error(t, err)
}

func TestJobsPurge(t *testing.T) {
	c, buffers := newTestContext(t)

	require.NoError(t, (&JobsAddCmd{Company: "Acme", Title: "Go Engineer"}).Run(c))
	st := openRaw(t, c)
	jobs, err := st.List(context.Background())
	require.NoError(t, err)
	id := jobs[0].ID

	err = (&JobsPurgeCmd{ID: id}).Run(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.Contains(t, buffers.err.String(), "permanently deletes")

	_, err = st.Get(context.Background(), id)
	require.NoError(t, err, "job must survive an unconfirmed purge")

	require.NoError(t, (&JobsPurgeCmd{ID: id, Yes: true}).Run(c))

	// Commands open their own store handle, so re-open to see the result.
	fresh := openRaw(t, c)
	_, err = fresh.Get(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResolveJob(t *testing.T) {
	c, _ := newTestContext(t)
	ctx := context.Background()
	st := openRaw(t, c)

	seed := func(id, company string) {
		require.NoError(t, st.(store.Porter).ImportJob(ctx, &model.Job{
			ID:        id,
			Company:   company,
			Title:     "Engineer",
			Status:    model.StatusPending,
			DateFound: time.Now().UTC(),
		}))
	}
	seed("aaaa1111-0000-0000-0000-000000000001", "First")
	seed("aaaa2222-0000-0000-0000-000000000002", "Second")

	got, err := resolveJob(ctx, st, "aaaa1111-0000-0000-0000-000000000001")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Company)

	got, err = resolveJob(ctx, st, "aaaa2")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Company)

	_, err = resolveJob(ctx, st, "aaaa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")

	_, err = resolveJob(ctx, st, "zzzz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no job matches")
}

func TestQueriesAddListRemoveStats(t *testing.T) {
	c, buffers := newTestContext(t)

	require.NoError(t, (&QueriesAddCmd{Text: []string{"golang berlin", "sre remote"}}).Run(c))
	assert.Contains(t, buffers.out.String(), "Saved query 1: golang berlin")
	assert.Contains(t, buffers.out.String(), "Saved query 2: sre remote")

	buffers.out.Reset()
	require.NoError(t, (&QueriesListCmd{}).Run(c))
	assert.Contains(t, buffers.out.String(), "golang berlin")
	assert.Contains(t, buffers.out.String(), "sre remote")

	require.NoError(t, (&QueriesRemoveCmd{IDs: []int{1}}).Run(c))

	buffers.out.Reset()
	require.NoError(t, (&QueriesListCmd{}).Run(c))
	assert.NotContains(t, buffers.out.String(), "golang berlin")
	assert.Contains(t, buffers.out.String(), "sre remote")

	buffers.out.Reset()
	require.NoError(t, (&QueriesStatsCmd{ID: 2}).Run(c))
	assert.Contains(t, buffers.out.String(), "sre remote")

	err := (&QueriesStatsCmd{ID: 99}).Run(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active query with id 99")
}

func TestMigrateCommand(t *testing.T) {
	c, buffers := newTestContext(t)
	ctx := context.Background()

	require.NoError(t, (&QueriesAddCmd{Text: []string{"golang berlin"}}).Run(c))
	require.NoError(t, (&JobsAddCmd{Company: "Acme", Title: "Go Engineer", Link: "https://acme.dev/jobs/1"}).Run(c))

	buffers.out.Reset()
	require.NoError(t, (&MigrateCmd{To: "sqlite"}).Run(c))
	assert.Contains(t, buffers.out.String(), "Migrated 1 queries and 1 jobs to sqlite")

	dst, err := sqlstore.Open(c.Config.DBPath(), "tester")
	require.NoError(t, err)
	defer dst.Close()

	jobs, err := dst.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Acme", jobs[0].Company)

	queries, err := dst.Active(ctx)
	require.NoError(t, err)
	require.Len(t, queries, 1)

	// Running it twice only skips.
	buffers.out.Reset()
	require.NoError(t, (&MigrateCmd{To: "sqlite"}).Run(c))
	assert.Contains(t, buffers.out.String(), "Migrated 0 queries and 0 jobs")
	assert.Contains(t, buffers.out.String(), "Skipped 1 queries and 1 jobs")

	err = (&MigrateCmd{To: "file"}).Run(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already lives")
}

func TestProfileCommands(t *testing.T) {
	c, buffers := newTestContext(t)
	path := c.Config.ProfilePath()

	require.NoError(t, (&ProfileInitCmd{}).Run(c))
	assert.Contains(t, buffers.out.String(), "Created")
	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := config.LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "default", loaded.Name)

	// A second init leaves the existing file alone.
	buffers.out.Reset()
	require.NoError(t, (&ProfileInitCmd{}).Run(c))
	assert.Contains(t, buffers.out.String(), "already exists")

	buffers.out.Reset()
	c.Profile = config.Profile{Name: "anna", Background: "Go engineer in Berlin", Queries: []string{"golang berlin"}}
	require.NoError(t, (&ProfileShowCmd{}).Run(c))
	out := buffers.out.String()
	assert.Contains(t, out, "anna")
	assert.Contains(t, out, "Go engineer in Berlin")
	assert.Contains(t, out, "golang berlin")

	buffers.out.Reset()
	require.NoError(t, (&ProfilePathCmd{}).Run(c))
	assert.Equal(t, path+"\n", buffers.out.String())
}

func TestSummarizeRun(t *testing.T) {
	c, buffers := newTestContext(t)

	started := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	summarizeRun(c, &pipeline.RunReport{
		User:             "tester",
		StartedAt:        started,
		FinishedAt:       started.Add(90 * time.Second),
		Recovered:        2,
		QueriesSearched:  3,
		SearchErrors:     1,
		Leads:            9,
		DroppedDuplicate: 2,
		FilteredOut:      1,
		Committed:        4,
	})

	out := buffers.out.String()
	assert.Contains(t, out, "Recovered 2 leads")
	assert.Contains(t, out, "Searched 3 queries, found 9 leads")
	assert.Contains(t, out, "Dropped 2 duplicate or known leads")
	assert.Contains(t, out, "Filtered out 1 leads")
	assert.Contains(t, out, "Committed 4 new jobs in 1m30s")
	assert.Contains(t, buffers.err.String(), "1 searches failed")
}

func TestVersionCmd(t *testing.T) {
	c, buffers := newTestContext(t)
	c.Version = "1.2.3"
	require.NoError(t, (&VersionCmd{}).Run(c))
	assert.Equal(t, "1.2.3\n", buffers.out.String())
}

func TestOpenBackendUnknown(t *testing.T) {
	_, err := openBackend(context.Background(), config.Config{}, "cassandra", "tester")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestOpenBackendPostgresNeedsURL(t *testing.T) {
	_, err := openBackend(context.Background(), config.Config{}, config.BackendPostgres, "tester")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
