package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/store"
)

type JobsCmd struct {
	List      JobsListCmd      `cmd:"" help:"List tracked jobs."`
	Show      JobsShowCmd      `cmd:"" help:"Show every field of one job."`
	Add       JobsAddCmd       `cmd:"" help:"Track a job found outside of searches."`
	SetStatus JobsSetStatusCmd `cmd:"" name:"set-status" help:"Move a job to a new status."`
	Purge     JobsPurgeCmd     `cmd:"" help:"Delete a job permanently."`
}

type JobsListCmd struct {
	Status string `help:"Only list jobs with this status (pending, in_progress, applied, discarded)."`
	Counts bool   `help:"Print the per-status tally instead of the list."`
}

func (j *JobsListCmd) Run(c *Context) error {
	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if j.Counts {
		counts, err := st.CountByStatus(ctx)
		if err != nil {
			return err
		}
		return c.UI.RenderStatusCounts(counts, c.Format())
	}

	jobs, err := st.List(ctx)
	if err != nil {
		return err
	}
	if j.Status != "" {
		status, err := model.ParseStatus(j.Status)
		if err != nil {
			return err
		}
		filtered := jobs[:0]
		for _, job := range jobs {
			if job.Status == status {
				filtered = append(filtered, job)
			}
		}
		jobs = filtered
	}
	return c.UI.RenderJobs(jobs, c.Format())
}

type JobsShowCmd struct {
	ID string `arg:"" help:"Job id, a unique prefix is enough."`
}

func (j *JobsShowCmd) Run(c *Context) error {
	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	job, err := resolveJob(ctx, st, j.ID)
	if err != nil {
		return err
	}
	return c.UI.RenderJobDetail(job, c.Format())
}

type JobsAddCmd struct {
	Company     string `required:"" help:"Company name."`
	Title       string `required:"" help:"Position title."`
	Link        string `help:"Posting URL, used for deduplication."`
	Location    string `help:"Location or remote note."`
	Description string `help:"Short description."`
	Addressee   string `help:"Contact person for the application."`
}

func (j *JobsAddCmd) Run(c *Context) error {
	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	job, err := st.Add(ctx, store.JobDraft{
		Company:     j.Company,
		Title:       j.Title,
		Link:        j.Link,
		Location:    j.Location,
		Description: j.Description,
		Addressee:   j.Addressee,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateLink) {
			return fmt.Errorf("already tracking a job with link %s", j.Link)
		}
		return err
	}
	c.UI.Successf("Tracking %s at %s (%s)", job.Title, job.Company, job.ID)
	return nil
}

type JobsSetStatusCmd struct {
	ID     string `arg:"" help:"Job id, a unique prefix is enough."`
	Status string `arg:"" help:"New status: pending, in_progress, applied, or discarded."`
}

func (j *JobsSetStatusCmd) Run(c *Context) error {
	status, err := model.ParseStatus(j.Status)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	job, err := resolveJob(ctx, st, j.ID)
	if err != nil {
		return err
	}
	if err := st.Update(ctx, job.ID, store.JobPatch{Status: &status}); err != nil {
		return err
	}
	c.UI.Successf("%s at %s is now %s", job.Title, job.Company, status)
	return nil
}

type JobsPurgeCmd struct {
	ID  string `arg:"" help:"Job id, a unique prefix is enough."`
	Yes bool   `help:"Skip the confirmation."`
}

func (j *JobsPurgeCmd) Run(c *Context) error {
	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	job, err := resolveJob(ctx, st, j.ID)
	if err != nil {
		return err
	}
	if !j.Yes {
		c.UI.Warnf("This permanently deletes %s at %s", job.Title, job.Company)
		return fmt.Errorf("re-run with --yes to confirm")
	}
	if err := st.Purge(ctx, job.ID); err != nil {
		return err
	}
	c.UI.Successf("Deleted %s at %s", job.Title, job.Company)
	return nil
}

// resolveJob expands a unique id prefix to the stored job. Exact ids pass
// through without a list scan.
func resolveJob(ctx context.Context, st store.JobStore, idOrPrefix string) (*model.Job, error) {
	job, err := st.Get(ctx, idOrPrefix)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	jobs, err := st.List(ctx)
	if err != nil {
		return nil, err
	}
	var matches []*model.Job
	for _, candidate := range jobs {
		if strings.HasPrefix(candidate.ID, idOrPrefix) {
			matches = append(matches, candidate)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no job matches %q", idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%q is ambiguous, it matches %d jobs", idOrPrefix, len(matches))
	}
}
