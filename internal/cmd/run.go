package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jobscout/jobscout/internal/events"
	"github.com/jobscout/jobscout/internal/pipeline"
)

type RunCmd struct {
	Query []int `help:"Limit the run to these query ids." placeholder:"ID"`
	Fetch bool  `help:"Fetch pages and extract full descriptions." default:"true" negatable:""`
}

func (r *RunCmd) Run(c *Context) error {
	ctx := context.Background()

	rt, err := c.newRuntime(ctx, r.Fetch)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.lock.Acquire(ctx); err != nil {
		if errors.Is(err, events.ErrLockHeld) {
			return fmt.Errorf("another run is already in progress for user %q", c.Profile.User())
		}
		return fmt.Errorf("run lock: %w", err)
	}
	defer func() {
		if err := rt.lock.Release(ctx); err != nil {
			c.Logger.Warn().Err(err).Msg("release run lock")
		}
	}()

	report, err := rt.pipeline.Run(ctx, pipeline.RunOptions{
		QueryIDs:          r.Query,
		FetchDescriptions: r.Fetch,
	})
	if err != nil {
		return err
	}

	if c.JSONOutput {
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	summarizeRun(c, report)
	return nil
}

func summarizeRun(c *Context, r *pipeline.RunReport) {
	if r.Recovered > 0 {
		c.UI.Infof("Recovered %d leads from an interrupted run", r.Recovered)
	}
	c.UI.Printf("Searched %d queries, found %d leads\n", r.QueriesSearched, r.Leads)
	if r.QueriesSkippedRecent > 0 {
		c.UI.Infof("Skipped %d queries searched recently", r.QueriesSkippedRecent)
	}
	if r.SearchErrors > 0 {
		c.UI.Warnf("%d searches failed, see the log for details", r.SearchErrors)
	}
	if dropped := r.DroppedDuplicate + r.DroppedExisting + r.DroppedNoLink; dropped > 0 {
		c.UI.Printf("Dropped %d duplicate or known leads\n", dropped)
	}
	if r.EnrichFailed > 0 {
		c.UI.Warnf("Could not fetch descriptions for %d leads", r.EnrichFailed)
	}
	if r.FilteredOut > 0 {
		c.UI.Printf("Filtered out %d leads that do not match the profile\n", r.FilteredOut)
	}
	c.UI.Successf("Committed %d new jobs in %s", r.Committed, r.Duration().Round(time.Millisecond))
}
