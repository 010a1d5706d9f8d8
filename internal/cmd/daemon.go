package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/jobscout/jobscout/internal/events"
	"github.com/jobscout/jobscout/internal/pipeline"
	"github.com/jobscout/jobscout/pkg/icron"
)

type DaemonCmd struct {
	Cron      string `help:"Cron schedule override (standard five-field expression)."`
	Immediate bool   `help:"Run once immediately on startup."`
	Fetch     bool   `help:"Fetch pages and extract full descriptions." default:"true" negatable:""`
}

var singleflightGroup singleflight.Group

func (d *DaemonCmd) Run(c *Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	expr := d.Cron
	if expr == "" {
		expr = c.Config.Daemon.CronExpr
	}

	rt, err := c.newRuntime(ctx, d.Fetch)
	if err != nil {
		return err
	}
	defer rt.Close()

	runFunc := func() {
		_, _, _ = singleflightGroup.Do("run", func() (any, error) {
			d.runScheduled(ctx, c, rt, expr)
			return nil, nil
		})
	}

	engine := cron.New()
	if _, err := engine.AddFunc(expr, runFunc); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	logNextTrigger(c, expr)
	if d.Immediate {
		go runFunc()
	}

	engine.Start()
	c.UI.Infof("Watching for new jobs on schedule %q, press Ctrl+C to stop", expr)
	<-ctx.Done()

	c.Logger.Info().Msg("shutting down")
	<-engine.Stop().Done()
	return nil
}

func (d *DaemonCmd) runScheduled(ctx context.Context, c *Context, rt *runtime, expr string) {
	if err := rt.lock.Acquire(ctx); err != nil {
		if errors.Is(err, events.ErrLockHeld) {
			c.Logger.Warn().Msg("another process holds the run lock, skipping this trigger")
			return
		}
		c.Logger.Error().Err(err).Msg("acquire run lock")
		return
	}
	defer func() {
		if err := rt.lock.Release(ctx); err != nil {
			c.Logger.Warn().Err(err).Msg("release run lock")
		}
	}()

	report, err := rt.pipeline.Run(ctx, pipeline.RunOptions{FetchDescriptions: d.Fetch})
	if err != nil {
		c.Logger.Error().Err(err).Msg("scheduled run failed")
		return
	}
	if report.Committed > 0 {
		c.UI.Successf("Committed %d new jobs", report.Committed)
	}
	logNextTrigger(c, expr)
}

func logNextTrigger(c *Context, expr string) {
	info, err := icron.GetTriggerInfo(expr, time.Now())
	if err != nil {
		return
	}
	c.Logger.Info().
		Str("cron", expr).
		Time("next_run", info.Next).
		Str("until", info.TimeUntilNext.Round(time.Second).String()).
		Msg("next scheduled run")
}
