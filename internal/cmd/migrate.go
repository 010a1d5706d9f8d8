package cmd

import (
	"context"
	"fmt"

	"github.com/jobscout/jobscout/internal/store"
)

type MigrateCmd struct {
	To          string `required:"" enum:"file,sqlite,postgres" help:"Target backend: file, sqlite, or postgres."`
	DatabaseURL string `help:"Postgres connection string for the target, defaults to DATABASE_URL."`
}

func (m *MigrateCmd) Run(c *Context) error {
	ctx := context.Background()
	if m.To == c.Config.Storage.Backend {
		return fmt.Errorf("data already lives in the %s backend", m.To)
	}

	src, err := c.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open source backend: %w", err)
	}
	defer src.Close()

	dstCfg := c.Config
	if m.DatabaseURL != "" {
		dstCfg.Storage.DatabaseURL = m.DatabaseURL
	}
	dst, err := openBackend(ctx, dstCfg, m.To, c.Profile.User())
	if err != nil {
		return fmt.Errorf("open target backend: %w", err)
	}
	defer dst.Close()

	srcPorter, ok := src.(store.Porter)
	if !ok {
		return fmt.Errorf("the %s backend cannot export data", c.Config.Storage.Backend)
	}
	dstPorter, ok := dst.(store.Porter)
	if !ok {
		return fmt.Errorf("the %s backend cannot import data", m.To)
	}

	report, err := store.Migrate(ctx, srcPorter, dstPorter)
	if err != nil {
		return err
	}

	c.UI.Successf("Migrated %d queries and %d jobs to %s", report.Queries, report.Jobs, m.To)
	if report.QueriesSkipped+report.JobsSkipped > 0 {
		c.UI.Infof("Skipped %d queries and %d jobs already present in the target", report.QueriesSkipped, report.JobsSkipped)
	}
	c.UI.Infof("Set JOBSCOUT_BACKEND=%s to start using it", m.To)
	return nil
}
