package cmd

import (
	"context"
	"encoding/json"
	"fmt"
)

type QueriesCmd struct {
	Add      QueriesAddCmd      `cmd:"" help:"Save new search queries."`
	Generate QueriesGenerateCmd `cmd:"" help:"Generate query suggestions from the profile background."`
	List     QueriesListCmd     `cmd:"" help:"List active queries."`
	Remove   QueriesRemoveCmd   `cmd:"" help:"Remove queries by id."`
	Stats    QueriesStatsCmd    `cmd:"" help:"Show one query's run history."`
}

type QueriesAddCmd struct {
	Text []string `arg:"" help:"Query text, one per argument."`
}

func (q *QueriesAddCmd) Run(c *Context) error {
	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	saved, err := st.Save(ctx, q.Text)
	if err != nil {
		return err
	}
	for _, query := range saved {
		c.UI.Successf("Saved query %d: %s", query.ID, query.Text)
	}
	return nil
}

type QueriesGenerateCmd struct {
	Count int  `help:"How many queries to generate." default:"5"`
	Save  bool `help:"Save the generated queries right away."`
}

func (q *QueriesGenerateCmd) Run(c *Context) error {
	ctx := context.Background()
	rt, err := c.newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	texts, err := rt.pipeline.GenerateQueries(ctx, q.Count)
	if err != nil {
		return err
	}

	if q.Save {
		saved, err := rt.store.Save(ctx, texts)
		if err != nil {
			return err
		}
		for _, query := range saved {
			c.UI.Successf("Saved query %d: %s", query.ID, query.Text)
		}
		return nil
	}

	if c.JSONOutput {
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(texts)
	}
	for _, text := range texts {
		c.UI.Printf("%s\n", text)
	}
	c.UI.Infof("Re-run with --save to keep them, or save a subset with: jobscout queries add ...")
	return nil
}

type QueriesListCmd struct{}

func (q *QueriesListCmd) Run(c *Context) error {
	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	queries, err := st.Active(ctx)
	if err != nil {
		return err
	}
	return c.UI.RenderQueries(queries, c.Format())
}

type QueriesRemoveCmd struct {
	IDs []int `arg:"" help:"Query ids to remove."`
}

func (q *QueriesRemoveCmd) Run(c *Context) error {
	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Remove(ctx, q.IDs); err != nil {
		return err
	}
	c.UI.Successf("Removed %d queries", len(q.IDs))
	return nil
}

type QueriesStatsCmd struct {
	ID int `arg:"" help:"Query id."`
}

func (q *QueriesStatsCmd) Run(c *Context) error {
	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	queries, err := st.Active(ctx)
	if err != nil {
		return err
	}
	for _, query := range queries {
		if query.ID == q.ID {
			return c.UI.RenderQueryStats(query, c.Format())
		}
	}
	return fmt.Errorf("no active query with id %d", q.ID)
}
