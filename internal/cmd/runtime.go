package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobscout/jobscout/internal/agent"
	"github.com/jobscout/jobscout/internal/events"
	"github.com/jobscout/jobscout/internal/llm"
	"github.com/jobscout/jobscout/internal/pipeline"
	"github.com/jobscout/jobscout/internal/scrape"
	"github.com/jobscout/jobscout/internal/store"
	"github.com/jobscout/jobscout/internal/tools"
	"github.com/jobscout/jobscout/internal/wal"
)

// runLockTTL bounds how long a crashed process can block other runs.
const runLockTTL = 30 * time.Minute

// runtime bundles everything a pipeline command wires together. Redis is
// optional: when REDIS_URL is unset or unreachable the lock and the
// publisher degrade to no-ops and runs proceed locally.
type runtime struct {
	store    store.Store
	redis    *redis.Client
	pipeline *pipeline.Pipeline
	lock     *events.RunLock
}

// newRuntime opens the store and assembles the pipeline with the
// completer, scraper, and event wiring the configuration asks for.
func (c *Context) newRuntime(ctx context.Context, withScraper bool) (*runtime, error) {
	st, err := c.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	client, err := llm.NewClient(&llm.Config{
		APIKey:      c.Config.LLM.APIKey,
		APIURL:      c.Config.LLM.APIURL,
		Model:       c.Config.LLM.Model,
		MaxTokens:   c.Config.LLM.MaxTokens,
		Temperature: c.Config.LLM.Temperature,
		Timeout:     c.Config.LLM.Timeout,
		SiteURL:     c.Config.LLM.SiteURL,
		AppName:     c.Config.LLM.AppName,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("llm client: %w", err)
	}

	registry := tools.NewRegistry()
	if c.Config.Search.APIKey != "" {
		if err := registry.Register(tools.NewWebSearchTool(c.Config.Search.APIKey, c.Config.Search.APIURL)); err != nil {
			st.Close()
			return nil, fmt.Errorf("register web search tool: %w", err)
		}
	} else {
		c.Logger.Warn().Msg("SEARCH_API_KEY is not set, searches run without the web search tool")
	}

	completer := agent.NewCompleter(client, registry, c.Logger.With().Str("component", "agent").Logger())
	completer.SetMaxIterations(c.Config.Agent.MaxIterations)

	var scraper pipeline.Scraper
	if withScraper {
		s, err := scrape.New(scrape.Config{}, c.Logger.With().Str("component", "scrape").Logger())
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("scraper: %w", err)
		}
		scraper = s
	}

	rt := &runtime{store: st}
	var notifier pipeline.Notifier
	if c.Config.Storage.RedisURL != "" {
		rdb, err := events.Connect(ctx, c.Config.Storage.RedisURL)
		if err != nil {
			c.Logger.Warn().Err(err).Msg("redis unreachable, running without lock and events")
		} else {
			rt.redis = rdb
			notifier = events.NewPublisher(rdb, c.Logger.With().Str("component", "events").Logger())
		}
	}
	rt.lock = events.NewRunLock(rt.redis, c.Profile.User(), runLockTTL)

	p, err := pipeline.New(pipeline.Config{
		Jobs:              st,
		Queries:           st,
		WAL:               wal.New(c.Config.WALPath(c.Profile.User())),
		Completer:         completer,
		Scraper:           scraper,
		User:              c.Profile.User(),
		Background:        c.Profile.Background,
		RecencyWindow:     time.Duration(c.Config.Pipeline.RecencyWindowHours) * time.Hour,
		SearchConcurrency: c.Config.Pipeline.SearchConcurrency,
		EnrichConcurrency: c.Config.Pipeline.EnrichConcurrency,
		Logger:            c.Logger.With().Str("component", "pipeline").Logger(),
		Notifier:          notifier,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.pipeline = p
	return rt, nil
}

func (r *runtime) Close() {
	if r.redis != nil {
		_ = r.redis.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
