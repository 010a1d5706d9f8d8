// Package pipeline runs one ingestion batch for one user: recover leads
// from a previous interrupted run, search every due query, dedupe against
// the batch and the store, optionally enrich with scraped descriptions,
// filter against the profile background, and commit the survivors as
// pending jobs. The write-ahead log makes the whole thing crash-safe: a
// search result exists on disk before it is trusted, and the log is
// cleared only after the entire batch has committed.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jobscout/jobscout/internal/llm"
	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/store"
	"github.com/jobscout/jobscout/internal/wal"
)

// Completer produces one model completion. The pipeline never assumes
// response structure beyond "the JSON it asked for is somewhere in the
// text"; parsing happens on this side, tolerantly.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Scraper fetches a posting URL and returns readable text for it.
type Scraper interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Notifier is told about finished runs. Implementations swallow their own
// failures; a notification must never fail a run that already committed.
type Notifier interface {
	RunFinished(ctx context.Context, report *RunReport)
}

// Config carries the pipeline's collaborators and knobs. Jobs, Queries,
// WAL and Completer are required; Scraper only when runs enrich.
type Config struct {
	Jobs      store.JobStore
	Queries   store.QueryStore
	WAL       *wal.Log
	Completer Completer
	Scraper   Scraper

	// User names whose stores these are, for logs and reports only.
	User string
	// Background is the profile text the filter phase judges leads
	// against. Empty disables filtering (everything is kept).
	Background string

	// RecencyWindow suppresses re-searching queries already attempted
	// within it. Zero means 12 hours.
	RecencyWindow time.Duration
	// SearchConcurrency and EnrichConcurrency bound the per-phase worker
	// fanout. Zero or one means sequential.
	SearchConcurrency int
	EnrichConcurrency int

	Logger   zerolog.Logger
	Notifier Notifier
	// Now is a test hook; nil means time.Now.
	Now func() time.Time
}

// Pipeline is one user's ingestion engine. A Pipeline is safe for
// concurrent Run calls in the sense that commits serialize on one lock,
// but the intended discipline is one run per user at a time, enforced by
// the caller (daemon singleflight, Redis run lock).
type Pipeline struct {
	jobs      store.JobStore
	queries   store.QueryStore
	wal       *wal.Log
	completer Completer
	scraper   Scraper

	user       string
	background string

	recencyWindow time.Duration
	searchLimit   int
	enrichLimit   int

	logger   zerolog.Logger
	notifier Notifier
	now      func() time.Time

	// commitMu keeps the HasLink re-check and the Add of a batch under
	// one lock so two concurrent commits can never both pass the check
	// for the same link.
	commitMu sync.Mutex
}

// RunOptions narrows a single run.
type RunOptions struct {
	// QueryIDs restricts the search phase to these query ids. Nil means
	// every active query.
	QueryIDs []int
	// FetchDescriptions turns on the enrich phase.
	FetchDescriptions bool
}

// New validates cfg and returns a ready pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Jobs == nil {
		return nil, fmt.Errorf("pipeline: job store is required")
	}
	if cfg.Queries == nil {
		return nil, fmt.Errorf("pipeline: query store is required")
	}
	if cfg.WAL == nil {
		return nil, fmt.Errorf("pipeline: recovery log is required")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("pipeline: completer is required")
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = 12 * time.Hour
	}
	if cfg.SearchConcurrency <= 0 {
		cfg.SearchConcurrency = 1
	}
	if cfg.EnrichConcurrency <= 0 {
		cfg.EnrichConcurrency = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{
		jobs:          cfg.Jobs,
		queries:       cfg.Queries,
		wal:           cfg.WAL,
		completer:     cfg.Completer,
		scraper:       cfg.Scraper,
		user:          cfg.User,
		background:    cfg.Background,
		recencyWindow: cfg.RecencyWindow,
		searchLimit:   cfg.SearchConcurrency,
		enrichLimit:   cfg.EnrichConcurrency,
		logger:        cfg.Logger,
		notifier:      cfg.Notifier,
		now:           cfg.Now,
	}, nil
}

// candidate is a lead moving through the batch, together with everything
// the phases learn about it. sourceQuery is the query text a recovered
// lead was logged under, resolved to ids once the active set is loaded.
type candidate struct {
	lead            model.Lead
	sourceQuery     string
	queryIDs        []int
	fullDescription string
	language        string
}

func (c candidate) draft() store.JobDraft {
	return store.JobDraft{
		Company:         c.lead.Company,
		Title:           c.lead.Title,
		Link:            c.lead.Link,
		Location:        c.lead.Location,
		Description:     c.lead.Description,
		FullDescription: c.fullDescription,
		Language:        c.language,
		Addressee:       c.lead.Addressee,
		QueryIDs:        c.queryIDs,
	}
}
