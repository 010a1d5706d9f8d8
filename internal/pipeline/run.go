package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/jobscout/jobscout/internal/llm"
	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/store"
)

// Run executes one batch. The report is non-nil exactly when the error is
// nil. A storage failure aborts the run with the recovery log intact so
// the next run resumes; search, scrape and filter failures never abort.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	if opts.FetchDescriptions && p.scraper == nil {
		return nil, fmt.Errorf("pipeline: fetch descriptions requested but no scraper configured")
	}

	report := &RunReport{User: p.user, StartedAt: p.now()}
	p.logger.Debug().
		Ints("query_ids", opts.QueryIDs).
		Bool("fetch_descriptions", opts.FetchDescriptions).
		Msg("run started")

	phase := p.now()
	candidates, recentTexts, err := p.recoverCandidates()
	if err != nil {
		return nil, err
	}
	report.Recovered = len(candidates)
	report.Timings.Recover = p.now().Sub(phase)

	phase = p.now()
	active, err := p.queries.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active queries: %w", err)
	}
	resolveProvenance(candidates, active)
	targets := selectTargets(active, opts.QueryIDs, recentTexts, report)
	fresh, err := p.search(ctx, targets, report)
	if err != nil {
		return nil, err
	}
	report.Leads = len(fresh)
	candidates = append(candidates, fresh...)
	report.Timings.Search = p.now().Sub(phase)

	phase = p.now()
	batch, err := p.dedupe(ctx, candidates, report)
	if err != nil {
		return nil, err
	}
	report.Timings.Dedupe = p.now().Sub(phase)

	if opts.FetchDescriptions {
		phase = p.now()
		p.enrich(ctx, batch, report)
		report.Timings.Enrich = p.now().Sub(phase)
	}

	phase = p.now()
	batch = p.filter(ctx, batch, report)
	report.Timings.Filter = p.now().Sub(phase)

	phase = p.now()
	if err := p.commit(ctx, batch, report); err != nil {
		return nil, err
	}
	report.Timings.Commit = p.now().Sub(phase)

	report.FinishedAt = p.now()
	p.logRun(report)
	if p.notifier != nil {
		p.notifier.RunFinished(ctx, report)
	}
	return report, nil
}

// recoverCandidates reads the log a crashed or interrupted run left
// behind. Every entry's leads re-enter the batch; entries younger than the
// recency window additionally mark their query text as already attempted.
func (p *Pipeline) recoverCandidates() ([]candidate, map[string]bool, error) {
	entries, err := p.wal.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read recovery log: %w", err)
	}
	recent := make(map[string]bool)
	var candidates []candidate
	cutoff := p.now().Add(-p.recencyWindow)
	for _, e := range entries {
		if e.At.After(cutoff) {
			recent[e.Query] = true
		}
		for _, lead := range e.Jobs {
			candidates = append(candidates, candidate{lead: lead.Normalize(), sourceQuery: e.Query})
		}
	}
	if len(entries) > 0 {
		p.logger.Info().
			Int("entries", len(entries)).
			Int("leads", len(candidates)).
			Str("path", p.wal.Path()).
			Msg("recovered interrupted run")
	}
	return candidates, recent, nil
}

// resolveProvenance maps recovered candidates' query text back to active
// query ids. Text that no longer matches an active query leaves the
// candidate without provenance, same as a manually added job.
func resolveProvenance(candidates []candidate, active []*model.SearchQuery) {
	byText := make(map[string]int, len(active))
	for _, q := range active {
		if _, ok := byText[q.Text]; !ok {
			byText[q.Text] = q.ID
		}
	}
	for i := range candidates {
		if candidates[i].sourceQuery == "" {
			continue
		}
		if id, ok := byText[candidates[i].sourceQuery]; ok {
			candidates[i].queryIDs = []int{id}
		}
	}
}

// selectTargets picks the queries this run will search: the active set,
// narrowed to the requested ids when given, minus recently attempted
// texts.
func selectTargets(active []*model.SearchQuery, ids []int, recent map[string]bool, report *RunReport) []*model.SearchQuery {
	wanted := func(int) bool { return true }
	if ids != nil {
		set := make(map[int]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		wanted = func(id int) bool { return set[id] }
	}
	var targets []*model.SearchQuery
	for _, q := range active {
		if !wanted(q.ID) {
			continue
		}
		if recent[q.Text] {
			report.QueriesSkippedRecent++
			continue
		}
		targets = append(targets, q)
	}
	return targets
}

// search runs every target query and returns the parsed leads in target
// order. Each attempt is durably recorded, result count first and log
// entry second, whether or not the completion succeeded; only a storage
// failure aborts.
func (p *Pipeline) search(ctx context.Context, targets []*model.SearchQuery, report *RunReport) ([]candidate, error) {
	report.QueriesSearched = len(targets)
	if len(targets) == 0 {
		return nil, nil
	}

	results := make([][]model.Lead, len(targets))
	searchErrs := make([]error, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.searchLimit)
	for i, q := range targets {
		g.Go(func() error {
			leads, searchErr := p.searchQuery(gctx, q)
			if err := p.queries.WriteResult(gctx, q.ID, len(leads)); err != nil {
				return fmt.Errorf("record result for query %d: %w", q.ID, err)
			}
			if err := p.wal.Append(q.Text, leads, searchErr); err != nil {
				return fmt.Errorf("log attempt for query %d: %w", q.ID, err)
			}
			results[i], searchErrs[i] = leads, searchErr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var fresh []candidate
	for i, q := range targets {
		if searchErrs[i] != nil {
			report.SearchErrors++
			continue
		}
		for _, lead := range results[i] {
			fresh = append(fresh, candidate{lead: lead, queryIDs: []int{q.ID}})
		}
	}
	return fresh, nil
}

// searchQuery makes one web-search completion and parses its lead array.
// Failures come back as an error the caller records, never fatally.
func (p *Pipeline) searchQuery(ctx context.Context, q *model.SearchQuery) ([]model.Lead, error) {
	text, err := p.completer.Complete(ctx, llm.Request{
		System:    searchSystem,
		Prompt:    searchPrompt(q.Text),
		WebSearch: true,
	})
	if err != nil {
		p.logger.Warn().Err(err).Int("query_id", q.ID).Str("query", q.Text).Msg("search completion failed")
		return nil, err
	}
	leads, err := llm.DecodeJSONArray[model.Lead](text)
	if err != nil {
		p.logger.Warn().Err(err).Int("query_id", q.ID).Msg("search response not parsable")
		return nil, err
	}
	for i := range leads {
		leads[i] = leads[i].Normalize()
	}
	return leads, nil
}

// dedupe drops linkless leads, collapses in-batch duplicates into their
// first occurrence (unioning query provenance), and drops links the store
// already has. Input order is preserved: recovered leads ahead of new
// ones, new ones in query order.
func (p *Pipeline) dedupe(ctx context.Context, candidates []candidate, report *RunReport) ([]candidate, error) {
	seen := make(map[string]int, len(candidates))
	batch := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		link := c.lead.Link
		if link == "" {
			report.DroppedNoLink++
			continue
		}
		if at, ok := seen[link]; ok {
			batch[at].queryIDs = unionIDs(batch[at].queryIDs, c.queryIDs)
			report.DroppedDuplicate++
			continue
		}
		exists, err := p.jobs.HasLink(ctx, link)
		if err != nil {
			return nil, fmt.Errorf("dedup lookup %s: %w", link, err)
		}
		if exists {
			report.DroppedExisting++
			continue
		}
		seen[link] = len(batch)
		batch = append(batch, c)
	}
	return batch, nil
}

// unionIDs appends the ids of b not already in a, keeping first-seen
// order.
func unionIDs(a, b []int) []int {
	for _, id := range b {
		found := false
		for _, have := range a {
			if have == id {
				found = true
				break
			}
		}
		if !found {
			a = append(a, id)
		}
	}
	return a
}

// enrich fetches each posting page and asks the model for the clean full
// text. Failures leave the description empty and never abort the batch.
func (p *Pipeline) enrich(ctx context.Context, batch []candidate, report *RunReport) {
	if len(batch) == 0 {
		return
	}
	failed := make([]bool, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.enrichLimit)
	for i := range batch {
		c := &batch[i]
		g.Go(func() error {
			page, err := p.scraper.Fetch(gctx, c.lead.Link)
			if err != nil {
				p.logger.Warn().Err(err).Str("link", c.lead.Link).Msg("scrape failed, keeping short description")
				failed[i] = true
				return nil
			}
			full, err := p.extractDescription(gctx, c.lead, page)
			if err != nil {
				p.logger.Warn().Err(err).Str("link", c.lead.Link).Msg("description extraction failed, keeping short description")
				failed[i] = true
				return nil
			}
			c.fullDescription = full
			c.language = detectLanguage(full)
			return nil
		})
	}
	// Failures are per-item and recorded in place; workers never return an
	// error that would cancel the group.
	_ = g.Wait()

	for _, f := range failed {
		if f {
			report.EnrichFailed++
		} else {
			report.Enriched++
		}
	}
}

// extractDescription asks the model to pull the posting's own text out of
// a scraped page. An empty answer counts as a failure so callers treat it
// like any other extraction problem.
func (p *Pipeline) extractDescription(ctx context.Context, lead model.Lead, page string) (string, error) {
	text, err := p.completer.Complete(ctx, llm.Request{
		System: extractSystem,
		Prompt: extractPrompt(lead, page),
	})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(text)
	if out == "" {
		return "", fmt.Errorf("empty extraction")
	}
	return out, nil
}

// filter asks the model which leads fit the profile background, in one
// batched call. Any failure fails open: a parse bug must never silently
// discard leads. An empty background keeps everything.
func (p *Pipeline) filter(ctx context.Context, batch []candidate, report *RunReport) []candidate {
	if len(batch) == 0 || strings.TrimSpace(p.background) == "" {
		return batch
	}
	text, err := p.completer.Complete(ctx, llm.Request{
		System: filterSystem,
		Prompt: filterPrompt(batch, p.background),
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("filter completion failed, keeping all leads")
		return batch
	}
	indices, err := llm.DecodeJSONArray[int](text)
	if err != nil {
		p.logger.Warn().Err(err).Msg("filter response not parsable, keeping all leads")
		return batch
	}
	keep := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(batch) {
			keep[idx] = true
		}
	}
	kept := make([]candidate, 0, len(keep))
	for i, c := range batch {
		if keep[i] {
			kept = append(kept, c)
		}
	}
	report.FilteredOut = len(batch) - len(kept)
	return kept
}

// commit adds every surviving lead as a pending job, then clears the
// recovery log. The link re-check and the insert happen under one lock;
// rows that became duplicates in the meantime are skipped, not failed. A
// storage error aborts with the log intact so the next run recovers.
func (p *Pipeline) commit(ctx context.Context, batch []candidate, report *RunReport) error {
	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	for _, c := range batch {
		exists, err := p.jobs.HasLink(ctx, c.lead.Link)
		if err != nil {
			return fmt.Errorf("commit dedup check %s: %w", c.lead.Link, err)
		}
		if exists {
			report.SkippedExisting++
			continue
		}
		job, err := p.jobs.Add(ctx, c.draft())
		if errors.Is(err, store.ErrDuplicateLink) {
			report.SkippedExisting++
			continue
		}
		if err != nil {
			return fmt.Errorf("commit %s: %w", c.lead.Link, err)
		}
		report.Committed++
		p.logger.Debug().
			Str("job_id", job.ID).
			Str("company", job.Company).
			Str("title", job.Title).
			Msg("job committed")
	}

	if err := p.wal.Clear(); err != nil {
		// Not fatal: every entry in the stale log dedups against the
		// store on the next run.
		p.logger.Warn().Err(err).Msg("recovery log not cleared")
	}
	return nil
}

func (p *Pipeline) logRun(r *RunReport) {
	p.logger.Info().
		Str("user", r.User).
		Int("recovered", r.Recovered).
		Int("queries_searched", r.QueriesSearched).
		Int("queries_skipped_recent", r.QueriesSkippedRecent).
		Int("search_errors", r.SearchErrors).
		Int("new_leads", r.Leads).
		Int("dropped_no_link", r.DroppedNoLink).
		Int("dropped_duplicate", r.DroppedDuplicate).
		Int("dropped_existing", r.DroppedExisting).
		Int("enriched", r.Enriched).
		Int("enrich_failed", r.EnrichFailed).
		Int("filtered_out", r.FilteredOut).
		Int("committed", r.Committed).
		Int("skipped_existing", r.SkippedExisting).
		Dur("took", r.Duration()).
		Msg("run finished")
}

// Short fragments fool the trigram detector; below this many runes the
// language stays unknown.
const minDetectRunes = 24

// detectLanguage returns the BCP-47 tag of text, or empty when detection
// is unreliable.
func detectLanguage(text string) string {
	if utf8.RuneCountInString(text) < minDetectRunes {
		return ""
	}
	info := whatlanggo.Detect(text)
	iso := info.Lang.Iso6391()
	if iso == "" || !info.IsReliable() {
		return ""
	}
	tag := language.All.Make(iso)
	if tag == language.Und {
		return ""
	}
	return tag.String()
}
