package pipeline

import "time"

// PhaseTimings records how long each phase of a run took. Enrich stays
// zero when the run did not fetch descriptions.
type PhaseTimings struct {
	Recover time.Duration `json:"recover"`
	Search  time.Duration `json:"search"`
	Dedupe  time.Duration `json:"dedupe"`
	Enrich  time.Duration `json:"enrich"`
	Filter  time.Duration `json:"filter"`
	Commit  time.Duration `json:"commit"`
}

// RunReport is the accounting of one pipeline run. Counts are per phase so
// partial success stays visible: a run with SearchErrors or EnrichFailed
// above zero still commits whatever survived.
type RunReport struct {
	User       string    `json:"user,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Recovered leads were seeded from the recovery log of an interrupted
	// run.
	Recovered int `json:"recovered"`

	QueriesSearched      int `json:"queries_searched"`
	QueriesSkippedRecent int `json:"queries_skipped_recent"`
	SearchErrors         int `json:"search_errors"`
	// Leads counts the new leads parsed out of this run's searches,
	// recovered ones not included.
	Leads int `json:"leads"`

	DroppedNoLink    int `json:"dropped_no_link"`
	DroppedDuplicate int `json:"dropped_duplicate"`
	DroppedExisting  int `json:"dropped_existing"`

	Enriched     int `json:"enriched"`
	EnrichFailed int `json:"enrich_failed"`

	FilteredOut int `json:"filtered_out"`

	Committed int `json:"committed"`
	// SkippedExisting counts rows that turned into duplicates between
	// dedupe and commit.
	SkippedExisting int `json:"skipped_existing"`

	Timings PhaseTimings `json:"timings"`
}

// Duration is the wall time of the whole run.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
