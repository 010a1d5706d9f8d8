package model

import "time"

// ResultEntry is one append-only record of a pipeline run for a query.
type ResultEntry struct {
	At        time.Time `json:"at"`
	LeadCount int       `json:"lead_count"`
}

// SearchQuery is a stored search phrase. IDs are assigned monotonically and
// never reused, including IDs of removed queries. Removal is a soft delete:
// the row stays so that jobs keep valid provenance references.
type SearchQuery struct {
	ID        int           `json:"id"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"created_at"`
	Removed   bool          `json:"removed"`
	ResultLog []ResultEntry `json:"result_log,omitempty"`
}

// ResultsTotal sums the lead counts of every recorded run.
func (q *SearchQuery) ResultsTotal() int {
	total := 0
	for _, r := range q.ResultLog {
		total += r.LeadCount
	}
	return total
}

// Clone returns a deep copy, detaching the result log.
func (q *SearchQuery) Clone() *SearchQuery {
	if q == nil {
		return nil
	}
	c := *q
	c.ResultLog = append([]ResultEntry(nil), q.ResultLog...)
	return &c
}
