package ui

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

func NormalizeFormat(value string) Format {
	if strings.EqualFold(strings.TrimSpace(value), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatTable
}

// RenderJobs writes the job list as a table or indented JSON.
func (u *UI) RenderJobs(jobs []*model.Job, format Format) error {
	if format == FormatJSON {
		return u.renderJSON(jobs)
	}
	if len(jobs) == 0 {
		u.Infof("No jobs yet. Run the pipeline or add one manually.")
		return nil
	}
	tw := tabwriter.NewWriter(u.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCOMPANY\tTITLE\tLOCATION\tFOUND\tLINK")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(j.ID),
			u.StatusText(j.Status),
			j.Company,
			j.Title,
			orDash(j.Location),
			j.DateFound.Format("2006-01-02"),
			u.LinkText(orDash(j.Link)),
		)
	}
	return tw.Flush()
}

// RenderJobDetail writes every persisted field of one job.
func (u *UI) RenderJobDetail(j *model.Job, format Format) error {
	if format == FormatJSON {
		return u.renderJSON(j)
	}
	u.Printf("%s at %s\n", j.Title, j.Company)
	u.Printf("  ID:        %s\n", j.ID)
	u.Printf("  Status:    %s\n", u.StatusText(j.Status))
	u.Printf("  Location:  %s\n", orDash(j.Location))
	u.Printf("  Link:      %s\n", u.LinkText(orDash(j.Link)))
	u.Printf("  Found:     %s\n", j.DateFound.Format(time.RFC3339))
	if j.Language != "" {
		u.Printf("  Language:  %s\n", j.Language)
	}
	if j.Addressee != "" {
		u.Printf("  Addressee: %s\n", j.Addressee)
	}
	if len(j.QueryIDs) > 0 {
		u.Printf("  Queries:   %s\n", joinInts(j.QueryIDs))
	}
	if j.Description != "" {
		u.Printf("\n%s\n", j.Description)
	}
	if j.FullDescription != "" {
		u.Printf("\n%s\n", j.FullDescription)
	}
	if len(j.CoverLetterTopics) > 0 {
		u.Printf("\nCover letter topics:\n")
		for _, topic := range j.CoverLetterTopics {
			u.Printf("  - %s: %s\n", topic.Requirement, topic.Experience)
		}
	}
	if len(j.Questions) > 0 {
		u.Printf("\nQuestions:\n")
		for _, q := range j.Questions {
			u.Printf("  Q: %s\n  A: %s\n", q.Question, q.Answer)
		}
	}
	return nil
}

// RenderQueries writes the stored queries with their lifetime lead counts.
func (u *UI) RenderQueries(queries []*model.SearchQuery, format Format) error {
	if format == FormatJSON {
		return u.renderJSON(queries)
	}
	if len(queries) == 0 {
		u.Infof("No search queries stored. Add one with 'queries add'.")
		return nil
	}
	tw := tabwriter.NewWriter(u.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUERY\tCREATED\tRUNS\tLEADS")
	for _, q := range queries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n",
			q.ID,
			q.Text,
			q.CreatedAt.Format("2006-01-02"),
			len(q.ResultLog),
			q.ResultsTotal(),
		)
	}
	return tw.Flush()
}

// RenderQueryStats writes one query's run history.
func (u *UI) RenderQueryStats(q *model.SearchQuery, format Format) error {
	if format == FormatJSON {
		return u.renderJSON(q)
	}
	u.Printf("#%d %q\n", q.ID, q.Text)
	u.Printf("  Created: %s\n", q.CreatedAt.Format(time.RFC3339))
	u.Printf("  Runs:    %d\n", len(q.ResultLog))
	u.Printf("  Leads:   %d\n", q.ResultsTotal())
	if len(q.ResultLog) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(u.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  AT\tLEADS")
	for _, r := range q.ResultLog {
		fmt.Fprintf(tw, "  %s\t%d\n", r.At.Format(time.RFC3339), r.LeadCount)
	}
	return tw.Flush()
}

// RenderStatusCounts writes the per-status job tally.
func (u *UI) RenderStatusCounts(counts model.StatusCounts, format Format) error {
	if format == FormatJSON {
		return u.renderJSON(counts)
	}
	tw := tabwriter.NewWriter(u.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%d\n", u.StatusText(model.StatusPending), counts.Pending)
	fmt.Fprintf(tw, "%s\t%d\n", u.StatusText(model.StatusInProgress), counts.InProgress)
	fmt.Fprintf(tw, "%s\t%d\n", u.StatusText(model.StatusApplied), counts.Applied)
	fmt.Fprintf(tw, "%s\t%d\n", u.StatusText(model.StatusDiscarded), counts.Discarded)
	fmt.Fprintf(tw, "total\t%d\n", counts.Total())
	return tw.Flush()
}

func (u *UI) renderJSON(v any) error {
	enc := json.NewEncoder(u.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// shortID keeps listings readable; jobs subcommands resolve unique
// prefixes back to the full id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
