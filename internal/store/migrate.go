package store

import (
	"context"
	"fmt"

	"github.com/jobscout/jobscout/internal/model"
)

// Porter is the raw import/export surface used by Migrate. Every shipped
// backend implements it alongside Store. Dumps are lossless: removed
// queries, result logs and dangling PDF paths all come through untouched,
// and imports preserve ids, statuses and timestamps exactly.
type Porter interface {
	DumpJobs(ctx context.Context) ([]*model.Job, error)
	DumpQueries(ctx context.Context) ([]*model.SearchQuery, error)
	ImportJob(ctx context.Context, job *model.Job) error
	ImportQuery(ctx context.Context, query *model.SearchQuery) error
}

// MigrateReport counts what a migration moved and what it left alone.
type MigrateReport struct {
	Queries        int
	QueriesSkipped int
	Jobs           int
	JobsSkipped    int
}

// Migrate copies every query and job from src into dst field by field.
// Rows whose id (or, for jobs, link) already exists in dst are skipped, so
// re-running a half-finished migration converges instead of duplicating.
// Queries move first so job provenance never references an id the target
// has not seen.
func Migrate(ctx context.Context, src, dst Porter) (*MigrateReport, error) {
	report := &MigrateReport{}

	dstQueries, err := dst.DumpQueries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read target queries: %w", err)
	}
	haveQuery := make(map[int]bool, len(dstQueries))
	for _, q := range dstQueries {
		haveQuery[q.ID] = true
	}

	srcQueries, err := src.DumpQueries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read source queries: %w", err)
	}
	for _, q := range srcQueries {
		if haveQuery[q.ID] {
			report.QueriesSkipped++
			continue
		}
		if err := dst.ImportQuery(ctx, q.Clone()); err != nil {
			return report, fmt.Errorf("import query %d: %w", q.ID, err)
		}
		report.Queries++
	}

	dstJobs, err := dst.DumpJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read target jobs: %w", err)
	}
	haveJob := make(map[string]bool, len(dstJobs))
	haveLink := make(map[string]bool, len(dstJobs))
	for _, j := range dstJobs {
		haveJob[j.ID] = true
		if j.Link != "" {
			haveLink[j.Link] = true
		}
	}

	srcJobs, err := src.DumpJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read source jobs: %w", err)
	}
	for _, j := range srcJobs {
		if haveJob[j.ID] || (j.Link != "" && haveLink[j.Link]) {
			report.JobsSkipped++
			continue
		}
		if err := dst.ImportJob(ctx, j.Clone()); err != nil {
			return report, fmt.Errorf("import job %s: %w", j.ID, err)
		}
		report.Jobs++
		if j.Link != "" {
			haveLink[j.Link] = true
		}
	}

	return report, nil
}
