package plan

import "github.com/researchgate/crossref-snapshot-mount/internal/core/domain"

// Plan is the result of one planning pass. Every planned item appears in
// exactly one batch; items beyond the per-run job cap are deferred to a
// later run, not dropped.
type Plan struct {
	Batches  []domain.Batch
	Deferred int
}

// Planned returns the number of items covered by the batches.
func (p Plan) Planned() int {
	n := 0
	for _, b := range p.Batches {
		n += b.Size()
	}
	return n
}

// Batches partitions items into batches of at most maxBatchSize, filled in
// input order, submitting no more than maxJobsPerRun items in total.
// Pure computation, no I/O.
func Batches(items []domain.WorkItem, maxBatchSize, maxJobsPerRun int) Plan {
	if maxBatchSize <= 0 {
		maxBatchSize = 1
	}

	var p Plan
	if maxJobsPerRun > 0 && len(items) > maxJobsPerRun {
		p.Deferred = len(items) - maxJobsPerRun
		items = items[:maxJobsPerRun]
	}

	for start := 0; start < len(items); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(items) {
			end = len(items)
		}
		p.Batches = append(p.Batches, domain.Batch{Items: items[start:end]})
	}

	return p
}
