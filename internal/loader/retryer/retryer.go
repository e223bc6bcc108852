package retryer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/plan"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/run"
)

// Config holds the limits for one retry pass. BatchSize is typically larger
// than the main run's: the retry population is small and already throttled.
type Config struct {
	BatchSize     int
	MaxJobsPerRun int
}

// Report summarizes one retry pass.
type Report struct {
	Retryable  int // retryable entries found in the ledger
	DataErrors int // entries left untouched, need manual repair
	Run        *run.Report
}

// Driver re-submits ledgered failures through the same submit/classify
// pipeline. Invoking it repeatedly converges the ledger until only data
// errors remain, the documented terminal state requiring manual repair.
type Driver struct {
	ledger storage.LedgerRepository
	runner *run.Runner
	cfg    Config
	log    *slog.Logger
}

// NewDriver creates a retry driver sharing the main pass's pipeline.
func NewDriver(ledger storage.LedgerRepository, runner *run.Runner, cfg Config, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{
		ledger: ledger,
		runner: runner,
		cfg:    cfg,
		log:    log,
	}
}

// Run executes one retry pass. A pass over a ledger with no retryable
// entries submits nothing and leaves the ledger unchanged.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	snapshot, err := d.ledger.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	retryable, dataErrors := domain.PartitionByCause(snapshot)
	report := &Report{
		Retryable:  len(retryable),
		DataErrors: len(dataErrors),
		Run: &run.Report{
			Failed: make(map[domain.FailureCause]int),
		},
	}

	d.log.Info("Retry pass",
		"retryable", len(retryable),
		"data_errors", len(dataErrors),
	)

	if len(retryable) == 0 {
		if len(dataErrors) > 0 {
			d.log.Warn("Only data errors remain; manual repair required",
				"count", len(dataErrors))
		}
		return report, nil
	}

	items := make([]domain.WorkItem, 0, len(retryable))
	for _, entry := range retryable {
		item, err := itemFromURI(entry.URI)
		if err != nil {
			d.log.Warn("Skipping malformed ledger URI", "uri", entry.URI, "error", err)
			continue
		}
		items = append(items, item)
	}

	p := plan.Batches(items, d.cfg.BatchSize, d.cfg.MaxJobsPerRun)
	report.Run.Deferred = p.Deferred

	if err := d.runner.Submit(ctx, p, report.Run); err != nil {
		return report, err
	}

	d.log.Info("Retry pass complete",
		"submitted", report.Run.Submitted,
		"cleared", report.Run.Succeeded,
		"still_failing", report.Run.Submitted-report.Run.Succeeded,
	)
	return report, nil
}

// itemFromURI parses an object reference of the form gs://bucket/key.
func itemFromURI(uri string) (domain.WorkItem, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return domain.WorkItem{}, fmt.Errorf("unexpected URI scheme: %s", uri)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return domain.WorkItem{}, fmt.Errorf("malformed object URI: %s", uri)
	}
	return domain.WorkItem{Bucket: bucket, Key: key}, nil
}
