package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/classify"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/metrics"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/plan"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/submit"
)

// Lister enumerates candidate objects in the blob store.
type Lister interface {
	List(ctx context.Context, bucket, prefix, suffix string) ([]domain.WorkItem, error)
}

// Config holds the limits for one pass.
type Config struct {
	Bucket          string
	Prefix          string
	Suffix          string
	BatchSize       int
	MaxJobsPerRun   int
	MaxListAttempts int
}

// Report summarizes one pass. The ledger snapshot remains the authoritative
// record of outstanding work; the report is operator feedback.
type Report struct {
	Listed    int
	Submitted int
	Succeeded int
	Deferred  int
	Failed    map[domain.FailureCause]int
}

// Runner drives one full pass: inventory, planning, throttled submission,
// classification, and ledger bookkeeping. Single-threaded and blocking.
type Runner struct {
	lister    Lister
	submitter *submit.Submitter
	ledger    storage.LedgerRepository
	cfg       Config
	log       *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(
	lister Lister,
	submitter *submit.Submitter,
	ledger storage.LedgerRepository,
	cfg Config,
	log *slog.Logger,
) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		lister:    lister,
		submitter: submitter,
		ledger:    ledger,
		cfg:       cfg,
		log:       log,
	}
}

// Run executes one pass. Submission failures never abort the pass; they are
// classified and recorded. Only a failed listing is fatal, and it aborts
// before any submission.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	items, err := r.list(ctx)
	if err != nil {
		return nil, err
	}

	p := plan.Batches(items, r.cfg.BatchSize, r.cfg.MaxJobsPerRun)
	r.log.Info("Planned run",
		"listed", len(items),
		"batches", len(p.Batches),
		"planned", p.Planned(),
		"deferred", p.Deferred,
	)
	metrics.ItemsDeferred.Add(float64(p.Deferred))

	report := &Report{
		Listed:   len(items),
		Deferred: p.Deferred,
		Failed:   make(map[domain.FailureCause]int),
	}

	for i, batch := range p.Batches {
		if err := r.processBatch(ctx, batch, report); err != nil {
			return report, err
		}
		if i < len(p.Batches)-1 {
			if err := r.submitter.Settle(ctx); err != nil {
				return report, err
			}
		}
	}

	r.finish(ctx, report)
	return report, nil
}

// Submit processes an already-planned set of batches through the same
// submit/classify/ledger pipeline. Used by the retry pass.
func (r *Runner) Submit(ctx context.Context, p plan.Plan, report *Report) error {
	for i, batch := range p.Batches {
		if err := r.processBatch(ctx, batch, report); err != nil {
			return err
		}
		if i < len(p.Batches)-1 {
			if err := r.submitter.Settle(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) list(ctx context.Context) ([]domain.WorkItem, error) {
	attempts := r.cfg.MaxListAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var items []domain.WorkItem
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		listed, err := r.lister.List(ctx, r.cfg.Bucket, r.cfg.Prefix, r.cfg.Suffix)
		if err != nil {
			r.log.Warn("Listing failed", "error", err)
			return retry.RetryableError(err)
		}
		items = listed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inventory listing failed: %w", err)
	}
	return items, nil
}

func (r *Runner) processBatch(ctx context.Context, batch domain.Batch, report *Report) error {
	for _, item := range batch.Items {
		err := r.submitter.Submit(ctx, item)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			// Interrupted mid-flight; the ledger already holds everything
			// recorded so far.
			return err
		}

		report.Submitted++
		metrics.JobsSubmitted.Inc()

		result := classify.Classify(item, err)
		if err := r.recordOutcome(ctx, result, report); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) recordOutcome(ctx context.Context, result domain.SubmissionResult, report *Report) error {
	if result.Success() {
		report.Succeeded++
		metrics.JobsSucceeded.Inc()
		// Clears a stale entry if this object failed in an earlier pass
		if err := r.ledger.Clear(ctx, result.Item.URI()); err != nil {
			return fmt.Errorf("failed to clear ledger entry: %w", err)
		}
		r.log.Debug("Loaded", "uri", result.Item.URI())
		return nil
	}

	report.Failed[result.Cause]++
	metrics.JobsFailed.WithLabelValues(string(result.Cause)).Inc()

	entry := &domain.LedgerEntry{
		URI:     result.Item.URI(),
		Cause:   result.Cause,
		Message: result.Message,
	}
	if prev, err := r.ledger.Get(ctx, entry.URI); err == nil {
		entry.ID = prev.ID
		entry.RetryCount = prev.RetryCount + 1
	} else if !errors.Is(err, storage.ErrEntryNotFound) {
		return fmt.Errorf("failed to read ledger entry: %w", err)
	}

	if err := r.ledger.Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	r.log.Warn("Load failed",
		"uri", result.Item.URI(),
		"cause", result.Cause,
		"error", result.Message,
	)
	return nil
}

func (r *Runner) finish(ctx context.Context, report *Report) {
	if count, err := r.ledger.Count(ctx); err == nil {
		metrics.LedgerEntries.Set(float64(count))
	}
	metrics.LastRunTimestamp.SetToCurrentTime()

	r.log.Info("Run complete",
		"submitted", report.Submitted,
		"succeeded", report.Succeeded,
		"rate_limited", report.Failed[domain.CauseRateLimited],
		"data_errors", report.Failed[domain.CauseDataError],
		"other", report.Failed[domain.CauseOther],
		"deferred", report.Deferred,
	)
}
