package retryer

import (
	"context"
	"testing"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/bigquery"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage/memory"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/run"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/submit"
)

// =============================================================================
// Fakes
// =============================================================================

// countdownClient fails each URI a scripted number of times, then succeeds.
type countdownClient struct {
	failuresLeft map[string]int
	err          error
	submitted    []string
}

func (c *countdownClient) SubmitLoad(ctx context.Context, uri string) error {
	c.submitted = append(c.submitted, uri)
	if c.failuresLeft[uri] > 0 {
		c.failuresLeft[uri]--
		return c.err
	}
	return nil
}

type noopLister struct{}

func (noopLister) List(ctx context.Context, bucket, prefix, suffix string) ([]domain.WorkItem, error) {
	return nil, nil
}

func newDriver(client submit.LoadClient, ledger *memory.LedgerRepo, cfg Config) *Driver {
	runner := run.NewRunner(noopLister{}, submit.New(client, 0, 0), ledger, run.Config{}, nil)
	return NewDriver(ledger, runner, cfg, nil)
}

func record(t *testing.T, ledger *memory.LedgerRepo, uri string, cause domain.FailureCause) {
	t.Helper()
	err := ledger.Record(context.Background(), &domain.LedgerEntry{
		URI:     uri,
		Cause:   cause,
		Message: "recorded by test",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
}

// =============================================================================
// Driver Tests
// =============================================================================

func TestRun_RetrySucceedsAndClears(t *testing.T) {
	// One rate-limited entry; the retry succeeds; the ledger becomes empty.
	ledger := memory.NewLedgerRepo()
	record(t, ledger, "gs://crossref/processed_for_bq/a.jsonl.gz", domain.CauseRateLimited)

	client := &countdownClient{failuresLeft: map[string]int{}}
	d := newDriver(client, ledger, Config{BatchSize: 50, MaxJobsPerRun: 1500})

	report, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Retryable != 1 || report.Run.Submitted != 1 || report.Run.Succeeded != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	count, _ := ledger.Count(context.Background())
	if count != 0 {
		t.Errorf("expected empty ledger, got %d entries", count)
	}
}

func TestRun_NoRetryableEntriesIsNoop(t *testing.T) {
	// Only data errors in the ledger: nothing submitted, ledger unchanged.
	ledger := memory.NewLedgerRepo()
	record(t, ledger, "gs://crossref/processed_for_bq/bad.jsonl.gz", domain.CauseDataError)

	client := &countdownClient{failuresLeft: map[string]int{}}
	d := newDriver(client, ledger, Config{BatchSize: 50, MaxJobsPerRun: 1500})

	report, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(client.submitted) != 0 {
		t.Errorf("expected no submissions, got %v", client.submitted)
	}
	if report.DataErrors != 1 {
		t.Errorf("expected 1 data error reported, got %d", report.DataErrors)
	}

	snapshot, _ := ledger.Snapshot(context.Background())
	if len(snapshot) != 1 || snapshot[0].Cause != domain.CauseDataError {
		t.Errorf("ledger changed by no-op pass: %+v", snapshot)
	}
}

func TestRun_DataErrorsUntouchedByRetry(t *testing.T) {
	ledger := memory.NewLedgerRepo()
	record(t, ledger, "gs://crossref/a.jsonl.gz", domain.CauseRateLimited)
	record(t, ledger, "gs://crossref/bad.jsonl.gz", domain.CauseDataError)

	client := &countdownClient{failuresLeft: map[string]int{}}
	d := newDriver(client, ledger, Config{BatchSize: 50, MaxJobsPerRun: 1500})

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, uri := range client.submitted {
		if uri == "gs://crossref/bad.jsonl.gz" {
			t.Error("data error entry was resubmitted")
		}
	}

	snapshot, _ := ledger.Snapshot(context.Background())
	if len(snapshot) != 1 || snapshot[0].Cause != domain.CauseDataError {
		t.Errorf("expected only the data error to remain, got %+v", snapshot)
	}
}

func TestRun_RepeatedFailureRewritesEntry(t *testing.T) {
	ledger := memory.NewLedgerRepo()
	record(t, ledger, "gs://crossref/a.jsonl.gz", domain.CauseOther)

	client := &countdownClient{
		failuresLeft: map[string]int{"gs://crossref/a.jsonl.gz": 5},
		err:          &bigquery.JobError{Reason: "rateLimitExceeded", Message: "still throttled"},
	}
	d := newDriver(client, ledger, Config{BatchSize: 50, MaxJobsPerRun: 1500})

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snapshot, _ := ledger.Snapshot(context.Background())
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(snapshot))
	}
	entry := snapshot[0]
	if entry.Cause != domain.CauseRateLimited {
		t.Errorf("entry cause not rewritten: %s", entry.Cause)
	}
	if entry.Message != "load job failed: rateLimitExceeded: still throttled" {
		t.Errorf("entry message not rewritten: %q", entry.Message)
	}
	if entry.RetryCount != 1 {
		t.Errorf("expected retry count 1, got %d", entry.RetryCount)
	}
}

func TestRun_ConvergesToEmpty(t *testing.T) {
	// Transient failures that eventually succeed: repeated invocations
	// converge the ledger to empty.
	ledger := memory.NewLedgerRepo()
	record(t, ledger, "gs://crossref/a.jsonl.gz", domain.CauseRateLimited)
	record(t, ledger, "gs://crossref/b.jsonl.gz", domain.CauseOther)
	record(t, ledger, "gs://crossref/c.jsonl.gz", domain.CauseRateLimited)

	client := &countdownClient{
		failuresLeft: map[string]int{
			"gs://crossref/a.jsonl.gz": 2,
			"gs://crossref/b.jsonl.gz": 1,
			"gs://crossref/c.jsonl.gz": 3,
		},
		err: &bigquery.JobError{Reason: "rateLimitExceeded", Message: "quota"},
	}
	d := newDriver(client, ledger, Config{BatchSize: 50, MaxJobsPerRun: 1500})

	for pass := 0; pass < 10; pass++ {
		if _, err := d.Run(context.Background()); err != nil {
			t.Fatalf("pass %d failed: %v", pass, err)
		}
		count, _ := ledger.Count(context.Background())
		if count == 0 {
			return
		}
	}

	count, _ := ledger.Count(context.Background())
	t.Fatalf("ledger did not converge to empty, %d entries left", count)
}
