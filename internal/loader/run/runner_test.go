package run

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/bigquery"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage/memory"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/submit"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeLister struct {
	items []domain.WorkItem
	err   error
	calls int
}

func (l *fakeLister) List(ctx context.Context, bucket, prefix, suffix string) ([]domain.WorkItem, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.items, nil
}

// scriptedClient returns a per-URI scripted error, or nil for success.
type scriptedClient struct {
	outcomes  map[string]error
	submitted []string
}

func (c *scriptedClient) SubmitLoad(ctx context.Context, uri string) error {
	c.submitted = append(c.submitted, uri)
	return c.outcomes[uri]
}

func items(n int) []domain.WorkItem {
	out := make([]domain.WorkItem, n)
	for i := range out {
		out[i] = domain.WorkItem{Bucket: "crossref", Key: fmt.Sprintf("processed_for_bq/part-%04d.jsonl.gz", i)}
	}
	return out
}

func newRunner(lister Lister, client submit.LoadClient, ledger *memory.LedgerRepo, cfg Config) *Runner {
	return NewRunner(lister, submit.New(client, 0, 0), ledger, cfg, nil)
}

// =============================================================================
// Runner Tests
// =============================================================================

func TestRun_MixedOutcomes(t *testing.T) {
	// Three items: success, rate limited, data error. Afterwards the ledger
	// holds exactly the two failures and the table received one load.
	work := items(3)
	client := &scriptedClient{outcomes: map[string]error{
		work[1].URI(): &bigquery.JobError{Reason: "rateLimitExceeded", Message: "too many table update operations"},
		work[2].URI(): &bigquery.JobError{Reason: "invalid", Message: "timestamp value out of range"},
	}}
	ledger := memory.NewLedgerRepo()

	r := newRunner(&fakeLister{items: work}, client, ledger, Config{
		Bucket: "crossref", Prefix: "processed_for_bq", Suffix: ".jsonl.gz",
		BatchSize: 2, MaxJobsPerRun: 100,
	})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Submitted != 3 || report.Succeeded != 1 {
		t.Errorf("expected 3 submitted / 1 succeeded, got %d/%d", report.Submitted, report.Succeeded)
	}
	if report.Failed[domain.CauseRateLimited] != 1 || report.Failed[domain.CauseDataError] != 1 {
		t.Errorf("unexpected failure counts: %v", report.Failed)
	}

	snapshot, err := ledger.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(snapshot))
	}
	causes := map[domain.FailureCause]bool{}
	for _, e := range snapshot {
		causes[e.Cause] = true
		if e.Message == "" {
			t.Error("ledger entry missing raw diagnostic message")
		}
	}
	if !causes[domain.CauseRateLimited] || !causes[domain.CauseDataError] {
		t.Errorf("ledger causes wrong: %v", causes)
	}
}

func TestRun_JobCapDefers(t *testing.T) {
	work := items(10)
	client := &scriptedClient{outcomes: map[string]error{}}
	ledger := memory.NewLedgerRepo()

	r := newRunner(&fakeLister{items: work}, client, ledger, Config{
		BatchSize: 3, MaxJobsPerRun: 7,
	})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(client.submitted) != 7 {
		t.Errorf("expected 7 submissions under the cap, got %d", len(client.submitted))
	}
	if report.Deferred != 3 {
		t.Errorf("expected 3 deferred, got %d", report.Deferred)
	}
}

func TestRun_ListFailureAbortsBeforeSubmission(t *testing.T) {
	client := &scriptedClient{outcomes: map[string]error{}}
	lister := &fakeLister{err: errors.New("connection reset")}

	r := newRunner(lister, client, memory.NewLedgerRepo(), Config{MaxListAttempts: 3})

	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected run to abort on listing failure")
	}
	if len(client.submitted) != 0 {
		t.Error("submissions issued despite listing failure")
	}
	if lister.calls != 3 {
		t.Errorf("expected 3 listing attempts, got %d", lister.calls)
	}
}

func TestRun_SuccessClearsStaleEntry(t *testing.T) {
	work := items(1)
	ledger := memory.NewLedgerRepo()
	_ = ledger.Record(context.Background(), &domain.LedgerEntry{
		URI:   work[0].URI(),
		Cause: domain.CauseOther,
	})

	client := &scriptedClient{outcomes: map[string]error{}}
	r := newRunner(&fakeLister{items: work}, client, ledger, Config{BatchSize: 1, MaxJobsPerRun: 10})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	count, _ := ledger.Count(context.Background())
	if count != 0 {
		t.Errorf("stale entry not cleared, ledger count %d", count)
	}
}

func TestRun_RepeatFailureKeepsOneEntry(t *testing.T) {
	// Same object failing in two consecutive runs stays one ledger row
	work := items(1)
	client := &scriptedClient{outcomes: map[string]error{
		work[0].URI(): &bigquery.JobError{Reason: "rateLimitExceeded", Message: "quota"},
	}}
	ledger := memory.NewLedgerRepo()
	r := newRunner(&fakeLister{items: work}, client, ledger, Config{BatchSize: 1, MaxJobsPerRun: 10})

	for i := 0; i < 2; i++ {
		if _, err := r.Run(context.Background()); err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
	}

	snapshot, _ := ledger.Snapshot(context.Background())
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 ledger entry after repeat failure, got %d", len(snapshot))
	}
	if snapshot[0].RetryCount != 1 {
		t.Errorf("expected retry count 1, got %d", snapshot[0].RetryCount)
	}
}
