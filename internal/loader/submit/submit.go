package submit

import (
	"context"
	"time"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
)

// LoadClient submits one ingestion job for a source object and blocks until
// the job finishes.
type LoadClient interface {
	SubmitLoad(ctx context.Context, sourceURI string) error
}

// Submitter throttles job submissions. The fixed delay before each job is
// the sole concurrency-control mechanism: the table update quota is global,
// so parallel submission would only trade throughput for rate-limit errors.
type Submitter struct {
	client      LoadClient
	submitDelay time.Duration
	settleDelay time.Duration
}

// New creates a Submitter. submitDelay runs before every job; settleDelay
// runs once per batch via Settle.
func New(client LoadClient, submitDelay, settleDelay time.Duration) *Submitter {
	return &Submitter{
		client:      client,
		submitDelay: submitDelay,
		settleDelay: settleDelay,
	}
}

// Submit sleeps the configured delay and submits one load job. The raw job
// error is returned uninterpreted for the classifier.
func (s *Submitter) Submit(ctx context.Context, item domain.WorkItem) error {
	if err := sleep(ctx, s.submitDelay); err != nil {
		return err
	}
	return s.client.SubmitLoad(ctx, item.URI())
}

// Settle blocks for the inter-batch settle delay.
func (s *Submitter) Settle(ctx context.Context) error {
	return sleep(ctx, s.settleDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
