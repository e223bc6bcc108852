package bigquery

import "fmt"

// JobError is the terminal error of a finished load job. Reason carries the
// store's stable error code ("rateLimitExceeded", "quotaExceeded",
// "invalid"); Message is the raw diagnostic text.
type JobError struct {
	Reason   string
	Location string
	Message  string
}

func (e *JobError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("load job failed: %s (%s): %s", e.Reason, e.Location, e.Message)
	}
	return fmt.Sprintf("load job failed: %s: %s", e.Reason, e.Message)
}
