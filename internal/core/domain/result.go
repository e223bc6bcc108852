package domain

// FailureCause classifies a non-success submission outcome.
type FailureCause string

const (
	// CauseRateLimited means the store rejected the job for exceeding its
	// table update quota. Retryable.
	CauseRateLimited FailureCause = "rate_limited"

	// CauseDataError means the record content violates the target schema or
	// value ranges. Blind retry will not succeed; the file needs repair.
	CauseDataError FailureCause = "data_error"

	// CauseOther covers everything else (network, auth, unknown remote
	// errors). Treated as potentially transient.
	CauseOther FailureCause = "other"
)

// Retryable reports whether the cause is a candidate for automatic retry.
func (c FailureCause) Retryable() bool {
	return c == CauseRateLimited || c == CauseOther
}

// SubmissionResult is the classified outcome of one load job submission.
// A zero Cause means the job was accepted without error.
type SubmissionResult struct {
	Item    WorkItem
	Cause   FailureCause
	Message string
}

func (r SubmissionResult) Success() bool {
	return r.Cause == ""
}
