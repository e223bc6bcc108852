package domain

import "time"

// LedgerEntry records one outstanding failed upload. The ledger holds at most
// one entry per object URI at any time; a later successful retry removes it.
type LedgerEntry struct {
	ID          string       `json:"id"`
	URI         string       `json:"uri"`
	Cause       FailureCause `json:"cause"`
	Message     string       `json:"error_msg"`
	RetryCount  int          `json:"retry_count"`
	LastAttempt time.Time    `json:"last_attempt"`
	CreatedAt   time.Time    `json:"created_at"`
}

// PartitionByCause splits ledger entries into retryable failures and data
// errors requiring manual repair.
func PartitionByCause(entries []*LedgerEntry) (retryable, dataErrors []*LedgerEntry) {
	for _, e := range entries {
		if e.Cause.Retryable() {
			retryable = append(retryable, e)
		} else {
			dataErrors = append(dataErrors, e)
		}
	}
	return retryable, dataErrors
}
