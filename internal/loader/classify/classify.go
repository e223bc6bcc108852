package classify

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/bigquery"
)

// Reason codes the store attaches to job errors. These are the contractual
// interface; message text matching below is a compatibility shim for
// responses that carry no usable code.
const (
	reasonRateLimit     = "rateLimitExceeded"
	reasonQuotaExceeded = "quotaExceeded"
	reasonInvalid       = "invalid"
)

var rateLimitPhrases = []string{
	"ratelimitexceeded",
	"too many table update operations",
}

var dataErrorPhrases = []string{
	"out of range",
	"invalid timestamp",
	"could not parse",
	"incompatible types",
	"too many errors encountered",
}

// Classify maps a raw submission error into a SubmissionResult. A nil error
// is success. RateLimited and Other are candidates for automatic retry;
// DataError will not succeed on blind retry and is surfaced distinctly.
func Classify(item domain.WorkItem, err error) domain.SubmissionResult {
	if err == nil {
		return domain.SubmissionResult{Item: item}
	}

	return domain.SubmissionResult{
		Item:    item,
		Cause:   causeOf(err),
		Message: err.Error(),
	}
}

func causeOf(err error) domain.FailureCause {
	// Structured checks first: job-level reason code, then transport status.
	var jobErr *bigquery.JobError
	if errors.As(err, &jobErr) {
		switch jobErr.Reason {
		case reasonRateLimit:
			return domain.CauseRateLimited
		case reasonQuotaExceeded:
			if containsAny(jobErr.Message, rateLimitPhrases) {
				return domain.CauseRateLimited
			}
			return domain.CauseOther
		case reasonInvalid:
			// "invalid" on a load job is a content problem
			return domain.CauseDataError
		}
		return textFallback(jobErr.Message)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return domain.CauseRateLimited
		case http.StatusForbidden:
			if containsAny(apiErr.Message, rateLimitPhrases) || hasReason(apiErr, reasonRateLimit) {
				return domain.CauseRateLimited
			}
			return domain.CauseOther
		case http.StatusBadRequest:
			if containsAny(apiErr.Message, dataErrorPhrases) {
				return domain.CauseDataError
			}
			return domain.CauseOther
		}
		return textFallback(apiErr.Message)
	}

	return textFallback(err.Error())
}

func textFallback(msg string) domain.FailureCause {
	switch {
	case containsAny(msg, rateLimitPhrases):
		return domain.CauseRateLimited
	case containsAny(msg, dataErrorPhrases):
		return domain.CauseDataError
	default:
		return domain.CauseOther
	}
}

func containsAny(msg string, phrases []string) bool {
	lower := strings.ToLower(msg)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func hasReason(apiErr *googleapi.Error, reason string) bool {
	for _, item := range apiErr.Errors {
		if item.Reason == reason {
			return true
		}
	}
	return false
}
