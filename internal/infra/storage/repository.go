package storage

import (
	"context"
	"errors"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
)

var (
	// ErrEntryNotFound is returned when a ledger entry doesn't exist
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// LedgerRepository is the durable record of outstanding failed uploads.
// It must survive process termination: the retry pass may run as a separate
// invocation and reads whatever the previous run recorded.
type LedgerRepository interface {
	// Record inserts or replaces the entry for the entry's URI
	Record(ctx context.Context, entry *domain.LedgerEntry) error

	// Clear removes the entry for a URI (successfully retried).
	// Clearing an absent URI is a no-op.
	Clear(ctx context.Context, uri string) error

	// Snapshot returns all outstanding failures
	Snapshot(ctx context.Context) ([]*domain.LedgerEntry, error)

	// Get retrieves the entry for a URI, or ErrEntryNotFound
	Get(ctx context.Context, uri string) (*domain.LedgerEntry, error)

	// Count returns the number of outstanding failures
	Count(ctx context.Context) (int, error)
}
