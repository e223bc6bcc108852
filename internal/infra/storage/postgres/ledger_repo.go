package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage"
)

// LedgerRepo implements storage.LedgerRepository using PostgreSQL.
type LedgerRepo struct {
	db *DB
}

// NewLedgerRepo creates a new PostgreSQL ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

type ledgerRow struct {
	ID          string    `db:"id"`
	URI         string    `db:"uri"`
	Cause       string    `db:"cause"`
	ErrorMsg    string    `db:"error_msg"`
	RetryCount  int       `db:"retry_count"`
	LastAttempt time.Time `db:"last_attempt"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r ledgerRow) toDomain() *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:          r.ID,
		URI:         r.URI,
		Cause:       domain.FailureCause(r.Cause),
		Message:     r.ErrorMsg,
		RetryCount:  r.RetryCount,
		LastAttempt: r.LastAttempt,
		CreatedAt:   r.CreatedAt,
	}
}

// Record inserts or replaces the entry for the entry's URI.
// The unique index on uri keeps at most one row per object.
func (r *LedgerRepo) Record(ctx context.Context, entry *domain.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO load_failures (id, uri, cause, error_msg, retry_count, last_attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (uri) DO UPDATE SET
			cause = EXCLUDED.cause,
			error_msg = EXCLUDED.error_msg,
			retry_count = EXCLUDED.retry_count,
			last_attempt = NOW()
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.URI,
		string(entry.Cause),
		entry.Message,
		entry.RetryCount,
	)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return nil
}

// Clear removes the entry for a URI.
func (r *LedgerRepo) Clear(ctx context.Context, uri string) error {
	query := `DELETE FROM load_failures WHERE uri = $1`
	if _, err := r.db.ExecContext(ctx, query, uri); err != nil {
		return fmt.Errorf("failed to clear ledger entry: %w", err)
	}
	return nil
}

// Get retrieves the entry for a URI.
func (r *LedgerRepo) Get(ctx context.Context, uri string) (*domain.LedgerEntry, error) {
	query := `
		SELECT id, uri, cause, error_msg, retry_count, last_attempt, created_at
		FROM load_failures
		WHERE uri = $1
	`

	var row ledgerRow
	err := r.db.GetContext(ctx, &row, query, uri)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return row.toDomain(), nil
}

// Snapshot returns all outstanding failures ordered by creation time.
func (r *LedgerRepo) Snapshot(ctx context.Context) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT id, uri, cause, error_msg, retry_count, last_attempt, created_at
		FROM load_failures
		ORDER BY created_at ASC
	`

	var rows []ledgerRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to snapshot ledger: %w", err)
	}

	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toDomain())
	}
	return entries, nil
}

// Count returns the number of outstanding failures.
func (r *LedgerRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM load_failures`); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}
