package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage"
)

// LedgerRepo implements storage.LedgerRepository using Redis. Entries are
// stored without TTL; the ledger is the source of truth for outstanding work
// and only a successful retry removes an entry.
type LedgerRepo struct {
	rdb   *redis.Client
	table string
}

// NewLedgerRepo creates a new Redis-backed ledger repository. The table name
// namespaces keys so several target tables can share one Redis.
func NewLedgerRepo(client *Client, table string) *LedgerRepo {
	return &LedgerRepo{
		rdb:   client.rdb,
		table: table,
	}
}

// Key helpers
func (r *LedgerRepo) indexKey() string {
	return fmt.Sprintf("load_failures:%s", r.table)
}

func (r *LedgerRepo) entryKey(uri string) string {
	return fmt.Sprintf("load_failure:%s:%s", r.table, uri)
}

// Record inserts or replaces the entry for the entry's URI.
func (r *LedgerRepo) Record(ctx context.Context, entry *domain.LedgerEntry) error {
	stored := *entry
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.LastAttempt = time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	if err := r.rdb.Set(ctx, r.entryKey(stored.URI), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set ledger entry: %w", err)
	}

	// Index sorted by creation time so Snapshot is stable across passes
	if err := r.rdb.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(stored.CreatedAt.Unix()),
		Member: stored.URI,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index ledger entry: %w", err)
	}

	return nil
}

// Clear removes the entry for a URI.
func (r *LedgerRepo) Clear(ctx context.Context, uri string) error {
	if err := r.rdb.ZRem(ctx, r.indexKey(), uri).Err(); err != nil {
		return fmt.Errorf("failed to remove from index: %w", err)
	}
	if err := r.rdb.Del(ctx, r.entryKey(uri)).Err(); err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}
	return nil
}

// Get retrieves the entry for a URI.
func (r *LedgerRepo) Get(ctx context.Context, uri string) (*domain.LedgerEntry, error) {
	data, err := r.rdb.Get(ctx, r.entryKey(uri)).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	var entry domain.LedgerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger entry: %w", err)
	}
	return &entry, nil
}

// Snapshot returns all outstanding failures.
func (r *LedgerRepo) Snapshot(ctx context.Context) ([]*domain.LedgerEntry, error) {
	uris, err := r.rdb.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	entries := make([]*domain.LedgerEntry, 0, len(uris))
	for _, uri := range uris {
		data, err := r.rdb.Get(ctx, r.entryKey(uri)).Bytes()
		if err == redis.Nil {
			// Entry gone but URI still indexed, drop it
			r.rdb.ZRem(ctx, r.indexKey(), uri)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get ledger entry: %w", err)
		}

		var entry domain.LedgerEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

// Count returns the number of outstanding failures.
func (r *LedgerRepo) Count(ctx context.Context) (int, error) {
	count, err := r.rdb.ZCard(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
