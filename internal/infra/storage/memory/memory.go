package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage"
)

// LedgerRepo is an in-memory storage.LedgerRepository. It does not survive
// process restarts and exists for tests and dry runs only.
type LedgerRepo struct {
	entries map[string]*domain.LedgerEntry // keyed by URI
	mu      sync.RWMutex
}

// NewLedgerRepo creates an empty in-memory ledger.
func NewLedgerRepo() *LedgerRepo {
	return &LedgerRepo{
		entries: make(map[string]*domain.LedgerEntry),
	}
}

func (r *LedgerRepo) Record(ctx context.Context, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *entry
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.LastAttempt = time.Now()
	if prev, ok := r.entries[stored.URI]; ok {
		stored.ID = prev.ID
		stored.CreatedAt = prev.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.entries[stored.URI] = &stored
	return nil
}

func (r *LedgerRepo) Clear(ctx context.Context, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, uri)
	return nil
}

func (r *LedgerRepo) Get(ctx context.Context, uri string) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[uri]
	if !ok {
		return nil, storage.ErrEntryNotFound
	}
	copied := *entry
	return &copied, nil
}

func (r *LedgerRepo) Snapshot(ctx context.Context) ([]*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*domain.LedgerEntry, 0, len(r.entries))
	for _, e := range r.entries {
		copied := *e
		entries = append(entries, &copied)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].URI < entries[j].URI
	})
	return entries, nil
}

func (r *LedgerRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}
