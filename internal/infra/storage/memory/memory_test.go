package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage"
)

func TestRecord_UpsertsByURI(t *testing.T) {
	repo := NewLedgerRepo()
	ctx := context.Background()

	uri := "gs://crossref/processed_for_bq/a.jsonl.gz"
	if err := repo.Record(ctx, &domain.LedgerEntry{URI: uri, Cause: domain.CauseRateLimited, Message: "first"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := repo.Record(ctx, &domain.LedgerEntry{URI: uri, Cause: domain.CauseOther, Message: "second", RetryCount: 1}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	count, _ := repo.Count(ctx)
	if count != 1 {
		t.Fatalf("expected 1 entry after upsert, got %d", count)
	}

	entry, err := repo.Get(ctx, uri)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Cause != domain.CauseOther || entry.Message != "second" || entry.RetryCount != 1 {
		t.Errorf("entry not replaced: %+v", entry)
	}
}

func TestClear_AbsentURIIsNoop(t *testing.T) {
	repo := NewLedgerRepo()
	if err := repo.Clear(context.Background(), "gs://crossref/missing.jsonl.gz"); err != nil {
		t.Errorf("Clear of absent URI should be a no-op, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := NewLedgerRepo()
	_, err := repo.Get(context.Background(), "gs://crossref/missing.jsonl.gz")
	if !errors.Is(err, storage.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	repo := NewLedgerRepo()
	ctx := context.Background()

	uri := "gs://crossref/a.jsonl.gz"
	_ = repo.Record(ctx, &domain.LedgerEntry{URI: uri, Cause: domain.CauseOther})

	snapshot, _ := repo.Snapshot(ctx)
	snapshot[0].Cause = domain.CauseDataError

	entry, _ := repo.Get(ctx, uri)
	if entry.Cause != domain.CauseOther {
		t.Error("snapshot mutation leaked into the store")
	}
}
