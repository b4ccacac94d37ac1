package members

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ltrc/socios-api-go/internal/domain"
	apperrors "github.com/ltrc/socios-api-go/pkg/errors"
)

// All cache tests run without Redis, which is also the mode the cache
// degrades to when Redis is unreachable at startup.
func newTestCache(store Store) *Cache {
	return NewCache(store, nil, zap.NewNop(), CacheConfig{})
}

func TestCacheServesMemoryHit(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store)

	created, err := cache.Insert(context.Background(), testInput(), nil, "")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Change the backing record behind the cache's back; the cached copy
	// keeps serving until a write through this instance touches the key.
	store.mu.Lock()
	store.records[created.ID].FirstName = "Changed"
	store.mu.Unlock()

	cached, err := cache.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if cached.FirstName != "John" {
		t.Fatalf("expected cached record, got %s", cached.FirstName)
	}

	byDoc, err := cache.FindByDocumentNumber(context.Background(), created.DocumentNumber)
	if err != nil {
		t.Fatalf("FindByDocumentNumber failed: %v", err)
	}
	if byDoc.FirstName != "John" {
		t.Fatalf("expected cached record by document number, got %s", byDoc.FirstName)
	}
}

func TestCacheMissFallsThroughAndPopulates(t *testing.T) {
	store := newMemStore()
	seeded, err := store.Insert(context.Background(), testInput(), nil, "")
	if err != nil {
		t.Fatalf("seed Insert failed: %v", err)
	}

	cache := newTestCache(store)

	fetched, err := cache.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if fetched.DocumentNumber != "12345678" {
		t.Fatalf("unexpected record: %+v", fetched)
	}

	// The miss populated both keys.
	if _, ok := cache.byID.Load(seeded.ID); !ok {
		t.Fatal("id key not populated after miss")
	}
	if _, ok := cache.byDoc.Load(seeded.DocumentNumber); !ok {
		t.Fatal("document number key not populated after miss")
	}

	if _, err := cache.FindByID(context.Background(), uuid.New()); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestCacheEvictsOnDelete(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store)

	created, err := cache.Insert(context.Background(), testInput(), nil, "")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if _, err := cache.DeleteByID(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteByID failed: %v", err)
	}

	if _, err := cache.FindByID(context.Background(), created.ID); !apperrors.IsNotFound(err) {
		t.Fatalf("deleted record still served by id: %v", err)
	}
	if _, err := cache.FindByDocumentNumber(context.Background(), created.DocumentNumber); !apperrors.IsNotFound(err) {
		t.Fatalf("deleted record still served by document number: %v", err)
	}
}

func TestCacheRekeysOnDocumentNumberChange(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store)

	created, err := cache.Insert(context.Background(), testInput(), nil, "")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Warm the old document number key.
	if _, err := cache.FindByDocumentNumber(context.Background(), "12345678"); err != nil {
		t.Fatalf("warmup lookup failed: %v", err)
	}

	newDoc := "87654399"
	updated, err := cache.UpdateByID(context.Background(), created.ID, domain.UpdateMemberInput{DocumentNumber: &newDoc}, nil, "")
	if err != nil {
		t.Fatalf("UpdateByID failed: %v", err)
	}
	if updated.DocumentNumber != newDoc {
		t.Fatalf("document number not updated: %s", updated.DocumentNumber)
	}

	if _, err := cache.FindByDocumentNumber(context.Background(), "12345678"); !apperrors.IsNotFound(err) {
		t.Fatalf("old document number key still serves a record: %v", err)
	}

	rekeyed, err := cache.FindByDocumentNumber(context.Background(), newDoc)
	if err != nil {
		t.Fatalf("lookup by new document number failed: %v", err)
	}
	if rekeyed.ID != created.ID {
		t.Fatalf("rekeyed lookup returned wrong record: %s", rekeyed.ID)
	}
}

func TestCacheUpdateRefreshesEntry(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store)

	created, err := cache.Insert(context.Background(), testInput(), nil, "")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	name := "Mara"
	if _, err := cache.UpdateByID(context.Background(), created.ID, domain.UpdateMemberInput{FirstName: &name}, nil, ""); err != nil {
		t.Fatalf("UpdateByID failed: %v", err)
	}

	cached, err := cache.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if cached.FirstName != "Mara" {
		t.Fatalf("cache serves stale record after update: %s", cached.FirstName)
	}
}

func TestCacheRejectedUpdateLeavesEntryIntact(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store)

	created, err := cache.Insert(context.Background(), testInput(), nil, "")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	second := testInput()
	second.DocumentNumber = "87654399"
	if _, err := cache.Insert(context.Background(), second, nil, ""); err != nil {
		t.Fatalf("second Insert failed: %v", err)
	}

	taken := "87654399"
	if _, err := cache.UpdateByID(context.Background(), created.ID, domain.UpdateMemberInput{DocumentNumber: &taken}, nil, ""); !apperrors.IsDuplicate(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	kept, err := cache.FindByDocumentNumber(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("original key lookup failed: %v", err)
	}
	if kept.ID != created.ID {
		t.Fatalf("original record lost after rejected update: %s", kept.ID)
	}
}
