package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/otoshimono/otoshimono/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "items.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_IndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	items := []*models.Item{
		{
			ID:          "FOUND-KEYS-AB12CD34",
			ReportType:  "found",
			Category:    "keys",
			Description: "silver key with a red keychain",
			Location:    "Library - 2nd floor",
			Labels:      []string{"key", "keychain"},
		},
		{
			ID:          "LOST-WALLET-A9F2C3D1",
			ReportType:  "lost",
			Category:    "wallet",
			Description: "brown leather wallet",
			Location:    "Cafeteria",
		},
	}
	for _, item := range items {
		if err := idx.Index(ctx, item); err != nil {
			t.Fatalf("Index(%s): %v", item.ID, err)
		}
	}

	results, err := idx.Search(ctx, "keychain", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ItemID != "FOUND-KEYS-AB12CD34" {
		t.Errorf("result = %s, want FOUND-KEYS-AB12CD34", results[0].ItemID)
	}
	if results[0].Score <= 0 {
		t.Errorf("score = %f, want > 0", results[0].Score)
	}
}

func TestBleveIndex_SearchMatchesLabels(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	item := &models.Item{
		ID:          "FOUND-BAG-00000001",
		ReportType:  "found",
		Category:    "bag",
		Description: "backpack",
		Location:    "Gym",
		Labels:      []string{"backpack", "nylon", "zipper"},
	}
	if err := idx.Index(ctx, item); err != nil {
		t.Fatalf("Index: %v", err)
	}

	results, err := idx.Search(ctx, "zipper", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results for label query, want 1", len(results))
	}
}

func TestBleveIndex_SearchNoMatch(t *testing.T) {
	idx := newTestIndex(t)
	results, err := idx.Search(context.Background(), "umbrella", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestBleveIndex_ReindexOverwrites(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	item := &models.Item{ID: "FOUND-KEYS-AB12CD34", ReportType: "found", Category: "keys", Description: "old description"}
	if err := idx.Index(ctx, item); err != nil {
		t.Fatalf("Index: %v", err)
	}
	item.Description = "updated brass key"
	if err := idx.Index(ctx, item); err != nil {
		t.Fatalf("re-Index: %v", err)
	}

	if results, _ := idx.Search(ctx, "brass", 10); len(results) != 1 {
		t.Errorf("updated description should match, got %d results", len(results))
	}
	if results, _ := idx.Search(ctx, "old", 10); len(results) != 0 {
		t.Errorf("old description should be gone, got %d results", len(results))
	}
}
