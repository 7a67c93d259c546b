// Package integration holds tests that exercise component interplay beyond a
// single package: persistence across restarts and artifact integrity.
package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/otoshimono/otoshimono/internal/embedding"
	"github.com/otoshimono/otoshimono/internal/matching"
	"github.com/otoshimono/otoshimono/internal/models"
	"github.com/otoshimono/otoshimono/internal/storage"
	"github.com/otoshimono/otoshimono/internal/vector"
)

const dims = 128

func TestPersistence_MatchesSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "items.db")
	vectorsPath := filepath.Join(dir, "vectors.bin")
	idsPath := filepath.Join(dir, "vectors.ids")
	ctx := context.Background()
	embedder := embedding.NewMockEmbedder(dims)

	// First process lifetime: report a found item, save artifacts on the way out.
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	index, err := vector.NewFlatIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	engine := matching.NewEngine(store, embedder, index, nil, nil, matching.Params{}, nil)
	found, err := engine.HandleReport(ctx, &models.Report{
		ReportType:  "found",
		Category:    "keys",
		Description: "key",
		Location:    "central station",
		ImageSource: "keys.jpg",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := index.Save(vectorsPath, idsPath); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// Second lifetime: load artifacts, a lost report matches without re-reporting.
	store2, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store2.Close()
	index2, err := vector.NewFlatIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	if err := index2.Load(vectorsPath, idsPath); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if index2.Size() != 1 {
		t.Fatalf("loaded index size = %d, want 1", index2.Size())
	}

	engine2 := matching.NewEngine(store2, embedder, index2, nil, nil, matching.Params{}, nil)
	lost, err := engine2.HandleReport(ctx, &models.Report{
		ReportType:  "lost",
		Category:    "keys",
		Description: "key",
		Location:    "north exit",
		ImageSource: "keys.jpg",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(lost.Matches) != 1 || lost.Matches[0].ItemID != found.ItemID {
		t.Fatalf("matches after restart: got %v, want %s", lost.Matches, found.ItemID)
	}

	// The stored metadata for the match is still retrievable.
	item, err := store2.GetItem(ctx, found.ItemID)
	if err != nil {
		t.Fatalf("metadata lookup after restart: %v", err)
	}
	if item.Location != "central station" {
		t.Errorf("item location = %q", item.Location)
	}
}

func TestPersistence_TamperedArtifactsRefuseLoad(t *testing.T) {
	dir := t.TempDir()
	vectorsPath := filepath.Join(dir, "vectors.bin")
	idsPath := filepath.Join(dir, "vectors.ids")
	ctx := context.Background()

	index, err := vector.NewFlatIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	vec := make([]float32, dims)
	vec[0] = 1
	for _, id := range []string{"FOUND-KEYS-AAAA0000", "FOUND-KEYS-BBBB0000"} {
		if err := index.Insert(ctx, id, vec); err != nil {
			t.Fatal(err)
		}
	}
	if err := index.Save(vectorsPath, idsPath); err != nil {
		t.Fatal(err)
	}

	// Drop one id from the id list so the artifact pair disagrees.
	if err := os.WriteFile(idsPath, []byte("FOUND-KEYS-AAAA0000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fresh, err := vector.NewFlatIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	if err := fresh.Load(vectorsPath, idsPath); !errors.Is(err, vector.ErrIntegrity) {
		t.Fatalf("load of tampered artifacts: err = %v, want ErrIntegrity", err)
	}
}

func TestPersistence_PoisonedEngineRefusesReports(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "items.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	index, err := vector.NewFlatIndex(dims)
	if err != nil {
		t.Fatal(err)
	}

	engine := matching.NewEngine(store, embedding.NewMockEmbedder(dims), index, nil, nil, matching.Params{}, nil)
	engine.MarkPoisoned()

	_, err = engine.HandleReport(ctx, &models.Report{
		ReportType:  "found",
		Location:    "central station",
		ImageSource: "keys.jpg",
	})
	if !errors.Is(err, vector.ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity from poisoned engine", err)
	}
	count, _ := store.CountItems(ctx)
	if count != 0 {
		t.Errorf("poisoned engine persisted an item")
	}
}
