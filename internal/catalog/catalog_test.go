package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"reelvault/internal/logging"
	"reelvault/internal/services"
	"reelvault/internal/sidecar"
	"reelvault/internal/testsupport"
)

func openCatalog(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func writeSidecars(t *testing.T, target string) {
	t.Helper()
	records := []sidecar.Record{
		{
			ID:         "sha256:aaa",
			SourcePath: "/src/GoPro/clip.mp4",
			TargetPath: "Originals/gopro/2024/2024-07-04/clip.mp4",
			Device:     "gopro",
			Category:   "video",
			SizeBytes:  100,
			MigratedAt: "2024-08-01T00:00:00Z",
		},
		{
			ID:          "sha256:aaa",
			SourcePath:  "/src/backup/clip.mp4",
			TargetPath:  "Originals/_unknown/clip.mp4",
			Category:    "video",
			SizeBytes:   100,
			MigratedAt:  "2024-08-01T00:00:00Z",
			DuplicateOf: "Originals/gopro/2024/2024-07-04/clip.mp4",
		},
		{
			ID:         "sha256:bbb",
			SourcePath: "/src/Drone/flight.mov",
			TargetPath: "Originals/drone/2024/2024-07-04/flight.mov",
			Device:     "drone",
			Category:   "video",
			SizeBytes:  50,
			MigratedAt: "2024-08-01T00:00:00Z",
		},
	}
	for _, rec := range records {
		if err := sidecar.Write(target, rec); err != nil {
			t.Fatalf("write sidecar: %v", err)
		}
	}
}

func TestIndexAndQueries(t *testing.T) {
	target := t.TempDir()
	writeSidecars(t, target)
	store := openCatalog(t)
	ctx := context.Background()

	indexer := NewIndexer(store, logging.NewNop())
	result, err := indexer.Index(ctx, target)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if result.Indexed != 3 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}

	clip, ok, err := store.Get(ctx, "Originals/gopro/2024/2024-07-04/clip.mp4")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("clip not found")
	}
	if clip.Device != "gopro" || clip.Digest != "sha256:aaa" || clip.SizeBytes != 100 {
		t.Fatalf("unexpected clip: %+v", clip)
	}

	twins, err := store.ByDigest(ctx, "sha256:aaa")
	if err != nil {
		t.Fatalf("ByDigest: %v", err)
	}
	if len(twins) != 2 {
		t.Fatalf("twins = %d, want 2", len(twins))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Clips != 3 || stats.TotalBytes != 250 || stats.Duplicates != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(stats.Devices) == 0 {
		t.Fatal("expected a device breakdown")
	}
}

func TestIndexIsIdempotent(t *testing.T) {
	target := t.TempDir()
	writeSidecars(t, target)
	store := openCatalog(t)
	ctx := context.Background()

	indexer := NewIndexer(store, logging.NewNop())
	if _, err := indexer.Index(ctx, target); err != nil {
		t.Fatalf("first index: %v", err)
	}
	if _, err := indexer.Index(ctx, target); err != nil {
		t.Fatalf("second index: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Clips != 3 {
		t.Fatalf("clips = %d after re-index, want 3", stats.Clips)
	}
}

func TestIndexSkipsMalformedSidecars(t *testing.T) {
	target := t.TempDir()
	writeSidecars(t, target)
	testsupport.WriteFile(t, filepath.Join(target, "Catalog", "sidecars", "broken.yaml"), "{invalid")

	store := openCatalog(t)
	indexer := NewIndexer(store, logging.NewNop())
	result, err := indexer.Index(context.Background(), target)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if result.Indexed != 3 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
}

func TestIndexMissingSidecarDir(t *testing.T) {
	store := openCatalog(t)
	indexer := NewIndexer(store, logging.NewNop())
	_, err := indexer.Index(context.Background(), t.TempDir())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
