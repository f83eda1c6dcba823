package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediacat/internal/catalog"
	"mediacat/internal/scanner"
	"mediacat/internal/testsupport"
)

func newScanner(t *testing.T) (*scanner.Scanner, *catalog.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sc, err := scanner.New(store, cfg, nil)
	if err != nil {
		t.Fatalf("scanner.New: %v", err)
	}
	return sc, store, cfg.Paths.MusicDir
}

func TestWalkFiltersExtensionsAndExcludes(t *testing.T) {
	sc, _, musicDir := newScanner(t)

	testsupport.WriteFile(t, filepath.Join(musicDir, "Artist", "Album", "01 Song.flac"), 100)
	testsupport.WriteFile(t, filepath.Join(musicDir, "Artist", "Album", "cover.jpg"), 50)
	testsupport.WriteFile(t, filepath.Join(musicDir, ".stversions", "old.mp3"), 10)

	files, err := sc.Walk(context.Background(), musicDir)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d: %#v", len(files), files)
	}
	file := files[0]
	if file.Artist != "Artist" || file.Album != "Album" || file.TrackNo != 1 || file.Title != "Song" {
		t.Fatalf("unexpected layout parse: %#v", file)
	}
}

func TestWalkFallsBackToFileName(t *testing.T) {
	sc, _, musicDir := newScanner(t)
	testsupport.WriteFile(t, filepath.Join(musicDir, "loose recording.mp3"), 10)

	files, err := sc.Walk(context.Background(), musicDir)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Artist != "" || files[0].Title != "loose recording" || files[0].TrackNo != 0 {
		t.Fatalf("unexpected fallback parse: %#v", files[0])
	}
}

func TestReconcileLifecycle(t *testing.T) {
	sc, store, musicDir := newScanner(t)
	ctx := context.Background()

	keptPath := filepath.Join(musicDir, "Artist", "Album", "01 Keeper.flac")
	changedPath := filepath.Join(musicDir, "Artist", "Album", "02 Changer.flac")
	testsupport.WriteFile(t, keptPath, 100)
	testsupport.WriteFile(t, changedPath, 100)

	files, err := sc.Walk(ctx, musicDir)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	counts, err := sc.Reconcile(ctx, musicDir, files, nil)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if counts.Seen != 2 || counts.Added != 2 || counts.Updated != 0 || counts.Missing != 0 {
		t.Fatalf("unexpected first pass counts: %#v", counts)
	}

	// Grow one file and delete the other before the second pass.
	testsupport.WriteFile(t, changedPath, 250)
	if err := os.Remove(keptPath); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	files, err = sc.Walk(ctx, musicDir)
	if err != nil {
		t.Fatalf("Walk (second) failed: %v", err)
	}
	counts, err = sc.Reconcile(ctx, musicDir, files, nil)
	if err != nil {
		t.Fatalf("Reconcile (second) failed: %v", err)
	}
	if counts.Seen != 1 || counts.Added != 0 || counts.Updated != 1 || counts.Missing != 1 {
		t.Fatalf("unexpected second pass counts: %#v", counts)
	}

	missing, err := store.ListTracks(ctx, catalog.TrackMissing)
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(missing) != 1 || missing[0].Path != keptPath {
		t.Fatalf("unexpected missing tracks: %#v", missing)
	}

	// A third pass with the file restored revives the row.
	testsupport.WriteFile(t, keptPath, 100)
	files, err = sc.Walk(ctx, musicDir)
	if err != nil {
		t.Fatalf("Walk (third) failed: %v", err)
	}
	if _, err := sc.Reconcile(ctx, musicDir, files, nil); err != nil {
		t.Fatalf("Reconcile (third) failed: %v", err)
	}
	present, err := store.ListTracks(ctx, catalog.TrackPresent)
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(present) != 2 {
		t.Fatalf("expected both tracks present, got %d", len(present))
	}
}

func TestReconcileCancellation(t *testing.T) {
	sc, _, musicDir := newScanner(t)
	testsupport.WriteFile(t, filepath.Join(musicDir, "Artist", "Album", "01 Song.flac"), 10)

	files, err := sc.Walk(context.Background(), musicDir)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sc.Reconcile(ctx, musicDir, files, nil); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	base := scanner.File{RelPath: "a/b/01 Song.flac", Size: 100, ModTime: time.Unix(1700000000, 0)}
	changedSize := base
	changedSize.Size = 200
	changedTime := base
	changedTime.ModTime = base.ModTime.Add(time.Second)

	fp := scanner.Fingerprint(base)
	if fp == scanner.Fingerprint(changedSize) {
		t.Error("expected fingerprint to change with size")
	}
	if fp == scanner.Fingerprint(changedTime) {
		t.Error("expected fingerprint to change with mtime")
	}
	if fp != scanner.Fingerprint(base) {
		t.Error("expected fingerprint to be stable")
	}
}
