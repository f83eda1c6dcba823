package workflow_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mediacat/internal/catalog"
	"mediacat/internal/logging"
	"mediacat/internal/scanner"
	"mediacat/internal/testsupport"
	"mediacat/internal/workflow"
)

type recordingNotifier struct {
	mu             sync.Mutex
	scanStarts     []string
	scanCompletes  []string
	scanFails      []string
	failReasons    []string
	errorMessages  []string
	importMessages []string
}

func (r *recordingNotifier) NotifyImportCompleted(_ context.Context, file string, _, _, _ int, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.importMessages = append(r.importMessages, file)
	return nil
}

func (r *recordingNotifier) NotifyScanStarted(_ context.Context, root string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanStarts = append(r.scanStarts, root)
	return nil
}

func (r *recordingNotifier) NotifyScanCompleted(_ context.Context, root string, _, _, _ int64, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanCompletes = append(r.scanCompletes, root)
	return nil
}

func (r *recordingNotifier) NotifyScanFailed(_ context.Context, root, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanFails = append(r.scanFails, root)
	r.failReasons = append(r.failReasons, reason)
	return nil
}

func (r *recordingNotifier) NotifyError(_ context.Context, err error, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorMessages = append(r.errorMessages, err.Error())
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func (r *recordingNotifier) counts() (starts, completes, fails int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scanStarts), len(r.scanCompletes), len(r.scanFails)
}

func waitForTerminal(t *testing.T, store *catalog.Store, id int64) *catalog.ScanJob {
	t.Helper()
	ctx := context.Background()
	deadline := time.After(60 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for scan job to finish")
		default:
		}
		job, err := store.GetScanJob(ctx, id)
		if err != nil {
			t.Fatalf("GetScanJob failed: %v", err)
		}
		if job.IsTerminal() {
			return job
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestManagerProcessesScanJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.MusicDir, "Low", "Things We Lost in the Fire", "01 - Sunflower.flac"), 2048)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.MusicDir, "Low", "Things We Lost in the Fire", "02 - Whitetail.flac"), 2048)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.MusicDir, "Slint", "Spiderland", "03 - Don, Aman.mp3"), 1024)

	sc, err := scanner.New(store, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("scanner.New failed: %v", err)
	}

	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, sc, logging.NewNop(), notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := store.EnqueueScan(ctx, cfg.Paths.MusicDir)
	if err != nil {
		t.Fatalf("EnqueueScan failed: %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	done := waitForTerminal(t, store, job.ID)
	if done.Status != catalog.ScanCompleted {
		t.Fatalf("expected completed job, got %s (%s)", done.Status, done.ErrorMessage)
	}
	if done.TracksSeen != 3 || done.TracksAdded != 3 {
		t.Fatalf("expected 3 tracks seen and added, got seen=%d added=%d", done.TracksSeen, done.TracksAdded)
	}
	if done.StartedAt == nil || done.FinishedAt == nil {
		t.Fatal("expected started and finished timestamps on completed job")
	}

	deadline := time.After(10 * time.Second)
	for {
		starts, completes, _ := notifier.counts()
		if starts == 1 && completes == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected one start and one completion notification, got starts=%d completes=%d", starts, completes)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	tracks, err := store.ListTracks(ctx, catalog.TrackPresent)
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("expected 3 present tracks after scan, got %d", len(tracks))
	}
}

func TestManagerFailsJobWhenRootMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	sc, err := scanner.New(store, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("scanner.New failed: %v", err)
	}

	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, sc, logging.NewNop(), notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := store.EnqueueScan(ctx, filepath.Join(cfg.Paths.MusicDir, "does-not-exist"))
	if err != nil {
		t.Fatalf("EnqueueScan failed: %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	done := waitForTerminal(t, store, job.ID)
	if done.Status != catalog.ScanFailed {
		t.Fatalf("expected failed job, got %s", done.Status)
	}
	if done.ErrorMessage == "" {
		t.Fatal("expected error message on failed job")
	}

	deadline := time.After(10 * time.Second)
	for {
		_, _, fails := notifier.counts()
		if fails == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expected a scan failure notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	notifier.mu.Lock()
	reason := notifier.failReasons[0]
	notifier.mu.Unlock()
	if !strings.Contains(reason, "does-not-exist") {
		t.Fatalf("expected failure reason to mention the root, got %q", reason)
	}
}

func TestManagerStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	sc, err := scanner.New(store, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("scanner.New failed: %v", err)
	}

	mgr := workflow.NewManagerWithNotifier(cfg, store, sc, logging.NewNop(), &recordingNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !mgr.Running() {
		t.Fatal("expected manager to report running")
	}
	if err := mgr.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail while running")
	}

	mgr.Stop()
	if mgr.Running() {
		t.Fatal("expected manager to report stopped")
	}
	mgr.Stop()

	status := mgr.Status(context.Background())
	if status.Running {
		t.Fatal("expected status to report not running")
	}
}

func TestManagerStatusIncludesStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewBook(t, store, "Annihilation", "9780374104092")

	sc, err := scanner.New(store, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("scanner.New failed: %v", err)
	}

	mgr := workflow.NewManagerWithNotifier(cfg, store, sc, logging.NewNop(), &recordingNotifier{})
	status := mgr.Status(context.Background())
	if status.Stats.Books != 1 {
		t.Fatalf("expected one book counted, got %d", status.Stats.Books)
	}
}
