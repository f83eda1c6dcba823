package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mediacat/internal/catalog"
	"mediacat/internal/testsupport"
)

func TestOpenAppliesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	book, err := store.CreateBook(ctx, &catalog.Book{Title: "The Left Hand of Darkness", ISBN: "978-0-441-47812-5"})
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}
	if book.ID == 0 {
		t.Fatal("expected book ID to be assigned")
	}
	if book.SortTitle != "left hand of darkness" {
		t.Fatalf("unexpected sort title: %q", book.SortTitle)
	}

	fetched, err := store.GetBookByISBN(ctx, "9780441478125")
	if err != nil {
		t.Fatalf("GetBookByISBN failed: %v", err)
	}
	if fetched == nil || fetched.ID != book.ID {
		t.Fatalf("expected to find inserted book, got %#v", fetched)
	}
}

func TestCreateBookRejectsDuplicateISBN(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewBook(t, store, "Dune", "9780441172719")
	if _, err := store.CreateBook(ctx, &catalog.Book{Title: "Dune Again", ISBN: "978-0441172719"}); !errors.Is(err, catalog.ErrDuplicateISBN) {
		t.Fatalf("expected ErrDuplicateISBN, got %v", err)
	}
}

func TestBookLinksRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	book := testsupport.NewBook(t, store, "A Wizard of Earthsea", "9780547722023")

	author, err := store.EnsureAuthor(ctx, "Ursula K. Le Guin", "https://openlibrary.org/authors/OL19981A")
	if err != nil {
		t.Fatalf("EnsureAuthor failed: %v", err)
	}
	again, err := store.EnsureAuthor(ctx, "Ursula K. Le Guin", "https://openlibrary.org/authors/OL19981A")
	if err != nil {
		t.Fatalf("EnsureAuthor (repeat) failed: %v", err)
	}
	if again.ID != author.ID {
		t.Fatalf("expected author dedupe, got IDs %d and %d", author.ID, again.ID)
	}
	if err := store.LinkAuthor(ctx, book.ID, author.ID); err != nil {
		t.Fatalf("LinkAuthor failed: %v", err)
	}

	tag, err := store.EnsureTag(ctx, "fantasy")
	if err != nil {
		t.Fatalf("EnsureTag failed: %v", err)
	}
	if err := store.TagBook(ctx, book.ID, tag.ID); err != nil {
		t.Fatalf("TagBook failed: %v", err)
	}
	if err := store.TagBook(ctx, book.ID, tag.ID); err != nil {
		t.Fatalf("TagBook (repeat) failed: %v", err)
	}

	series, err := store.EnsureSeries(ctx, "Earthsea Cycle")
	if err != nil {
		t.Fatalf("EnsureSeries failed: %v", err)
	}
	if err := store.AssignSeries(ctx, series.ID, book.ID, 1); err != nil {
		t.Fatalf("AssignSeries failed: %v", err)
	}
	if err := store.RateBook(ctx, book.ID, 5); err != nil {
		t.Fatalf("RateBook failed: %v", err)
	}

	loaded, err := store.GetBookByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetBookByID failed: %v", err)
	}
	if len(loaded.Authors) != 1 || loaded.Authors[0].Name != "Ursula K. Le Guin" {
		t.Fatalf("unexpected authors: %#v", loaded.Authors)
	}
	if len(loaded.Tags) != 1 || loaded.Tags[0] != "fantasy" {
		t.Fatalf("unexpected tags: %#v", loaded.Tags)
	}
	if loaded.Series == nil || loaded.Series.Name != "Earthsea Cycle" || loaded.Series.Position != 1 {
		t.Fatalf("unexpected series: %#v", loaded.Series)
	}
	if loaded.Rating != 5 {
		t.Fatalf("unexpected rating: %d", loaded.Rating)
	}

	if err := store.RateBook(ctx, book.ID, 3); err != nil {
		t.Fatalf("RateBook (update) failed: %v", err)
	}
	loaded, err = store.GetBookByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetBookByID after re-rate failed: %v", err)
	}
	if loaded.Rating != 3 {
		t.Fatalf("expected rating upsert to 3, got %d", loaded.Rating)
	}
}

func TestListBooksFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	read := testsupport.NewBook(t, store, "Hyperion", "9780553283686")
	read.Read = true
	if err := store.UpdateBook(ctx, read); err != nil {
		t.Fatalf("UpdateBook failed: %v", err)
	}
	unread := testsupport.NewBook(t, store, "The Fall of Hyperion", "9780553288209")

	author, err := store.EnsureAuthor(ctx, "Dan Simmons", "")
	if err != nil {
		t.Fatalf("EnsureAuthor failed: %v", err)
	}
	if err := store.LinkAuthor(ctx, unread.ID, author.ID); err != nil {
		t.Fatalf("LinkAuthor failed: %v", err)
	}
	tag, err := store.EnsureTag(ctx, "sf")
	if err != nil {
		t.Fatalf("EnsureTag failed: %v", err)
	}
	if err := store.TagBook(ctx, read.ID, tag.ID); err != nil {
		t.Fatalf("TagBook failed: %v", err)
	}

	cases := []struct {
		name   string
		filter catalog.BookFilter
		want   []int64
	}{
		{"all", catalog.BookFilter{}, []int64{unread.ID, read.ID}},
		{"unread", catalog.BookFilter{Unread: true}, []int64{unread.ID}},
		{"by author", catalog.BookFilter{Author: "simmons"}, []int64{unread.ID}},
		{"by tag", catalog.BookFilter{Tag: "sf"}, []int64{read.ID}},
		{"by title", catalog.BookFilter{TitleContains: "fall"}, []int64{unread.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			books, err := store.ListBooks(ctx, tc.filter)
			if err != nil {
				t.Fatalf("ListBooks failed: %v", err)
			}
			if len(books) != len(tc.want) {
				t.Fatalf("expected %d books, got %d", len(tc.want), len(books))
			}
			got := make(map[int64]bool, len(books))
			for _, b := range books {
				got[b.ID] = true
			}
			for _, id := range tc.want {
				if !got[id] {
					t.Fatalf("missing expected book %d in %v", id, got)
				}
			}
		})
	}
}

func TestSearchBooksMatchesTitleAndAuthor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	book := testsupport.NewBook(t, store, "Consider Phlebas", "9780316005388")
	author, err := store.EnsureAuthor(ctx, "Iain M. Banks", "")
	if err != nil {
		t.Fatalf("EnsureAuthor failed: %v", err)
	}
	if err := store.LinkAuthor(ctx, book.ID, author.ID); err != nil {
		t.Fatalf("LinkAuthor failed: %v", err)
	}

	for _, query := range []string{"phlebas", "banks"} {
		results, err := store.SearchBooks(ctx, query)
		if err != nil {
			t.Fatalf("SearchBooks(%q) failed: %v", query, err)
		}
		if len(results) != 1 || results[0].ID != book.ID {
			t.Fatalf("SearchBooks(%q) returned %#v", query, results)
		}
	}

	results, err := store.SearchBooks(ctx, "no such thing")
	if err != nil {
		t.Fatalf("SearchBooks failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestRemoveBookCascadesLinks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	book := testsupport.NewBook(t, store, "Neuromancer", "9780441569595")
	tag, err := store.EnsureTag(ctx, "cyberpunk")
	if err != nil {
		t.Fatalf("EnsureTag failed: %v", err)
	}
	if err := store.TagBook(ctx, book.ID, tag.ID); err != nil {
		t.Fatalf("TagBook failed: %v", err)
	}
	if err := store.RateBook(ctx, book.ID, 4); err != nil {
		t.Fatalf("RateBook failed: %v", err)
	}

	removed, err := store.RemoveBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("RemoveBook failed: %v", err)
	}
	if !removed {
		t.Fatal("expected RemoveBook to report a deletion")
	}
	if fetched, err := store.GetBookByID(ctx, book.ID); err != nil || fetched != nil {
		t.Fatalf("expected book gone, got %#v err=%v", fetched, err)
	}

	removed, err = store.RemoveBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("RemoveBook (repeat) failed: %v", err)
	}
	if removed {
		t.Fatal("expected second RemoveBook to report nothing deleted")
	}
}

func TestTxRollbackDiscardsChanges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := tx.CreateBook(ctx, &catalog.Book{Title: "Provisional", ISBN: "9780000000001"}); err != nil {
		t.Fatalf("Tx.CreateBook failed: %v", err)
	}
	inside, err := tx.GetBookByISBN(ctx, "9780000000001")
	if err != nil {
		t.Fatalf("Tx.GetBookByISBN failed: %v", err)
	}
	if inside == nil {
		t.Fatal("expected book visible inside transaction")
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	outside, err := store.GetBookByISBN(ctx, "9780000000001")
	if err != nil {
		t.Fatalf("GetBookByISBN failed: %v", err)
	}
	if outside != nil {
		t.Fatalf("expected rollback to discard book, got %#v", outside)
	}
}

func TestScanJobLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.EnqueueScan(ctx, cfg.Paths.MusicDir)
	if err != nil {
		t.Fatalf("EnqueueScan failed: %v", err)
	}
	if job.Status != catalog.ScanPending {
		t.Fatalf("expected pending job, got %s", job.Status)
	}

	next, err := store.NextScanJob(ctx, catalog.ScanPending)
	if err != nil {
		t.Fatalf("NextScanJob failed: %v", err)
	}
	if next == nil || next.ID != job.ID {
		t.Fatalf("expected job %d, got %#v", job.ID, next)
	}

	next.Status = catalog.ScanScanning
	now := time.Now().UTC()
	next.StartedAt = &now
	if err := store.UpdateScanJob(ctx, next); err != nil {
		t.Fatalf("UpdateScanJob failed: %v", err)
	}
	if err := store.Heartbeat(ctx, next.ID); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}

	fetched, err := store.GetScanJob(ctx, next.ID)
	if err != nil {
		t.Fatalf("GetScanJob failed: %v", err)
	}
	if fetched.Status != catalog.ScanScanning {
		t.Fatalf("expected scanning status, got %s", fetched.Status)
	}
	if fetched.LastHeartbeat == nil {
		t.Fatal("expected heartbeat to be recorded")
	}

	fetched.Status = catalog.ScanCompleted
	fetched.TracksSeen = 12
	fetched.TracksAdded = 3
	if err := store.UpdateScanJob(ctx, fetched); err != nil {
		t.Fatalf("UpdateScanJob (complete) failed: %v", err)
	}
	done, err := store.GetScanJob(ctx, fetched.ID)
	if err != nil {
		t.Fatalf("GetScanJob (complete) failed: %v", err)
	}
	if !done.IsTerminal() || done.TracksSeen != 12 || done.TracksAdded != 3 {
		t.Fatalf("unexpected completed job: %#v", done)
	}

	if next, err := store.NextScanJob(ctx, catalog.ScanPending); err != nil || next != nil {
		t.Fatalf("expected empty queue, got %#v err=%v", next, err)
	}
}

func TestResetStuckScans(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		initial catalog.ScanStatus
		want    catalog.ScanStatus
	}{
		{catalog.ScanScanning, catalog.ScanPending},
		{catalog.ScanReconciling, catalog.ScanPending},
		{catalog.ScanCompleted, catalog.ScanCompleted},
		{catalog.ScanFailed, catalog.ScanFailed},
	}
	ids := make([]int64, 0, len(cases))
	for i, tc := range cases {
		job, err := store.EnqueueScan(ctx, fmt.Sprintf("/music/%d", i))
		if err != nil {
			t.Fatalf("EnqueueScan failed: %v", err)
		}
		job.Status = tc.initial
		if err := store.UpdateScanJob(ctx, job); err != nil {
			t.Fatalf("UpdateScanJob failed: %v", err)
		}
		ids = append(ids, job.ID)
	}

	reset, err := store.ResetStuckScans(ctx)
	if err != nil {
		t.Fatalf("ResetStuckScans failed: %v", err)
	}
	if reset != 2 {
		t.Fatalf("expected 2 jobs reset, got %d", reset)
	}
	for i, tc := range cases {
		job, err := store.GetScanJob(ctx, ids[i])
		if err != nil {
			t.Fatalf("GetScanJob failed: %v", err)
		}
		if job.Status != tc.want {
			t.Fatalf("job %d: expected %s, got %s", ids[i], tc.want, job.Status)
		}
	}
}

func TestFailStaleScans(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale, err := store.EnqueueScan(ctx, "/music/stale")
	if err != nil {
		t.Fatalf("EnqueueScan failed: %v", err)
	}
	stale.Status = catalog.ScanScanning
	old := time.Now().UTC().Add(-time.Hour)
	stale.LastHeartbeat = &old
	if err := store.UpdateScanJob(ctx, stale); err != nil {
		t.Fatalf("UpdateScanJob failed: %v", err)
	}

	fresh, err := store.EnqueueScan(ctx, "/music/fresh")
	if err != nil {
		t.Fatalf("EnqueueScan failed: %v", err)
	}
	fresh.Status = catalog.ScanScanning
	if err := store.UpdateScanJob(ctx, fresh); err != nil {
		t.Fatalf("UpdateScanJob failed: %v", err)
	}
	if err := store.Heartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}

	failed, err := store.FailStaleScans(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("FailStaleScans failed: %v", err)
	}
	if len(failed) != 1 || failed[0] != stale.ID {
		t.Fatalf("expected only stale job %d failed, got %v", stale.ID, failed)
	}

	job, err := store.GetScanJob(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetScanJob failed: %v", err)
	}
	if job.Status != catalog.ScanFailed || job.ErrorMessage == "" {
		t.Fatalf("unexpected stale job state: %#v", job)
	}
	kept, err := store.GetScanJob(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetScanJob failed: %v", err)
	}
	if kept.Status != catalog.ScanScanning {
		t.Fatalf("expected fresh job untouched, got %s", kept.Status)
	}
}

func TestTrackInventory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	track, err := store.InsertTrack(ctx, &catalog.Track{
		Path:        "/music/Artist/Album/01 Song.flac",
		Artist:      "Artist",
		Album:       "Album",
		Title:       "Song",
		TrackNo:     1,
		Fingerprint: "fp-1",
		SizeBytes:   1024,
		ModTime:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("InsertTrack failed: %v", err)
	}
	if track.ID == 0 || track.State != catalog.TrackPresent {
		t.Fatalf("unexpected inserted track: %#v", track)
	}

	fetched, err := store.GetTrackByPath(ctx, track.Path)
	if err != nil {
		t.Fatalf("GetTrackByPath failed: %v", err)
	}
	if fetched == nil || fetched.Fingerprint != "fp-1" {
		t.Fatalf("unexpected fetched track: %#v", fetched)
	}

	fetched.Fingerprint = "fp-2"
	fetched.SizeBytes = 2048
	if err := store.UpdateTrack(ctx, fetched); err != nil {
		t.Fatalf("UpdateTrack failed: %v", err)
	}
	updated, err := store.GetTrackByPath(ctx, track.Path)
	if err != nil {
		t.Fatalf("GetTrackByPath (updated) failed: %v", err)
	}
	if updated.Fingerprint != "fp-2" || updated.SizeBytes != 2048 {
		t.Fatalf("expected updated track, got %#v", updated)
	}

	missing, err := store.MarkTracksMissing(ctx, "/music/", time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("MarkTracksMissing failed: %v", err)
	}
	if missing != 1 {
		t.Fatalf("expected 1 track marked missing, got %d", missing)
	}
	gone, err := store.ListTracks(ctx, catalog.TrackMissing)
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(gone) != 1 || gone[0].ID != track.ID {
		t.Fatalf("unexpected missing tracks: %#v", gone)
	}

	if err := store.TouchTrack(ctx, track.ID); err != nil {
		t.Fatalf("TouchTrack failed: %v", err)
	}
	back, err := store.GetTrackByPath(ctx, track.Path)
	if err != nil {
		t.Fatalf("GetTrackByPath (touched) failed: %v", err)
	}
	if back.State != catalog.TrackPresent {
		t.Fatalf("expected track restored to present, got %s", back.State)
	}
}

func TestUsersAndSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	user, err := store.CreateUser(ctx, "alice", "hash-1", catalog.RoleEditor)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == 0 || user.Role != catalog.RoleEditor {
		t.Fatalf("unexpected user: %#v", user)
	}
	if _, err := store.CreateUser(ctx, "alice", "hash-2", catalog.RoleViewer); !errors.Is(err, catalog.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	active := catalog.Session{TokenHash: "active", UserID: user.ID, ExpiresAt: time.Now().UTC().Add(time.Hour)}
	expired := catalog.Session{TokenHash: "expired", UserID: user.ID, ExpiresAt: time.Now().UTC().Add(-time.Hour)}
	for _, s := range []catalog.Session{active, expired} {
		if err := store.InsertSession(ctx, s); err != nil {
			t.Fatalf("InsertSession failed: %v", err)
		}
	}

	got, err := store.GetSession(ctx, "active")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil || got.UserID != user.ID {
		t.Fatalf("unexpected session: %#v", got)
	}
	if got, err := store.GetSession(ctx, "expired"); err != nil || got != nil {
		t.Fatalf("expected expired session hidden, got %#v err=%v", got, err)
	}

	purged, err := store.PurgeExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("PurgeExpiredSessions failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 session purged, got %d", purged)
	}

	removed, err := store.RemoveUser(ctx, "alice")
	if err != nil {
		t.Fatalf("RemoveUser failed: %v", err)
	}
	if !removed {
		t.Fatal("expected user removal")
	}
	if got, err := store.GetSession(ctx, "active"); err != nil || got != nil {
		t.Fatalf("expected session cascade on user delete, got %#v err=%v", got, err)
	}
}

func TestStatsCountsRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewBook(t, store, "Solaris", "9780156027601")
	if _, err := store.EnqueueScan(ctx, "/music"); err != nil {
		t.Fatalf("EnqueueScan failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Books != 1 || stats.ScanJobs != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestSearchBooksTreatsWildcardsLiterally(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewBook(t, store, "100% Wolf", "9781760559649")
	testsupport.NewBook(t, store, "100 Years of Solitude", "9780060883287")
	testsupport.NewBook(t, store, "snake_case style", "9790000000001")
	testsupport.NewBook(t, store, "snakeXcase style", "9790000000002")

	results, err := store.SearchBooks(ctx, "100%")
	if err != nil {
		t.Fatalf("SearchBooks failed: %v", err)
	}
	if len(results) != 1 || results[0].Title != "100% Wolf" {
		t.Fatalf("expected only the literal %%-titled book, got %d results", len(results))
	}

	books, err := store.ListBooks(ctx, catalog.BookFilter{TitleContains: "snake_case"})
	if err != nil {
		t.Fatalf("ListBooks failed: %v", err)
	}
	if len(books) != 1 || books[0].Title != "snake_case style" {
		t.Fatalf("expected underscore to match literally, got %d results", len(books))
	}
}
