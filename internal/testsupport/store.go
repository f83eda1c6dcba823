package testsupport

import (
	"context"
	"testing"

	"mediacat/internal/catalog"
	"mediacat/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewBook creates a book with the given title and ISBN for tests.
func NewBook(t testing.TB, store *catalog.Store, title, isbn string) *catalog.Book {
	t.Helper()

	book, err := store.CreateBook(context.Background(), &catalog.Book{Title: title, ISBN: isbn})
	if err != nil {
		t.Fatalf("store.CreateBook: %v", err)
	}
	return book
}
