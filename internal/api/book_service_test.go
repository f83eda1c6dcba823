package api

import (
	"context"
	"errors"
	"testing"

	"mediacat/internal/catalog"
)

type mockBookReader struct {
	books   []*catalog.Book
	listErr error
}

func (m *mockBookReader) ListBooks(context.Context, catalog.BookFilter) ([]*catalog.Book, error) {
	return m.books, m.listErr
}

func (m *mockBookReader) GetBookByID(context.Context, int64) (*catalog.Book, error) {
	if len(m.books) == 0 {
		return nil, m.listErr
	}
	return m.books[0], m.listErr
}

func (m *mockBookReader) SearchBooks(context.Context, string) ([]*catalog.Book, error) {
	return m.books, m.listErr
}

func TestBookServiceList(t *testing.T) {
	reader := &mockBookReader{books: []*catalog.Book{{ID: 1, Title: "Solaris"}}}
	svc := NewBookService(reader)
	got, err := svc.List(context.Background(), catalog.BookFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Solaris" {
		t.Fatalf("unexpected books: %+v", got)
	}
}

func TestBookServiceListPropagatesError(t *testing.T) {
	wantErr := errors.New("db closed")
	svc := NewBookService(&mockBookReader{listErr: wantErr})
	if _, err := svc.List(context.Background(), catalog.BookFilter{}); !errors.Is(err, wantErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestBookServiceDescribeMissing(t *testing.T) {
	svc := NewBookService(&mockBookReader{})
	got, err := svc.Describe(context.Background(), 42)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing book, got %+v", got)
	}
}

func TestNewBookServiceNilStore(t *testing.T) {
	if svc := NewBookService(nil); svc != nil {
		t.Fatal("expected nil service for nil store")
	}
}
