package api

import (
	"context"

	"mediacat/internal/catalog"
)

// BookReader abstracts catalog persistence interactions needed for API queries.
type BookReader interface {
	ListBooks(ctx context.Context, filter catalog.BookFilter) ([]*catalog.Book, error)
	GetBookByID(ctx context.Context, id int64) (*catalog.Book, error)
	SearchBooks(ctx context.Context, query string) ([]*catalog.Book, error)
}

// BookService exposes read-only book operations returning API DTOs.
type BookService struct {
	store BookReader
}

// NewBookService constructs a BookService around the provided reader.
func NewBookService(store BookReader) *BookService {
	if store == nil {
		return nil
	}
	return &BookService{store: store}
}

// List returns books matching the filter.
func (s *BookService) List(ctx context.Context, filter catalog.BookFilter) ([]Book, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	books, err := s.store.ListBooks(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FromBooks(books), nil
}

// Describe fetches a single book.
func (s *BookService) Describe(ctx context.Context, id int64) (*Book, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	book, err := s.store.GetBookByID(ctx, id)
	if err != nil || book == nil {
		return nil, err
	}
	dto := FromBook(book)
	return &dto, nil
}

// Search matches the query against titles and author names.
func (s *BookService) Search(ctx context.Context, query string) ([]Book, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	books, err := s.store.SearchBooks(ctx, query)
	if err != nil {
		return nil, err
	}
	return FromBooks(books), nil
}
