package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const bookColumns = "id, title, sort_title, isbn, published, pages, summary, comments, cover_path, read, created_at, updated_at"

// ErrDuplicateISBN indicates a book with the same ISBN already exists.
var ErrDuplicateISBN = errors.New("duplicate isbn")

func scanBook(scanner interface{ Scan(dest ...any) error }) (*Book, error) {
	var (
		id         int64
		title      string
		sortTitle  string
		isbn       sql.NullString
		published  sql.NullString
		pages      sql.NullInt64
		summary    sql.NullString
		comments   sql.NullString
		coverPath  sql.NullString
		read       sql.NullInt64
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&sortTitle,
		&isbn,
		&published,
		&pages,
		&summary,
		&comments,
		&coverPath,
		&read,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	book := &Book{
		ID:        id,
		Title:     title,
		SortTitle: sortTitle,
		ISBN:      isbn.String,
		Published: published.String,
		Pages:     int(pages.Int64),
		Summary:   summary.String,
		Comments:  comments.String,
		CoverPath: coverPath.String,
		Read:      read.Int64 != 0,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		book.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		book.UpdatedAt = updated
	}
	return book, nil
}

func insertBook(ctx context.Context, q querier, book *Book) (int64, error) {
	if book == nil {
		return 0, errors.New("book is nil")
	}
	title := strings.TrimSpace(book.Title)
	if title == "" {
		return 0, errors.New("book title required")
	}
	sortTitle := book.SortTitle
	if sortTitle == "" {
		sortTitle = SortTitle(title)
	}
	timestamp := timestampNow()

	res, err := q.ExecContext(
		ctx,
		`INSERT INTO books (
            title, sort_title, isbn, published, pages, summary, comments,
            cover_path, read, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		title,
		sortTitle,
		nullableString(normalizeISBN(book.ISBN)),
		nullableString(book.Published),
		nullableInt(book.Pages),
		nullableString(book.Summary),
		nullableString(book.Comments),
		nullableString(book.CoverPath),
		boolToInt(book.Read),
		timestamp,
		timestamp,
	)
	if err != nil {
		if strings.Contains(err.Error(), "books.isbn") {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateISBN, book.ISBN)
		}
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return res.LastInsertId()
}

func getBookWhere(ctx context.Context, q querier, where string, args ...any) (*Book, error) {
	row := q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE `+where, args...)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if err := loadBookLinks(ctx, q, book); err != nil {
		return nil, err
	}
	return book, nil
}

func loadBookLinks(ctx context.Context, q querier, book *Book) error {
	rows, err := q.QueryContext(ctx,
		`SELECT a.id, a.name, COALESCE(a.url, '')
         FROM authors a JOIN book_authors ba ON ba.author_id = a.id
         WHERE ba.book_id = ? ORDER BY a.name`, book.ID)
	if err != nil {
		return fmt.Errorf("load authors: %w", err)
	}
	defer rows.Close()
	book.Authors = book.Authors[:0]
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.ID, &a.Name, &a.URL); err != nil {
			return err
		}
		book.Authors = append(book.Authors, a)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	pubRows, err := q.QueryContext(ctx,
		`SELECT p.id, p.name, COALESCE(p.url, '')
         FROM publishers p JOIN book_publishers bp ON bp.publisher_id = p.id
         WHERE bp.book_id = ? ORDER BY p.name`, book.ID)
	if err != nil {
		return fmt.Errorf("load publishers: %w", err)
	}
	defer pubRows.Close()
	book.Publishers = book.Publishers[:0]
	for pubRows.Next() {
		var p Publisher
		if err := pubRows.Scan(&p.ID, &p.Name, &p.URL); err != nil {
			return err
		}
		book.Publishers = append(book.Publishers, p)
	}
	if err := pubRows.Err(); err != nil {
		return err
	}

	tagRows, err := q.QueryContext(ctx,
		`SELECT t.name FROM tags t JOIN book_tags bt ON bt.tag_id = t.id
         WHERE bt.book_id = ? ORDER BY t.name`, book.ID)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer tagRows.Close()
	book.Tags = book.Tags[:0]
	for tagRows.Next() {
		var name string
		if err := tagRows.Scan(&name); err != nil {
			return err
		}
		book.Tags = append(book.Tags, name)
	}
	if err := tagRows.Err(); err != nil {
		return err
	}

	var (
		seriesName string
		position   sql.NullInt64
	)
	err = q.QueryRowContext(ctx,
		`SELECT s.name, sb.position FROM series s
         JOIN series_books sb ON sb.series_id = s.id
         WHERE sb.book_id = ?`, book.ID).Scan(&seriesName, &position)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		book.Series = nil
	case err != nil:
		return fmt.Errorf("load series: %w", err)
	default:
		book.Series = &SeriesRef{Name: seriesName, Position: int(position.Int64)}
	}

	var stars sql.NullInt64
	err = q.QueryRowContext(ctx, `SELECT stars FROM ratings WHERE book_id = ?`, book.ID).Scan(&stars)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		book.Rating = 0
	case err != nil:
		return fmt.Errorf("load rating: %w", err)
	default:
		book.Rating = int(stars.Int64)
	}
	return nil
}

func normalizeISBN(isbn string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(isbn) {
		if (r >= '0' && r <= '9') || r == 'X' || r == 'x' {
			if r == 'x' {
				r = 'X'
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeISBN strips separators and upper-cases the check digit.
func NormalizeISBN(isbn string) string {
	return normalizeISBN(isbn)
}

// CreateBook inserts a book and returns it with links loaded.
func (s *Store) CreateBook(ctx context.Context, book *Book) (*Book, error) {
	ctx = ensureContext(ctx)
	id, err := insertBook(ctx, s.db, book)
	if err != nil {
		return nil, err
	}
	return s.GetBookByID(ctx, id)
}

// CreateBook inserts a book inside the transaction.
func (t *Tx) CreateBook(ctx context.Context, book *Book) (int64, error) {
	return insertBook(ensureContext(ctx), t.tx, book)
}

// GetBookByID fetches a book and its links by identifier.
func (s *Store) GetBookByID(ctx context.Context, id int64) (*Book, error) {
	return getBookWhere(ensureContext(ctx), s.db, "id = ?", id)
}

// GetBookByISBN fetches a book by normalized ISBN.
func (s *Store) GetBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	normalized := normalizeISBN(isbn)
	if normalized == "" {
		return nil, nil
	}
	return getBookWhere(ensureContext(ctx), s.db, "isbn = ?", normalized)
}

// GetBookByISBN fetches a book by normalized ISBN inside the transaction.
func (t *Tx) GetBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	normalized := normalizeISBN(isbn)
	if normalized == "" {
		return nil, nil
	}
	return getBookWhere(ensureContext(ctx), t.tx, "isbn = ?", normalized)
}

// UpdateBook persists scalar field changes to an existing book.
func (s *Store) UpdateBook(ctx context.Context, book *Book) error {
	if book == nil {
		return errors.New("book is nil")
	}
	ctx = ensureContext(ctx)
	book.UpdatedAt = time.Now().UTC()
	sortTitle := book.SortTitle
	if sortTitle == "" {
		sortTitle = SortTitle(book.Title)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE books
         SET title = ?, sort_title = ?, isbn = ?, published = ?, pages = ?,
             summary = ?, comments = ?, cover_path = ?, read = ?, updated_at = ?
         WHERE id = ?`,
		book.Title,
		sortTitle,
		nullableString(normalizeISBN(book.ISBN)),
		nullableString(book.Published),
		nullableInt(book.Pages),
		nullableString(book.Summary),
		nullableString(book.Comments),
		nullableString(book.CoverPath),
		boolToInt(book.Read),
		book.UpdatedAt.Format(time.RFC3339Nano),
		book.ID,
	); err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

// RemoveBook deletes a book; link rows cascade.
func (s *Store) RemoveBook(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ensureContext(ctx), `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete book: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListBooks returns books matching the filter ordered by sort title.
func (s *Store) ListBooks(ctx context.Context, filter BookFilter) ([]*Book, error) {
	ctx = ensureContext(ctx)

	query := `SELECT DISTINCT b.id, b.title, b.sort_title, b.isbn, b.published, b.pages,
        b.summary, b.comments, b.cover_path, b.read, b.created_at, b.updated_at FROM books b`
	var (
		joins  []string
		wheres []string
		args   []any
	)
	if filter.Author != "" {
		joins = append(joins,
			"JOIN book_authors fba ON fba.book_id = b.id",
			"JOIN authors fa ON fa.id = fba.author_id")
		wheres = append(wheres, `fa.name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.Author)+"%")
	}
	if filter.Tag != "" {
		joins = append(joins,
			"JOIN book_tags fbt ON fbt.book_id = b.id",
			"JOIN tags ft ON ft.id = fbt.tag_id")
		wheres = append(wheres, "ft.name = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Tag)))
	}
	if filter.TitleContains != "" {
		wheres = append(wheres, `(b.title LIKE ? ESCAPE '\' OR b.sort_title LIKE ? ESCAPE '\')`)
		needle := "%" + escapeLike(filter.TitleContains) + "%"
		args = append(args, needle, strings.ToLower(needle))
	}
	if filter.Unread {
		wheres = append(wheres, "b.read = 0")
	}
	if len(joins) > 0 {
		query += " " + strings.Join(joins, " ")
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY b.sort_title"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, book := range books {
		if err := loadBookLinks(ctx, s.db, book); err != nil {
			return nil, err
		}
	}
	return books, nil
}

// SearchBooks matches the query against titles and author names.
func (s *Store) SearchBooks(ctx context.Context, query string) ([]*Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	needle := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT b.id, b.title, b.sort_title, b.isbn, b.published, b.pages,
            b.summary, b.comments, b.cover_path, b.read, b.created_at, b.updated_at
         FROM books b
         LEFT JOIN book_authors ba ON ba.book_id = b.id
         LEFT JOIN authors a ON a.id = ba.author_id
         WHERE b.title LIKE ? ESCAPE '\' OR b.sort_title LIKE ? ESCAPE '\' OR a.name LIKE ? ESCAPE '\'
         ORDER BY b.sort_title`,
		needle, strings.ToLower(needle), needle)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, book := range books {
		if err := loadBookLinks(ctx, s.db, book); err != nil {
			return nil, err
		}
	}
	return books, nil
}

// RateBook sets or replaces the star rating for a book.
func (s *Store) RateBook(ctx context.Context, bookID int64, stars int) error {
	if stars < 1 || stars > 5 {
		return fmt.Errorf("stars must be 1-5, got %d", stars)
	}
	return s.execWithoutResultRetry(
		ensureContext(ctx),
		`INSERT INTO ratings (book_id, stars, rated_at) VALUES (?, ?, ?)
         ON CONFLICT(book_id) DO UPDATE SET stars = excluded.stars, rated_at = excluded.rated_at`,
		bookID, stars, timestampNow(),
	)
}

// ClearRating removes the rating for a book.
func (s *Store) ClearRating(ctx context.Context, bookID int64) error {
	return s.execWithoutResultRetry(ensureContext(ctx), `DELETE FROM ratings WHERE book_id = ?`, bookID)
}
