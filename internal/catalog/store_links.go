package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Authors, publishers, series, and tags are deduplicated on insert: the
// Ensure helpers return the existing row when the natural key matches,
// mirroring how bulk imports index previously seen entities.

func ensureAuthor(ctx context.Context, q querier, name, url string) (Author, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" {
		return Author{}, errors.New("author name required")
	}

	var existing Author
	var row *sql.Row
	if url != "" {
		row = q.QueryRowContext(ctx, `SELECT id, name, COALESCE(url, '') FROM authors WHERE url = ?`, url)
	} else {
		row = q.QueryRowContext(ctx, `SELECT id, name, COALESCE(url, '') FROM authors WHERE name = ? AND url IS NULL`, name)
	}
	err := row.Scan(&existing.ID, &existing.Name, &existing.URL)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Author{}, fmt.Errorf("lookup author: %w", err)
	}

	res, err := q.ExecContext(ctx, `INSERT INTO authors (name, url) VALUES (?, ?)`, name, nullableString(url))
	if err != nil {
		return Author{}, fmt.Errorf("insert author: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Author{}, err
	}
	return Author{ID: id, Name: name, URL: url}, nil
}

func ensurePublisher(ctx context.Context, q querier, name, url string) (Publisher, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" {
		return Publisher{}, errors.New("publisher name required")
	}

	var existing Publisher
	var row *sql.Row
	if url != "" {
		row = q.QueryRowContext(ctx, `SELECT id, name, COALESCE(url, '') FROM publishers WHERE url = ?`, url)
	} else {
		row = q.QueryRowContext(ctx, `SELECT id, name, COALESCE(url, '') FROM publishers WHERE name = ? AND url IS NULL`, name)
	}
	err := row.Scan(&existing.ID, &existing.Name, &existing.URL)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Publisher{}, fmt.Errorf("lookup publisher: %w", err)
	}

	res, err := q.ExecContext(ctx, `INSERT INTO publishers (name, url) VALUES (?, ?)`, name, nullableString(url))
	if err != nil {
		return Publisher{}, fmt.Errorf("insert publisher: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Publisher{}, err
	}
	return Publisher{ID: id, Name: name, URL: url}, nil
}

func ensureSeries(ctx context.Context, q querier, name string) (Series, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Series{}, errors.New("series name required")
	}

	var existing Series
	err := q.QueryRowContext(ctx, `SELECT id, name FROM series WHERE name = ?`, name).
		Scan(&existing.ID, &existing.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Series{}, fmt.Errorf("lookup series: %w", err)
	}

	res, err := q.ExecContext(ctx, `INSERT INTO series (name) VALUES (?)`, name)
	if err != nil {
		return Series{}, fmt.Errorf("insert series: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Series{}, err
	}
	return Series{ID: id, Name: name}, nil
}

func ensureTag(ctx context.Context, q querier, name string) (Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Tag{}, errors.New("tag name required")
	}

	var existing Tag
	err := q.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE name = ?`, name).
		Scan(&existing.ID, &existing.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Tag{}, fmt.Errorf("lookup tag: %w", err)
	}

	res, err := q.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?)`, name)
	if err != nil {
		return Tag{}, fmt.Errorf("insert tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Tag{}, err
	}
	return Tag{ID: id, Name: name}, nil
}

func linkAuthor(ctx context.Context, q querier, bookID, authorID int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO book_authors (book_id, author_id) VALUES (?, ?)`, bookID, authorID)
	if err != nil {
		return fmt.Errorf("link author: %w", err)
	}
	return nil
}

func linkPublisher(ctx context.Context, q querier, bookID, publisherID int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO book_publishers (book_id, publisher_id) VALUES (?, ?)`, bookID, publisherID)
	if err != nil {
		return fmt.Errorf("link publisher: %w", err)
	}
	return nil
}

func linkTag(ctx context.Context, q querier, bookID, tagID int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO book_tags (book_id, tag_id) VALUES (?, ?)`, bookID, tagID)
	if err != nil {
		return fmt.Errorf("link tag: %w", err)
	}
	return nil
}

func assignSeries(ctx context.Context, q querier, seriesID, bookID int64, position int) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO series_books (series_id, book_id, position) VALUES (?, ?, ?)
         ON CONFLICT(series_id, book_id) DO UPDATE SET position = excluded.position`,
		seriesID, bookID, nullableInt(position))
	if err != nil {
		return fmt.Errorf("assign series: %w", err)
	}
	return nil
}

// EnsureAuthor returns the author matching url (or name when url is empty),
// inserting it when absent.
func (s *Store) EnsureAuthor(ctx context.Context, name, url string) (Author, error) {
	return ensureAuthor(ensureContext(ctx), s.db, name, url)
}

// EnsureAuthor is the transactional form of Store.EnsureAuthor.
func (t *Tx) EnsureAuthor(ctx context.Context, name, url string) (Author, error) {
	return ensureAuthor(ensureContext(ctx), t.tx, name, url)
}

// EnsurePublisher returns the publisher matching url (or name), inserting it
// when absent.
func (s *Store) EnsurePublisher(ctx context.Context, name, url string) (Publisher, error) {
	return ensurePublisher(ensureContext(ctx), s.db, name, url)
}

// EnsurePublisher is the transactional form of Store.EnsurePublisher.
func (t *Tx) EnsurePublisher(ctx context.Context, name, url string) (Publisher, error) {
	return ensurePublisher(ensureContext(ctx), t.tx, name, url)
}

// EnsureSeries returns the series with the given name, inserting it when absent.
func (s *Store) EnsureSeries(ctx context.Context, name string) (Series, error) {
	return ensureSeries(ensureContext(ctx), s.db, name)
}

// EnsureSeries is the transactional form of Store.EnsureSeries.
func (t *Tx) EnsureSeries(ctx context.Context, name string) (Series, error) {
	return ensureSeries(ensureContext(ctx), t.tx, name)
}

// EnsureTag returns the tag with the given (lower-cased) name, inserting it
// when absent.
func (s *Store) EnsureTag(ctx context.Context, name string) (Tag, error) {
	return ensureTag(ensureContext(ctx), s.db, name)
}

// EnsureTag is the transactional form of Store.EnsureTag.
func (t *Tx) EnsureTag(ctx context.Context, name string) (Tag, error) {
	return ensureTag(ensureContext(ctx), t.tx, name)
}

// LinkAuthor attaches an author to a book. Idempotent.
func (s *Store) LinkAuthor(ctx context.Context, bookID, authorID int64) error {
	return linkAuthor(ensureContext(ctx), s.db, bookID, authorID)
}

// LinkAuthor is the transactional form of Store.LinkAuthor.
func (t *Tx) LinkAuthor(ctx context.Context, bookID, authorID int64) error {
	return linkAuthor(ensureContext(ctx), t.tx, bookID, authorID)
}

// LinkPublisher attaches a publisher to a book. Idempotent.
func (s *Store) LinkPublisher(ctx context.Context, bookID, publisherID int64) error {
	return linkPublisher(ensureContext(ctx), s.db, bookID, publisherID)
}

// LinkPublisher is the transactional form of Store.LinkPublisher.
func (t *Tx) LinkPublisher(ctx context.Context, bookID, publisherID int64) error {
	return linkPublisher(ensureContext(ctx), t.tx, bookID, publisherID)
}

// TagBook attaches a tag to a book. Idempotent.
func (s *Store) TagBook(ctx context.Context, bookID, tagID int64) error {
	return linkTag(ensureContext(ctx), s.db, bookID, tagID)
}

// TagBook is the transactional form of Store.TagBook.
func (t *Tx) TagBook(ctx context.Context, bookID, tagID int64) error {
	return linkTag(ensureContext(ctx), t.tx, bookID, tagID)
}

// AssignSeries places a book in a series at the given position.
func (s *Store) AssignSeries(ctx context.Context, seriesID, bookID int64, position int) error {
	return assignSeries(ensureContext(ctx), s.db, seriesID, bookID, position)
}

// AssignSeries is the transactional form of Store.AssignSeries.
func (t *Tx) AssignSeries(ctx context.Context, seriesID, bookID int64, position int) error {
	return assignSeries(ensureContext(ctx), t.tx, seriesID, bookID, position)
}

// ListAuthors returns all authors ordered by name.
func (s *Store) ListAuthors(ctx context.Context) ([]Author, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, name, COALESCE(url, '') FROM authors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.ID, &a.Name, &a.URL); err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
