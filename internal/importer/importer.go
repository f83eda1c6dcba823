package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"mediacat/internal/catalog"
	"mediacat/internal/isbncache"
	"mediacat/internal/logging"
	"mediacat/internal/services"
	"mediacat/internal/services/openlibrary"
)

// RowError records a single CSV row that could not be imported.
type RowError struct {
	Line    int
	ISBN    string
	Message string
}

// Result summarizes a completed import run.
type Result struct {
	Total     int
	Imported  int
	Skipped   int
	Failed    int
	Committed bool
	Errors    []RowError
}

// Importer loads books from a CSV export into the catalog, enriching each
// row with OpenLibrary metadata.
type Importer struct {
	store        *catalog.Store
	lookup       openlibrary.Lookuper
	cache        *isbncache.Cache
	logger       *slog.Logger
	requestDelay time.Duration
}

// Option configures an Importer.
type Option func(*Importer)

// WithRequestDelay sets the pause between OpenLibrary API requests.
func WithRequestDelay(delay time.Duration) Option {
	return func(i *Importer) {
		if delay >= 0 {
			i.requestDelay = delay
		}
	}
}

// New creates an Importer. The cache may be inert (empty path) but must not
// be nil.
func New(store *catalog.Store, lookup openlibrary.Lookuper, cache *isbncache.Cache, logger *slog.Logger, opts ...Option) (*Importer, error) {
	if store == nil {
		return nil, errors.New("store required")
	}
	if lookup == nil {
		return nil, errors.New("openlibrary lookup required")
	}
	if cache == nil {
		return nil, errors.New("isbn cache required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	imp := &Importer{
		store:        store,
		lookup:       lookup,
		cache:        cache,
		logger:       logging.NewComponentLogger(logger, "importer"),
		requestDelay: time.Second,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp, nil
}

// Run imports books from the CSV file at path. All rows are processed in a
// single transaction; unless commit is true the transaction is rolled back,
// making a plain run a dry run.
func (i *Importer) Run(ctx context.Context, path string, commit bool) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "importer", "open csv", "", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "importer", "read csv header", "", err)
	}
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	if _, ok := columns["isbn"]; !ok {
		return nil, services.Wrap(services.ErrValidation, "importer", "read csv header", "required column ISBN not found", nil)
	}

	tx, err := i.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &Result{}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		result.Total++

		row := rowValues(columns, record)
		isbn := catalog.NormalizeISBN(row["isbn"])
		if isbn == "" {
			result.Skipped++
			i.logger.Debug("skipping row with missing isbn", logging.Int("line", line))
			continue
		}

		if existing, err := tx.GetBookByISBN(ctx, isbn); err != nil {
			return nil, err
		} else if existing != nil {
			result.Skipped++
			i.logger.Debug("skipping duplicate isbn",
				logging.Int("line", line),
				logging.String("isbn", isbn),
				logging.String("title", existing.Title))
			continue
		}

		olBook, err := i.fetchBookDetails(ctx, isbn)
		if err != nil && !errors.Is(err, openlibrary.ErrNotFound) {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Line: line, ISBN: isbn, Message: err.Error()})
			i.logger.Warn("openlibrary lookup failed",
				logging.Int("line", line),
				logging.String("isbn", isbn),
				logging.Error(err))
			continue
		}

		merged := mergeRow(row, olBook)
		merged.Book.ISBN = isbn
		if strings.TrimSpace(merged.Book.Title) == "" {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Line: line, ISBN: isbn, Message: "no title in CSV or OpenLibrary"})
			continue
		}

		if err := insertMerged(ctx, tx, merged); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Line: line, ISBN: isbn, Message: err.Error()})
			continue
		}
		result.Imported++
		i.logger.Info("imported book",
			logging.Int("line", line),
			logging.String("isbn", isbn),
			logging.String("title", merged.Book.Title))
	}

	if commit {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit import: %w", err)
		}
		result.Committed = true
	} else {
		if err := tx.Rollback(); err != nil {
			return nil, fmt.Errorf("rollback import: %w", err)
		}
		i.logger.Info("dry run, rolled back import transaction",
			logging.Int("would_import", result.Imported))
	}
	return result, nil
}

// fetchBookDetails consults the cache before touching the API. Negative
// results are cached so unknown ISBNs cost one request total.
func (i *Importer) fetchBookDetails(ctx context.Context, isbn string) (*openlibrary.Book, error) {
	if entry, ok := i.cache.Lookup(isbn); ok {
		if entry.NotFound {
			return nil, fmt.Errorf("%w: %s (cached)", openlibrary.ErrNotFound, isbn)
		}
		return entry.Book, nil
	}

	if i.requestDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(i.requestDelay):
		}
	}

	book, err := i.lookup.Lookup(ctx, isbn)
	if errors.Is(err, openlibrary.ErrNotFound) {
		if cacheErr := i.cache.Store(isbncache.Entry{ISBN: isbn, NotFound: true}); cacheErr != nil {
			i.logger.Warn("failed to cache negative lookup", logging.Error(cacheErr))
		}
		return nil, err
	}
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "importer", "openlibrary lookup", isbn, err)
	}
	if cacheErr := i.cache.Store(isbncache.Entry{ISBN: isbn, Book: book}); cacheErr != nil {
		i.logger.Warn("failed to cache lookup", logging.Error(cacheErr))
	}
	return book, nil
}

func rowValues(columns map[string]int, record []string) map[string]string {
	row := make(map[string]string, len(columns))
	for name, idx := range columns {
		if idx < len(record) {
			row[name] = strings.TrimSpace(record[idx])
		} else {
			row[name] = ""
		}
	}
	return row
}
