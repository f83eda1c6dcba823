package importer

import (
	"context"
	"strconv"
	"strings"

	"mediacat/internal/catalog"
	"mediacat/internal/services/openlibrary"
)

type contributor struct {
	Name string
	URL  string
}

// merged is a fully combined CSV row and OpenLibrary record ready to insert.
type merged struct {
	Book       catalog.Book
	Authors    []contributor
	Publishers []contributor
	Tags       []string
	Series     string
}

// mergeRow combines a CSV row with an OpenLibrary record. API data wins for
// title, pages, publish date, authors, and publishers, with the CSV as
// fallback. Series, tags, summary, comments, read state, and cover path only
// exist in the CSV.
func mergeRow(row map[string]string, ol *openlibrary.Book) merged {
	m := merged{}

	m.Book.Title = row["title"]
	m.Book.Published = firstNonEmpty(row["published date"], row["published"])
	if pages, err := strconv.Atoi(row["pages"]); err == nil && pages > 0 {
		m.Book.Pages = pages
	}
	for _, name := range splitList(row["authors"]) {
		m.Authors = append(m.Authors, contributor{Name: name})
	}
	if publisher := row["publisher"]; publisher != "" {
		m.Publishers = append(m.Publishers, contributor{Name: publisher})
	}

	if ol != nil {
		if ol.Title != "" {
			m.Book.Title = ol.Title
		}
		if ol.PublishDate != "" {
			m.Book.Published = ol.PublishDate
		}
		if ol.NumberOfPages > 0 {
			m.Book.Pages = ol.NumberOfPages
		}
		if len(ol.Authors) > 0 {
			m.Authors = m.Authors[:0]
			for _, a := range ol.Authors {
				m.Authors = append(m.Authors, contributor{Name: a.Name, URL: a.URL})
			}
		}
		if len(ol.Publishers) > 0 {
			m.Publishers = m.Publishers[:0]
			for _, p := range ol.Publishers {
				m.Publishers = append(m.Publishers, contributor{Name: p.Name})
			}
		}
	}

	m.Book.Summary = row["summary"]
	m.Book.Comments = row["comments"]
	m.Book.CoverPath = row["cover path"]
	m.Book.Read = parseReadFlag(row["read"])
	m.Series = row["series"]
	for _, tag := range splitList(row["categories"]) {
		m.Tags = append(m.Tags, strings.ToLower(tag))
	}
	return m
}

func insertMerged(ctx context.Context, tx *catalog.Tx, m merged) error {
	bookID, err := tx.CreateBook(ctx, &m.Book)
	if err != nil {
		return err
	}
	for _, author := range m.Authors {
		rec, err := tx.EnsureAuthor(ctx, author.Name, author.URL)
		if err != nil {
			return err
		}
		if err := tx.LinkAuthor(ctx, bookID, rec.ID); err != nil {
			return err
		}
	}
	for _, publisher := range m.Publishers {
		rec, err := tx.EnsurePublisher(ctx, publisher.Name, publisher.URL)
		if err != nil {
			return err
		}
		if err := tx.LinkPublisher(ctx, bookID, rec.ID); err != nil {
			return err
		}
	}
	for _, tag := range m.Tags {
		rec, err := tx.EnsureTag(ctx, tag)
		if err != nil {
			return err
		}
		if err := tx.TagBook(ctx, bookID, rec.ID); err != nil {
			return err
		}
	}
	if name, position := parseSeries(m.Series); name != "" {
		rec, err := tx.EnsureSeries(ctx, name)
		if err != nil {
			return err
		}
		if err := tx.AssignSeries(ctx, rec.ID, bookID, position); err != nil {
			return err
		}
	}
	return nil
}

// parseSeries splits trailing "#n" ordinals off series values like
// "Earthsea Cycle #2".
func parseSeries(value string) (string, int) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", 0
	}
	if idx := strings.LastIndex(value, "#"); idx > 0 {
		if position, err := strconv.Atoi(strings.TrimSpace(value[idx+1:])); err == nil {
			return strings.TrimSpace(value[:idx]), position
		}
	}
	return value, 0
}

func parseReadFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "read":
		return true
	default:
		return false
	}
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	split := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(split))
	for _, item := range split {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
