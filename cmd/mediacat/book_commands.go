package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediacat/internal/api"
	"mediacat/internal/catalog"
	"mediacat/internal/config"
	"mediacat/internal/fileutil"
	"mediacat/internal/textutil"
)

func newBookCommand(ctx *commandContext) *cobra.Command {
	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Manage catalog books",
	}

	bookCmd.AddCommand(newBookAddCommand(ctx))
	bookCmd.AddCommand(newBookListCommand(ctx))
	bookCmd.AddCommand(newBookShowCommand(ctx))
	bookCmd.AddCommand(newBookRemoveCommand(ctx))
	bookCmd.AddCommand(newBookRateCommand(ctx))
	bookCmd.AddCommand(newBookTagCommand(ctx))

	return bookCmd
}

func newBookAddCommand(ctx *commandContext) *cobra.Command {
	var isbn string
	var authors []string
	var publisher string
	var pages int
	var published string
	var summary string
	var tags []string
	var series string
	var cover string
	var read bool

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a book to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				coverPath := ""
				if cover != "" {
					var err error
					coverPath, err = storeCover(cfg, cover, args[0])
					if err != nil {
						return err
					}
				}
				book := &catalog.Book{
					Title:     args[0],
					ISBN:      isbn,
					Published: published,
					Pages:     pages,
					Summary:   summary,
					CoverPath: coverPath,
					Read:      read,
				}
				created, err := store.CreateBook(cmd.Context(), book)
				if err != nil {
					return err
				}

				reqCtx := cmd.Context()
				for _, name := range authors {
					author, err := store.EnsureAuthor(reqCtx, name, "")
					if err != nil {
						return err
					}
					if err := store.LinkAuthor(reqCtx, created.ID, author.ID); err != nil {
						return err
					}
				}
				if publisher != "" {
					pub, err := store.EnsurePublisher(reqCtx, publisher, "")
					if err != nil {
						return err
					}
					if err := store.LinkPublisher(reqCtx, created.ID, pub.ID); err != nil {
						return err
					}
				}
				for _, name := range tags {
					tag, err := store.EnsureTag(reqCtx, strings.ToLower(name))
					if err != nil {
						return err
					}
					if err := store.TagBook(reqCtx, created.ID, tag.ID); err != nil {
						return err
					}
				}
				if series != "" {
					name, position := parseSeriesArg(series)
					sr, err := store.EnsureSeries(reqCtx, name)
					if err != nil {
						return err
					}
					if err := store.AssignSeries(reqCtx, sr.ID, created.ID, position); err != nil {
						return err
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Added book %d: %s\n", created.ID, created.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN-10 or ISBN-13")
	cmd.Flags().StringArrayVar(&authors, "author", nil, "Author name (repeatable)")
	cmd.Flags().StringVar(&publisher, "publisher", "", "Publisher name")
	cmd.Flags().IntVar(&pages, "pages", 0, "Page count")
	cmd.Flags().StringVar(&published, "published", "", "Publish date")
	cmd.Flags().StringVar(&summary, "summary", "", "Summary text")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&series, "series", "", `Series, optionally with position ("Name #3")`)
	cmd.Flags().StringVar(&cover, "cover", "", "Path to a cover image to copy into the library")
	cmd.Flags().BoolVar(&read, "read", false, "Mark the book as read")
	return cmd
}

func newBookListCommand(ctx *commandContext) *cobra.Command {
	var author string
	var tag string
	var title string
	var unread bool
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog books",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				filter := catalog.BookFilter{
					TitleContains: title,
					Author:        author,
					Tag:           tag,
					Unread:        unread,
					Limit:         limit,
				}
				books, err := store.ListBooks(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.BookListResponse{Books: api.FromBooks(books)})
				}
				if len(books) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No books found")
					return nil
				}
				rows := make([][]string, 0, len(books))
				for _, book := range books {
					rows = append(rows, []string{
						strconv.FormatInt(book.ID, 10),
						book.Title,
						joinAuthors(book.Authors),
						formatSeries(book.Series),
						yesNo(book.Read),
						formatRating(book.Rating),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Authors", "Series", "Read", "Rating"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&author, "author", "", "Filter by author name")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag")
	cmd.Flags().StringVar(&title, "title", "", "Filter by title substring")
	cmd.Flags().BoolVar(&unread, "unread", false, "Only unread books")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to return")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit books as JSON")
	return cmd
}

func newBookShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				book, err := store.GetBookByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if book == nil {
					return fmt.Errorf("book %d not found", id)
				}
				if jsonOutput {
					return writeJSON(cmd, api.BookResponse{Book: api.FromBook(book)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Title:      %s\n", book.Title)
				if book.ISBN != "" {
					fmt.Fprintf(out, "ISBN:       %s\n", book.ISBN)
				}
				if len(book.Authors) > 0 {
					fmt.Fprintf(out, "Authors:    %s\n", joinAuthors(book.Authors))
				}
				if len(book.Publishers) > 0 {
					names := make([]string, 0, len(book.Publishers))
					for _, pub := range book.Publishers {
						names = append(names, pub.Name)
					}
					fmt.Fprintf(out, "Publishers: %s\n", strings.Join(names, ", "))
				}
				if book.Published != "" {
					fmt.Fprintf(out, "Published:  %s\n", book.Published)
				}
				if book.Pages > 0 {
					fmt.Fprintf(out, "Pages:      %d\n", book.Pages)
				}
				if book.Series != nil {
					fmt.Fprintf(out, "Series:     %s\n", formatSeries(book.Series))
				}
				if len(book.Tags) > 0 {
					fmt.Fprintf(out, "Tags:       %s\n", strings.Join(book.Tags, ", "))
				}
				fmt.Fprintf(out, "Read:       %s\n", yesNo(book.Read))
				if book.Rating > 0 {
					fmt.Fprintf(out, "Rating:     %s\n", formatRating(book.Rating))
				}
				if book.Summary != "" {
					fmt.Fprintf(out, "Summary:    %s\n", book.Summary)
				}
				if book.Comments != "" {
					fmt.Fprintf(out, "Comments:   %s\n", book.Comments)
				}
				if book.CoverPath != "" {
					fmt.Fprintf(out, "Cover:      %s\n", book.CoverPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the book as JSON")
	return cmd
}

func newBookRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a book from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				removed, err := store.RemoveBook(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("book %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed book %d\n", id)
				return nil
			})
		},
	}
}

func newBookRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id> <stars>",
		Short: "Rate a book from 1 to 5 stars (0 clears the rating)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q", args[0])
			}
			stars, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating %q", args[1])
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				if stars == 0 {
					if err := store.ClearRating(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared rating for book %d\n", id)
					return nil
				}
				if err := store.RateBook(cmd.Context(), id, stars); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rated book %d: %s\n", id, formatRating(stars))
				return nil
			})
		},
	}
}

func newBookTagCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <id> <tag>...",
		Short: "Attach tags to a book",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				book, err := store.GetBookByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if book == nil {
					return fmt.Errorf("book %d not found", id)
				}
				for _, name := range args[1:] {
					tag, err := store.EnsureTag(cmd.Context(), strings.ToLower(name))
					if err != nil {
						return err
					}
					if err := store.TagBook(cmd.Context(), id, tag.ID); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tagged book %d with %s\n", id, strings.Join(args[1:], ", "))
				return nil
			})
		},
	}
}

func joinAuthors(authors []catalog.Author) string {
	if len(authors) == 0 {
		return ""
	}
	names := make([]string, 0, len(authors))
	for _, author := range authors {
		names = append(names, author.Name)
	}
	return strings.Join(names, ", ")
}

func formatSeries(ref *catalog.SeriesRef) string {
	if ref == nil {
		return ""
	}
	if ref.Position > 0 {
		return fmt.Sprintf("%s #%d", ref.Name, ref.Position)
	}
	return ref.Name
}

func formatRating(stars int) string {
	if stars <= 0 {
		return ""
	}
	return strings.Repeat("*", stars)
}

// parseSeriesArg splits a trailing "#n" position off a series argument.
func parseSeriesArg(value string) (string, int) {
	value = strings.TrimSpace(value)
	if idx := strings.LastIndex(value, "#"); idx > 0 {
		if position, err := strconv.Atoi(strings.TrimSpace(value[idx+1:])); err == nil {
			return strings.TrimSpace(value[:idx]), position
		}
	}
	return value, 0
}

// storeCover copies a cover image into the library covers directory and
// returns the destination path.
func storeCover(cfg *config.Config, source, title string) (string, error) {
	ext := strings.ToLower(filepath.Ext(source))
	if ext == "" {
		ext = ".jpg"
	}
	coversDir := filepath.Join(cfg.Paths.LibraryDir, "covers")
	if err := os.MkdirAll(coversDir, 0o755); err != nil {
		return "", fmt.Errorf("create covers directory: %w", err)
	}
	dst := filepath.Join(coversDir, textutil.SanitizeFileName(title)+ext)
	if err := fileutil.CopyFileVerified(source, dst); err != nil {
		return "", fmt.Errorf("copy cover: %w", err)
	}
	return dst, nil
}
