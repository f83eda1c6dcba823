package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediacat/internal/api"
	"mediacat/internal/catalog"
	"mediacat/internal/config"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search books by title or author",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				books, err := store.SearchBooks(cmd.Context(), query)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.BookListResponse{Books: api.FromBooks(books)})
				}
				if len(books) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No matches for %q\n", query)
					return nil
				}
				rows := make([][]string, 0, len(books))
				for _, book := range books {
					rows = append(rows, []string{
						strconv.FormatInt(book.ID, 10),
						book.Title,
						joinAuthors(book.Authors),
						book.ISBN,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Authors", "ISBN"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit matches as JSON")
	return cmd
}
