package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mediacat/internal/catalog"
	"mediacat/internal/config"
	"mediacat/internal/importer"
	"mediacat/internal/isbncache"
	"mediacat/internal/logging"
	"mediacat/internal/notifications"
	"mediacat/internal/services/openlibrary"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var commit bool
	var noCache bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "import <csv>",
		Short: "Bulk import books from a CSV file",
		Long: "Import book rows from a CSV file, enriching each ISBN via the OpenLibrary API.\n" +
			"Runs as a dry run by default; pass --commit to persist the imported rows.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}

				client, err := openlibrary.New(cfg.OpenLibrary.BaseURL,
					openlibrary.WithTimeout(time.Duration(cfg.OpenLibrary.TimeoutSeconds)*time.Second))
				if err != nil {
					return fmt.Errorf("init openlibrary client: %w", err)
				}

				cachePath := ""
				if cfg.Importer.CacheEnabled && !noCache {
					cachePath = filepath.Join(cfg.Paths.ImportCacheDir, "openlibrary.json")
				}
				cache := isbncache.NewCache(cachePath, logger)

				imp, err := importer.New(store, client, cache, logger,
					importer.WithRequestDelay(time.Duration(cfg.Importer.RequestDelayMS)*time.Millisecond))
				if err != nil {
					return fmt.Errorf("init importer: %w", err)
				}

				result, err := imp.Run(cmd.Context(), args[0], commit)
				if err != nil {
					return err
				}

				notifier := notifications.NewService(cfg)
				if notifyErr := notifier.NotifyImportCompleted(cmd.Context(), filepath.Base(args[0]),
					result.Imported, result.Skipped, result.Failed, result.Committed); notifyErr != nil {
					logger.Warn("import notification failed", logging.Error(notifyErr))
				}

				if jsonOutput {
					return writeJSON(cmd, result)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Rows:     %d\n", result.Total)
				fmt.Fprintf(out, "Imported: %d\n", result.Imported)
				fmt.Fprintf(out, "Skipped:  %d\n", result.Skipped)
				fmt.Fprintf(out, "Failed:   %d\n", result.Failed)
				for _, rowErr := range result.Errors {
					if rowErr.ISBN != "" {
						fmt.Fprintf(out, "  line %d (ISBN %s): %s\n", rowErr.Line, rowErr.ISBN, rowErr.Message)
					} else {
						fmt.Fprintf(out, "  line %d: %s\n", rowErr.Line, rowErr.Message)
					}
				}
				if result.Committed {
					fmt.Fprintln(out, "Changes committed")
				} else {
					fmt.Fprintln(out, "Dry run: no changes were saved (pass --commit to persist)")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&commit, "commit", false, "Persist imported rows instead of rolling back")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the on-disk OpenLibrary response cache")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the import result as JSON")
	return cmd
}
