package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mediacat/internal/api"
	"mediacat/internal/catalog"
	"mediacat/internal/config"
	"mediacat/internal/logging"
	"mediacat/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the music directory",
	}

	scanCmd.AddCommand(newScanRunCommand(ctx))
	scanCmd.AddCommand(newScanListCommand(ctx))

	return scanCmd
}

func newScanRunCommand(ctx *commandContext) *cobra.Command {
	var root string
	var queueOnly bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan the music directory and reconcile the track inventory",
		Long: "Walk the music directory and reconcile discovered files against the track\n" +
			"inventory. With --queue the scan is only enqueued for a running daemon.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				scanRoot := root
				if scanRoot == "" {
					scanRoot = cfg.Paths.MusicDir
				}

				job, err := store.EnqueueScan(cmd.Context(), scanRoot)
				if err != nil {
					return err
				}
				if queueOnly {
					fmt.Fprintf(cmd.OutOrStdout(), "Queued scan %d for %s\n", job.ID, scanRoot)
					return nil
				}
				return runScanInline(cmd, cfg, store, job)
			})
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Directory to scan (defaults to the configured music dir)")
	cmd.Flags().BoolVar(&queueOnly, "queue", false, "Enqueue the scan for a running daemon instead of running it now")
	return cmd
}

func runScanInline(cmd *cobra.Command, cfg *config.Config, store *catalog.Store, job *catalog.ScanJob) error {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	sc, err := scanner.New(store, cfg, logger)
	if err != nil {
		return fmt.Errorf("init scanner: %w", err)
	}

	reqCtx := cmd.Context()
	started := time.Now().UTC()
	job.Status = catalog.ScanScanning
	job.StartedAt = &started
	if err := store.UpdateScanJob(reqCtx, job); err != nil {
		return err
	}

	fail := func(cause error) error {
		job.SetFailed(cause.Error())
		finished := time.Now().UTC()
		job.FinishedAt = &finished
		_ = store.UpdateScanJob(reqCtx, job)
		return cause
	}

	files, err := sc.Walk(reqCtx, job.Root)
	if err != nil {
		return fail(err)
	}
	job.Status = catalog.ScanReconciling
	job.TracksSeen = int64(len(files))
	if err := store.UpdateScanJob(reqCtx, job); err != nil {
		return err
	}

	counts, err := sc.Reconcile(reqCtx, job.Root, files, nil)
	if err != nil {
		return fail(err)
	}

	finished := time.Now().UTC()
	job.Status = catalog.ScanCompleted
	job.TracksAdded = counts.Added
	job.TracksUpdated = counts.Updated
	job.TracksMissing = counts.Missing
	job.FinishedAt = &finished
	job.LastHeartbeat = nil
	if err := store.UpdateScanJob(reqCtx, job); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Scanned %s in %s\n", job.Root, finished.Sub(started).Round(time.Millisecond))
	fmt.Fprintf(cmd.OutOrStdout(), "Seen: %d  Added: %d  Updated: %d  Missing: %d\n",
		job.TracksSeen, counts.Added, counts.Updated, counts.Missing)
	return nil
}

func newScanListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scan jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				jobs, err := store.ListScanJobs(cmd.Context())
				if err != nil {
					return err
				}
				dtos := api.SortScanJobsNewestFirst(api.FromScanJobs(jobs))
				if jsonOutput {
					return writeJSON(cmd, api.ScanListResponse{Jobs: dtos})
				}
				if len(dtos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No scan jobs")
					return nil
				}
				rows := make([][]string, 0, len(dtos))
				for _, job := range dtos {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.Root,
						job.Status,
						strconv.FormatInt(job.TracksSeen, 10),
						strconv.FormatInt(job.TracksAdded, 10),
						strconv.FormatInt(job.TracksMissing, 10),
						job.CreatedAt,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Root", "Status", "Seen", "Added", "Missing", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit scan jobs as JSON")
	return cmd
}
