package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediacat/internal/api"
	"mediacat/internal/catalog"
	"mediacat/internal/config"
)

func newTrackCommand(ctx *commandContext) *cobra.Command {
	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "Inspect the music track inventory",
	}

	trackCmd.AddCommand(newTrackListCommand(ctx))

	return trackCmd
}

func newTrackListCommand(ctx *commandContext) *cobra.Command {
	var missing bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				state := catalog.TrackPresent
				if missing {
					state = catalog.TrackMissing
				}
				tracks, err := store.ListTracks(cmd.Context(), state)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.TrackListResponse{Tracks: api.FromTracks(tracks)})
				}
				if len(tracks) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No %s tracks\n", state)
					return nil
				}
				rows := make([][]string, 0, len(tracks))
				for _, track := range tracks {
					no := ""
					if track.TrackNo > 0 {
						no = strconv.Itoa(track.TrackNo)
					}
					rows = append(rows, []string{
						strconv.FormatInt(track.ID, 10),
						track.Artist,
						track.Album,
						no,
						track.Title,
						formatBytes(track.SizeBytes),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Artist", "Album", "#", "Title", "Size"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&missing, "missing", false, "List tracks missing from disk instead of present ones")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit tracks as JSON")
	return cmd
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
