package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediacat/internal/api"
	"mediacat/internal/config"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and catalog status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := fetchDaemonStatus(cmd, cfg)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			renderDaemonStatus(cmd, status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")
	return cmd
}

func fetchDaemonStatus(cmd *cobra.Command, cfg *config.Config) (*api.DaemonStatus, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api_bind is not configured; the daemon has no HTTP address")
	}
	url := fmt.Sprintf("http://%s/api/status", bind)

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if token := strings.TrimSpace(cfg.Paths.APIToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("daemon is not reachable at %s; start it with `mediacat serve`", bind)
		}
		return nil, fmt.Errorf("query daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errors.New("daemon rejected the request; check api_token in the configuration")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode daemon status: %w", err)
	}
	return &status, nil
}

func renderDaemonStatus(cmd *cobra.Command, status *api.DaemonStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	runningKind := statusError
	runningText := "stopped"
	if status.Running {
		runningKind = statusOK
		runningText = fmt.Sprintf("pid %d", status.PID)
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, runningText, colorize))

	workflowKind := statusWarn
	workflowText := "idle"
	if status.Workflow.Running {
		workflowKind = statusOK
		workflowText = "processing scans"
	}
	fmt.Fprintln(out, renderStatusLine("Workflow", workflowKind, workflowText, colorize))
	if status.Workflow.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusError, status.Workflow.LastError, colorize))
	}
	if job := status.Workflow.LastJob; job != nil {
		fmt.Fprintln(out, renderStatusLine("Last scan", statusInfo,
			fmt.Sprintf("#%d %s (%s)", job.ID, job.Root, job.Status), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Catalog", colorize) {
		fmt.Fprintln(out, line)
	}
	stats := status.Workflow.Stats
	fmt.Fprintln(out, renderStatusLine("Books", statusInfo, fmt.Sprintf("%d", stats.Books), colorize))
	fmt.Fprintln(out, renderStatusLine("Authors", statusInfo, fmt.Sprintf("%d", stats.Authors), colorize))
	trackKind := statusInfo
	trackText := fmt.Sprintf("%d", stats.Tracks)
	if stats.TracksMissing > 0 {
		trackKind = statusWarn
		trackText = fmt.Sprintf("%d (%d missing)", stats.Tracks, stats.TracksMissing)
	}
	fmt.Fprintln(out, renderStatusLine("Tracks", trackKind, trackText, colorize))
	fmt.Fprintln(out, renderStatusLine("Scan jobs", statusInfo, fmt.Sprintf("%d", stats.ScanJobs), colorize))
	if stats.Users > 0 {
		fmt.Fprintln(out, renderStatusLine("Users", statusInfo, fmt.Sprintf("%d", stats.Users), colorize))
	}
}
