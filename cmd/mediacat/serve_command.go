package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediacat/internal/auth"
	"mediacat/internal/catalog"
	"mediacat/internal/daemon"
	"mediacat/internal/logging"
	"mediacat/internal/scanner"
	"mediacat/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the mediacat daemon",
		Long:  "Run the catalog daemon: processes queued music scans and serves the HTTP API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd, ctx)
		},
	}
}

func runDaemonProcess(cmd *cobra.Command, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "*.log",
		Exclude: []string{filepath.Join(cfg.Paths.LogDir, "mediacat.log")},
	})

	pidPath := filepath.Join(cfg.Paths.LogDir, "mediacat.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := catalog.Open(cfg.DatabasePath())
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return err
	}
	defer store.Close()

	sc, err := scanner.New(store, cfg, logger)
	if err != nil {
		return fmt.Errorf("init scanner: %w", err)
	}
	workflowManager := workflow.NewManager(cfg, store, sc, logger)

	var sessions *auth.Service
	if cfg.Auth.Enabled {
		ttl := time.Duration(cfg.Auth.SessionTTLHours) * time.Hour
		sessions, err = auth.New(store, ttl, logger)
		if err != nil {
			return fmt.Errorf("init auth: %w", err)
		}
	}

	d, err := daemon.New(cfg, store, logger, workflowManager, sessions)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("mediacat daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
