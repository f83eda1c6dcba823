package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mediacat/internal/catalog"
	"mediacat/internal/config"
	"mediacat/internal/logging"
	"mediacat/internal/notifications"
	"mediacat/internal/scanner"
)

// Manager coordinates scan job processing for the daemon.
type Manager struct {
	cfg      *config.Config
	store    *catalog.Store
	scanner  *scanner.Scanner
	logger   *slog.Logger
	notifier notifications.Service

	pollInterval      time.Duration
	errorRetry        time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *catalog.ScanJob
}

// NewManager constructs a workflow manager with the default notifier.
func NewManager(cfg *config.Config, store *catalog.Store, sc *scanner.Scanner, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, sc, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *catalog.Store, sc *scanner.Scanner, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:               cfg,
		store:             store,
		scanner:           sc,
		logger:            logging.NewComponentLogger(logger, "workflow"),
		notifier:          notifier,
		pollInterval:      time.Duration(cfg.Workflow.JobPollInterval) * time.Second,
		errorRetry:        time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeatInterval: time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
		heartbeatTimeout:  time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second,
	}
}

// Start begins background processing. Jobs left mid-scan by a previous run
// are reset to pending before polling begins.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(2)
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckScans(runCtx); err != nil {
		m.logger.Warn("failed to reset stuck scans", logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("reset stuck scans to pending", logging.Int64("count", reset))
	}

	go m.runLoop(runCtx)
	go m.staleMonitor(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether background processing is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *catalog.ScanJob) {
	m.mu.Lock()
	if job != nil {
		jobCopy := *job
		m.lastJob = &jobCopy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
