package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediacat/internal/catalog"
	"mediacat/internal/logging"
	"mediacat/internal/services"
)

func (m *Manager) runLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextScanJob(ctx, catalog.ScanPending)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
			m.logger.Error("failed to fetch next scan job", logging.Error(err))
			m.sleep(ctx, m.errorRetry)
			continue
		}
		if job == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		if err := m.processJob(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
		}
	}
}

// processJob drives a single job through the scanning and reconciling stages.
func (m *Manager) processJob(ctx context.Context, job *catalog.ScanJob) error {
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	logger := logging.WithContext(jobCtx, m.logger)
	start := time.Now()

	now := time.Now().UTC()
	job.Status = catalog.ScanScanning
	job.StartedAt = &now
	job.ErrorMessage = ""
	if err := m.store.UpdateScanJob(jobCtx, job); err != nil {
		return err
	}
	m.setLastJob(job)
	if err := m.notifier.NotifyScanStarted(jobCtx, job.Root); err != nil {
		logger.Warn("scan started notification failed", logging.Error(err))
	}
	logger.Info("scan started", logging.String("root", job.Root))

	hbCtx, hbCancel := context.WithCancel(jobCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeatLoop(hbCtx, &hbWG, job.ID)

	runErr := m.runStages(jobCtx, job)

	hbCancel()
	hbWG.Wait()

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return runErr
		}
		return m.failJob(jobCtx, job, runErr)
	}

	finished := time.Now().UTC()
	job.Status = catalog.ScanCompleted
	job.FinishedAt = &finished
	job.LastHeartbeat = nil
	if err := m.store.UpdateScanJob(jobCtx, job); err != nil {
		return err
	}
	m.setLastJob(job)

	if err := m.notifier.NotifyScanCompleted(jobCtx, job.Root, job.TracksAdded, job.TracksUpdated, job.TracksMissing, time.Since(start)); err != nil {
		logger.Warn("scan completed notification failed", logging.Error(err))
	}
	logger.Info("scan completed",
		logging.Int64("seen", job.TracksSeen),
		logging.Int64("added", job.TracksAdded),
		logging.Int64("updated", job.TracksUpdated),
		logging.Int64("missing", job.TracksMissing),
		logging.Duration("duration", time.Since(start)))
	return nil
}

func (m *Manager) runStages(ctx context.Context, job *catalog.ScanJob) error {
	walkCtx := services.WithStage(ctx, "scanning")
	files, err := m.scanner.Walk(walkCtx, job.Root)
	if err != nil {
		return err
	}

	job.Status = catalog.ScanReconciling
	if err := m.store.UpdateScanJob(ctx, job); err != nil {
		return err
	}
	m.setLastJob(job)

	reconcileCtx := services.WithStage(ctx, "reconciling")
	progress := func() {
		if err := m.store.Heartbeat(reconcileCtx, job.ID); err != nil {
			logging.WithContext(reconcileCtx, m.logger).Warn("progress heartbeat failed", logging.Error(err))
		}
	}
	counts, err := m.scanner.Reconcile(reconcileCtx, job.Root, files, progress)
	if err != nil {
		return err
	}

	job.TracksSeen = counts.Seen
	job.TracksAdded = counts.Added
	job.TracksUpdated = counts.Updated
	job.TracksMissing = counts.Missing
	return nil
}

func (m *Manager) failJob(ctx context.Context, job *catalog.ScanJob, cause error) error {
	logger := logging.WithContext(ctx, m.logger)
	job.SetFailed(cause.Error())
	finished := time.Now().UTC()
	job.FinishedAt = &finished
	if err := m.store.UpdateScanJob(ctx, job); err != nil {
		logger.Error("failed to persist scan failure", logging.Error(err))
		return err
	}
	m.setLastJob(job)
	logger.Error("scan failed", logging.String("root", job.Root), logging.Error(cause))
	if err := m.notifier.NotifyScanFailed(ctx, job.Root, cause.Error()); err != nil {
		logger.Warn("scan failed notification failed", logging.Error(err))
	}
	return cause
}

func (m *Manager) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, jobID int64) {
	defer wg.Done()
	if m.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.store.Heartbeat(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				m.logger.Warn("heartbeat update failed",
					logging.Int64(logging.FieldJobID, jobID),
					logging.Error(err))
			}
		}
	}
}

// staleMonitor periodically fails jobs whose heartbeats stopped, covering
// crashes of other daemon instances sharing the database.
func (m *Manager) staleMonitor(ctx context.Context) {
	defer m.wg.Done()
	if m.heartbeatTimeout <= 0 {
		return
	}
	interval := m.heartbeatTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			failed, err := m.store.FailStaleScans(ctx, m.heartbeatTimeout)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				m.logger.Warn("stale scan check failed", logging.Error(err))
				continue
			}
			for _, id := range failed {
				m.logger.Warn("failed stale scan job", logging.Int64(logging.FieldJobID, id))
			}
		}
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
