package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const scanJobColumns = "id, root, status, error_message, tracks_seen, tracks_added, tracks_updated, tracks_missing, started_at, finished_at, last_heartbeat, created_at, updated_at"

func scanScanJob(scanner interface{ Scan(dest ...any) error }) (*ScanJob, error) {
	var (
		id            int64
		root          string
		statusStr     string
		errorMessage  sql.NullString
		tracksSeen    sql.NullInt64
		tracksAdded   sql.NullInt64
		tracksUpdated sql.NullInt64
		tracksMissing sql.NullInt64
		startedRaw    sql.NullString
		finishedRaw   sql.NullString
		heartbeatRaw  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&root,
		&statusStr,
		&errorMessage,
		&tracksSeen,
		&tracksAdded,
		&tracksUpdated,
		&tracksMissing,
		&startedRaw,
		&finishedRaw,
		&heartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &ScanJob{
		ID:            id,
		Root:          root,
		Status:        ScanStatus(statusStr),
		ErrorMessage:  errorMessage.String,
		TracksSeen:    tracksSeen.Int64,
		TracksAdded:   tracksAdded.Int64,
		TracksUpdated: tracksUpdated.Int64,
		TracksMissing: tracksMissing.Int64,
	}
	if startedRaw.Valid {
		if t, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &t
		}
	}
	if finishedRaw.Valid {
		if t, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &t
		}
	}
	if heartbeatRaw.Valid {
		if t, err := parseTimeString(heartbeatRaw.String); err == nil {
			job.LastHeartbeat = &t
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

// EnqueueScan inserts a pending scan job for the given root directory.
func (s *Store) EnqueueScan(ctx context.Context, root string) (*ScanJob, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("scan root required")
	}
	timestamp := timestampNow()

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO scan_jobs (root, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		root,
		ScanPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert scan job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetScanJob(ctx, id)
}

// GetScanJob fetches a scan job by identifier.
func (s *Store) GetScanJob(ctx context.Context, id int64) (*ScanJob, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+scanJobColumns+` FROM scan_jobs WHERE id = ?`, id)
	job, err := scanScanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scan job: %w", err)
	}
	return job, nil
}

// UpdateScanJob persists changes to an existing scan job.
func (s *Store) UpdateScanJob(ctx context.Context, job *ScanJob) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE scan_jobs
         SET root = ?, status = ?, error_message = ?, tracks_seen = ?,
             tracks_added = ?, tracks_updated = ?, tracks_missing = ?,
             started_at = ?, finished_at = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		job.Root,
		job.Status,
		nullableString(job.ErrorMessage),
		job.TracksSeen,
		job.TracksAdded,
		job.TracksUpdated,
		job.TracksMissing,
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		nullableTime(job.LastHeartbeat),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		return fmt.Errorf("update scan job: %w", err)
	}
	return nil
}

// ListScanJobs returns jobs filtered by status set (or all jobs when no
// status is provided), newest first.
func (s *Store) ListScanJobs(ctx context.Context, statuses ...ScanStatus) ([]*ScanJob, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + scanJobColumns + ` FROM scan_jobs`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list scan jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*ScanJob
	for rows.Next() {
		job, err := scanScanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextScanJob returns the oldest job matching any of the provided statuses.
func (s *Store) NextScanJob(ctx context.Context, statuses ...ScanStatus) (*ScanJob, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + scanJobColumns + ` FROM scan_jobs WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ensureContext(ctx), query, args...)
	job, err := scanScanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Heartbeat records liveness for an in-flight scan job.
func (s *Store) Heartbeat(ctx context.Context, jobID int64) error {
	return s.execWithoutResultRetry(
		ctx,
		`UPDATE scan_jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		timestampNow(), timestampNow(), jobID,
	)
}

// ResetStuckScans rolls in-flight jobs back to pending and clears their
// heartbeats. Called on daemon startup to recover from crashes.
func (s *Store) ResetStuckScans(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE scan_jobs
         SET status = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?)`,
		ScanPending, timestampNow(), ScanScanning, ScanReconciling,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck scans: %w", err)
	}
	return res.RowsAffected()
}

// FailStaleScans fails in-flight jobs whose heartbeat is older than the
// timeout. Returns the affected job IDs.
func (s *Store) FailStaleScans(ctx context.Context, timeout time.Duration) ([]int64, error) {
	ctx = ensureContext(ctx)
	cutoff := time.Now().UTC().Add(-timeout).Format(time.RFC3339Nano)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM scan_jobs
         WHERE status IN (?, ?) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		ScanScanning, ScanReconciling, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find stale scans: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := makePlaceholders(len(ids))
	args := []any{ScanFailed, "Heartbeat timeout", timestampNow(), timestampNow()}
	for _, id := range ids {
		args = append(args, id)
	}
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE scan_jobs
         SET status = ?, error_message = ?, finished_at = ?, last_heartbeat = NULL, updated_at = ?
         WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return nil, fmt.Errorf("fail stale scans: %w", err)
	}
	return ids, nil
}

// ClearFinishedScans removes completed and failed jobs.
func (s *Store) ClearFinishedScans(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM scan_jobs WHERE status IN (?, ?)`, ScanCompleted, ScanFailed)
	if err != nil {
		return 0, fmt.Errorf("clear finished scans: %w", err)
	}
	return res.RowsAffected()
}
