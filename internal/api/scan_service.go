package api

import (
	"context"

	"mediacat/internal/catalog"
)

// ScanStore abstracts scan job and track persistence for API queries.
type ScanStore interface {
	ListScanJobs(ctx context.Context, statuses ...catalog.ScanStatus) ([]*catalog.ScanJob, error)
	GetScanJob(ctx context.Context, id int64) (*catalog.ScanJob, error)
	EnqueueScan(ctx context.Context, root string) (*catalog.ScanJob, error)
	ListTracks(ctx context.Context, state catalog.TrackState) ([]*catalog.Track, error)
}

// ScanService exposes scan job operations returning API DTOs.
type ScanService struct {
	store ScanStore
}

// NewScanService constructs a ScanService around the provided store.
func NewScanService(store ScanStore) *ScanService {
	if store == nil {
		return nil
	}
	return &ScanService{store: store}
}

// List returns scan jobs filtered by status.
func (s *ScanService) List(ctx context.Context, statuses ...catalog.ScanStatus) ([]ScanJob, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.ListScanJobs(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromScanJobs(jobs), nil
}

// Describe fetches a single scan job.
func (s *ScanService) Describe(ctx context.Context, id int64) (*ScanJob, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetScanJob(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	dto := FromScanJob(job)
	return &dto, nil
}

// Enqueue adds a pending scan job for the given root.
func (s *ScanService) Enqueue(ctx context.Context, root string) (*ScanJob, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.EnqueueScan(ctx, root)
	if err != nil || job == nil {
		return nil, err
	}
	dto := FromScanJob(job)
	return &dto, nil
}

// Tracks returns cataloged tracks filtered by state.
func (s *ScanService) Tracks(ctx context.Context, state catalog.TrackState) ([]Track, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	tracks, err := s.store.ListTracks(ctx, state)
	if err != nil {
		return nil, err
	}
	return FromTracks(tracks), nil
}
