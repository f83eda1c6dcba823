package api

import (
	"context"
	"testing"

	"mediacat/internal/catalog"
)

type mockScanStore struct {
	jobs   []*catalog.ScanJob
	tracks []*catalog.Track
	err    error
}

func (m *mockScanStore) ListScanJobs(context.Context, ...catalog.ScanStatus) ([]*catalog.ScanJob, error) {
	return m.jobs, m.err
}

func (m *mockScanStore) GetScanJob(context.Context, int64) (*catalog.ScanJob, error) {
	if len(m.jobs) == 0 {
		return nil, m.err
	}
	return m.jobs[0], m.err
}

func (m *mockScanStore) EnqueueScan(_ context.Context, root string) (*catalog.ScanJob, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &catalog.ScanJob{ID: 99, Root: root, Status: catalog.ScanPending}, nil
}

func (m *mockScanStore) ListTracks(context.Context, catalog.TrackState) ([]*catalog.Track, error) {
	return m.tracks, m.err
}

func TestScanServiceEnqueue(t *testing.T) {
	svc := NewScanService(&mockScanStore{})
	got, err := svc.Enqueue(context.Background(), "/music")
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if got == nil || got.Root != "/music" || got.Status != "pending" {
		t.Fatalf("unexpected job: %+v", got)
	}
}

func TestScanServiceList(t *testing.T) {
	store := &mockScanStore{jobs: []*catalog.ScanJob{{ID: 1, Status: catalog.ScanCompleted, TracksSeen: 5}}}
	svc := NewScanService(store)
	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 1 || got[0].TracksSeen != 5 {
		t.Fatalf("unexpected jobs: %+v", got)
	}
}

func TestScanServiceTracks(t *testing.T) {
	store := &mockScanStore{tracks: []*catalog.Track{{ID: 2, Path: "/music/a.flac", State: catalog.TrackMissing}}}
	svc := NewScanService(store)
	got, err := svc.Tracks(context.Background(), catalog.TrackMissing)
	if err != nil {
		t.Fatalf("Tracks returned error: %v", err)
	}
	if len(got) != 1 || got[0].State != "missing" {
		t.Fatalf("unexpected tracks: %+v", got)
	}
}
