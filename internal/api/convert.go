package api

import (
	"time"

	"mediacat/internal/catalog"
	"mediacat/internal/workflow"
)

// FromBook converts a catalog record to its API representation.
func FromBook(book *catalog.Book) Book {
	if book == nil {
		return Book{}
	}

	dto := Book{
		ID:        book.ID,
		Title:     book.Title,
		SortTitle: book.SortTitle,
		ISBN:      book.ISBN,
		Published: book.Published,
		Pages:     book.Pages,
		Summary:   book.Summary,
		Comments:  book.Comments,
		CoverPath: book.CoverPath,
		Read:      book.Read,
		Rating:    book.Rating,
		Tags:      book.Tags,
	}
	for _, author := range book.Authors {
		dto.Authors = append(dto.Authors, author.Name)
	}
	for _, publisher := range book.Publishers {
		dto.Publishers = append(dto.Publishers, publisher.Name)
	}
	if book.Series != nil {
		dto.Series = &Series{Name: book.Series.Name, Position: book.Series.Position}
	}
	dto.CreatedAt = formatTime(book.CreatedAt)
	dto.UpdatedAt = formatTime(book.UpdatedAt)
	return dto
}

// FromBooks converts a slice of catalog records into API DTOs.
func FromBooks(books []*catalog.Book) []Book {
	if len(books) == 0 {
		return nil
	}
	out := make([]Book, 0, len(books))
	for _, book := range books {
		out = append(out, FromBook(book))
	}
	return out
}

// FromScanJob converts a scan job record to its API representation.
func FromScanJob(job *catalog.ScanJob) ScanJob {
	if job == nil {
		return ScanJob{}
	}
	return ScanJob{
		ID:            job.ID,
		Root:          job.Root,
		Status:        string(job.Status),
		ErrorMessage:  job.ErrorMessage,
		TracksSeen:    job.TracksSeen,
		TracksAdded:   job.TracksAdded,
		TracksUpdated: job.TracksUpdated,
		TracksMissing: job.TracksMissing,
		StartedAt:     formatTimePtr(job.StartedAt),
		FinishedAt:    formatTimePtr(job.FinishedAt),
		LastHeartbeat: formatTimePtr(job.LastHeartbeat),
		CreatedAt:     formatTime(job.CreatedAt),
		UpdatedAt:     formatTime(job.UpdatedAt),
	}
}

// FromScanJobs converts a slice of scan job records into API DTOs.
func FromScanJobs(jobs []*catalog.ScanJob) []ScanJob {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]ScanJob, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromScanJob(job))
	}
	return out
}

// FromTrack converts a track record to its API representation.
func FromTrack(track *catalog.Track) Track {
	if track == nil {
		return Track{}
	}
	return Track{
		ID:        track.ID,
		Path:      track.Path,
		Artist:    track.Artist,
		Album:     track.Album,
		Title:     track.Title,
		TrackNo:   track.TrackNo,
		SizeBytes: track.SizeBytes,
		State:     string(track.State),
		FirstSeen: formatTime(track.FirstSeen),
		LastSeen:  formatTime(track.LastSeen),
	}
}

// FromTracks converts a slice of track records into API DTOs.
func FromTracks(tracks []*catalog.Track) []Track {
	if len(tracks) == 0 {
		return nil
	}
	out := make([]Track, 0, len(tracks))
	for _, track := range tracks {
		out = append(out, FromTrack(track))
	}
	return out
}

// FromStats converts catalog row counts to an API payload.
func FromStats(stats catalog.Stats) CatalogStats {
	return CatalogStats{
		Books:         stats.Books,
		Authors:       stats.Authors,
		Publishers:    stats.Publishers,
		Series:        stats.Series,
		Tags:          stats.Tags,
		Tracks:        stats.Tracks,
		TracksMissing: stats.TracksMissing,
		ScanJobs:      stats.ScanJobs,
		Users:         stats.Users,
	}
}

// FromStatusSummary converts a workflow status summary to an API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running: summary.Running,
		Stats:   FromStats(summary.Stats),
	}
	if summary.LastError != "" {
		status.LastError = summary.LastError
	}
	if summary.LastJob != nil {
		last := FromScanJob(summary.LastJob)
		status.LastJob = &last
	}
	return status
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
