package catalog

import (
	"strings"
	"time"
)

// ScanStatus represents the lifecycle of a scan job.
type ScanStatus string

const (
	ScanPending     ScanStatus = "pending"
	ScanScanning    ScanStatus = "scanning"
	ScanReconciling ScanStatus = "reconciling"
	ScanCompleted   ScanStatus = "completed"
	ScanFailed      ScanStatus = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allScanStatuses = []ScanStatus{
	ScanPending,
	ScanScanning,
	ScanReconciling,
	ScanCompleted,
	ScanFailed,
}

var scanStatusSet = func() map[ScanStatus]struct{} {
	set := make(map[ScanStatus]struct{}, len(allScanStatuses))
	for _, status := range allScanStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingScanStatuses = map[ScanStatus]struct{}{
	ScanScanning:    {},
	ScanReconciling: {},
}

// AllScanStatuses returns the ordered list of known statuses.
func AllScanStatuses() []ScanStatus {
	cp := make([]ScanStatus, len(allScanStatuses))
	copy(cp, allScanStatuses)
	return cp
}

// ParseScanStatus converts a string into a known ScanStatus.
func ParseScanStatus(value string) (ScanStatus, bool) {
	normalized := ScanStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := scanStatusSet[normalized]
	return normalized, ok
}

// IsProcessingScanStatus reports whether a status reflects an in-flight scan.
func IsProcessingScanStatus(status ScanStatus) bool {
	_, ok := processingScanStatuses[status]
	return ok
}

// ScanJob represents a queued or completed scan of the music directory.
type ScanJob struct {
	ID            int64
	Root          string
	Status        ScanStatus
	ErrorMessage  string
	TracksSeen    int64
	TracksAdded   int64
	TracksUpdated int64
	TracksMissing int64
	StartedAt     *time.Time
	FinishedAt    *time.Time
	LastHeartbeat *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsProcessing returns true when the job reflects an in-flight scan.
func (j ScanJob) IsProcessing() bool {
	return IsProcessingScanStatus(j.Status)
}

// IsTerminal reports whether the job has finished, successfully or not.
func (j ScanJob) IsTerminal() bool {
	return j.Status == ScanCompleted || j.Status == ScanFailed
}

// SetFailed marks the job as failed with the given error message and clears
// the heartbeat.
func (j *ScanJob) SetFailed(message string) {
	j.Status = ScanFailed
	j.ErrorMessage = message
	j.LastHeartbeat = nil
}

// TrackState describes whether a cataloged track is still on disk.
type TrackState string

const (
	TrackPresent TrackState = "present"
	TrackMissing TrackState = "missing"
)

// Track represents a music file known to the catalog.
type Track struct {
	ID          int64
	Path        string
	Artist      string
	Album       string
	Title       string
	TrackNo     int
	Fingerprint string
	SizeBytes   int64
	ModTime     time.Time
	State       TrackState
	FirstSeen   time.Time
	LastSeen    time.Time
}

// Author is a book author deduplicated on its OpenLibrary URL when known.
type Author struct {
	ID   int64
	Name string
	URL  string
}

// Publisher is a book publisher deduplicated on its URL when known.
type Publisher struct {
	ID   int64
	Name string
	URL  string
}

// Series groups books into an ordered sequence.
type Series struct {
	ID   int64
	Name string
}

// SeriesRef attaches a series and position to a loaded book.
type SeriesRef struct {
	Name     string
	Position int
}

// Tag is a free-form label attached to books.
type Tag struct {
	ID   int64
	Name string
}

// Book represents a catalog entry together with its linked rows.
type Book struct {
	ID         int64
	Title      string
	SortTitle  string
	ISBN       string
	Published  string
	Pages      int
	Summary    string
	Comments   string
	CoverPath  string
	Read       bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Authors    []Author
	Publishers []Publisher
	Tags       []string
	Series     *SeriesRef
	Rating     int // 0 when unrated
}

// BookFilter narrows ListBooks results. Zero values mean "no constraint".
type BookFilter struct {
	TitleContains string
	Author        string
	Tag           string
	Unread        bool
	Limit         int
}

// Role is the authorization level of a user account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ParseRole converts a string into a known Role.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleEditor:
		return RoleEditor, true
	case RoleViewer:
		return RoleViewer, true
	default:
		return "", false
	}
}

// AllowsWrite reports whether the role may modify catalog data.
func (r Role) AllowsWrite() bool {
	return r == RoleAdmin || r == RoleEditor
}

// User is a catalog account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Session is an issued login token, stored hashed.
type Session struct {
	TokenHash string
	UserID    int64
	ExpiresAt time.Time
}

// Stats aggregates catalog row counts for status output.
type Stats struct {
	Books         int
	Authors       int
	Publishers    int
	Series        int
	Tags          int
	Tracks        int
	TracksMissing int
	ScanJobs      int
	Users         int
}
