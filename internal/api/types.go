package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Book describes a catalog entry in a transport-friendly format.
type Book struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	SortTitle  string   `json:"sortTitle"`
	ISBN       string   `json:"isbn,omitempty"`
	Published  string   `json:"published,omitempty"`
	Pages      int      `json:"pages,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Comments   string   `json:"comments,omitempty"`
	CoverPath  string   `json:"coverPath,omitempty"`
	Read       bool     `json:"read"`
	Rating     int      `json:"rating,omitempty"`
	Authors    []string `json:"authors,omitempty"`
	Publishers []string `json:"publishers,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Series     *Series  `json:"series,omitempty"`
	CreatedAt  string   `json:"createdAt,omitempty"`
	UpdatedAt  string   `json:"updatedAt,omitempty"`
}

// Series identifies a book's place in an ordered sequence.
type Series struct {
	Name     string `json:"name"`
	Position int    `json:"position,omitempty"`
}

// ScanJob describes a music scan job in a transport-friendly format.
type ScanJob struct {
	ID            int64  `json:"id"`
	Root          string `json:"root"`
	Status        string `json:"status"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	TracksSeen    int64  `json:"tracksSeen"`
	TracksAdded   int64  `json:"tracksAdded"`
	TracksUpdated int64  `json:"tracksUpdated"`
	TracksMissing int64  `json:"tracksMissing"`
	StartedAt     string `json:"startedAt,omitempty"`
	FinishedAt    string `json:"finishedAt,omitempty"`
	LastHeartbeat string `json:"lastHeartbeat,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// Track describes a cataloged music file.
type Track struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Artist    string `json:"artist,omitempty"`
	Album     string `json:"album,omitempty"`
	Title     string `json:"title,omitempty"`
	TrackNo   int    `json:"trackNo,omitempty"`
	SizeBytes int64  `json:"sizeBytes"`
	State     string `json:"state"`
	FirstSeen string `json:"firstSeen,omitempty"`
	LastSeen  string `json:"lastSeen,omitempty"`
}

// CatalogStats mirrors catalog row counts for status payloads.
type CatalogStats struct {
	Books         int `json:"books"`
	Authors       int `json:"authors"`
	Publishers    int `json:"publishers"`
	Series        int `json:"series"`
	Tags          int `json:"tags"`
	Tracks        int `json:"tracks"`
	TracksMissing int `json:"tracksMissing"`
	ScanJobs      int `json:"scanJobs"`
	Users         int `json:"users"`
}

// WorkflowStatus summarizes scan workflow execution state.
type WorkflowStatus struct {
	Running   bool         `json:"running"`
	LastError string       `json:"lastError,omitempty"`
	LastJob   *ScanJob     `json:"lastJob,omitempty"`
	Stats     CatalogStats `json:"stats"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// BookListResponse wraps a collection of books.
type BookListResponse struct {
	Books []Book `json:"books"`
}

// BookResponse wraps a single book.
type BookResponse struct {
	Book Book `json:"book"`
}

// ScanListResponse wraps a collection of scan jobs.
type ScanListResponse struct {
	Jobs []ScanJob `json:"jobs"`
}

// ScanJobResponse wraps a single scan job.
type ScanJobResponse struct {
	Job ScanJob `json:"job"`
}

// TrackListResponse wraps a collection of tracks.
type TrackListResponse struct {
	Tracks []Track `json:"tracks"`
}

// ScanRequest enqueues a new scan job.
type ScanRequest struct {
	Root string `json:"root,omitempty"`
}

// LoginRequest carries credentials for session creation.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns an issued session token.
type LoginResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}
