package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"mediacat/internal/api"
	"mediacat/internal/catalog"
	"mediacat/internal/config"
	"mediacat/internal/logging"
)

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	bookSvc  *api.BookService
	scanSvc  *api.ScanService
	sessions authBackend

	listener net.Listener
	server   *http.Server
}

type authBackend interface {
	Login(ctx context.Context, username, password string) (string, *catalog.User, error)
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logger,
		daemon:  d,
		bookSvc: api.NewBookService(d.store),
		scanSvc: api.NewScanService(d.store),
	}
	if d.sessions != nil {
		srv.sessions = d.sessions
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	protect := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware(token, d.sessions, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", protect(srv.handleStatus))
	mux.HandleFunc("/api/books", protect(srv.handleBooks))
	mux.HandleFunc("/api/books/", protect(srv.handleBook))
	mux.HandleFunc("/api/search", protect(srv.handleSearch))
	mux.HandleFunc("/api/scans", protect(srv.handleScans))
	mux.HandleFunc("/api/scans/", protect(srv.handleScan))
	mux.HandleFunc("/api/tracks", protect(srv.handleTracks))
	mux.HandleFunc("/api/login", srv.handleLogin)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.bookSvc == nil {
		s.writeJSON(w, http.StatusOK, api.BookListResponse{Books: nil})
		return
	}
	query := r.URL.Query()
	filter := catalog.BookFilter{
		TitleContains: strings.TrimSpace(query.Get("title")),
		Author:        strings.TrimSpace(query.Get("author")),
		Tag:           strings.TrimSpace(query.Get("tag")),
		Unread:        query.Get("unread") == "1" || strings.EqualFold(query.Get("unread"), "true"),
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	books, err := s.bookSvc.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.BookListResponse{Books: books})
}

func (s *apiServer) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/books/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "book not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	book, err := s.bookSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if book == nil {
		s.writeError(w, http.StatusNotFound, "book not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.BookResponse{Book: *book})
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	books, err := s.bookSvc.Search(r.Context(), query)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.BookListResponse{Books: books})
}

func (s *apiServer) handleScans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var statuses []catalog.ScanStatus
		for _, value := range r.URL.Query()["status"] {
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				continue
			}
			status, ok := catalog.ParseScanStatus(trimmed)
			if !ok {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown scan status %q", trimmed))
				return
			}
			statuses = append(statuses, status)
		}
		jobs, err := s.scanSvc.List(r.Context(), statuses...)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.ScanListResponse{Jobs: api.SortScanJobsNewestFirst(jobs)})
	case http.MethodPost:
		var req api.ScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, "invalid scan payload")
			return
		}
		job, err := s.daemon.EnqueueScan(r.Context(), req.Root)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, api.ScanJobResponse{Job: api.FromScanJob(job)})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/scans/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "scan job not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid scan job id")
		return
	}
	job, err := s.scanSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "scan job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.ScanJobResponse{Job: *job})
}

func (s *apiServer) handleTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	state := catalog.TrackPresent
	if value := strings.TrimSpace(r.URL.Query().Get("state")); value != "" {
		switch catalog.TrackState(value) {
		case catalog.TrackPresent:
			state = catalog.TrackPresent
		case catalog.TrackMissing:
			state = catalog.TrackMissing
		default:
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown track state %q", value))
			return
		}
	}
	tracks, err := s.scanSvc.Tracks(r.Context(), state)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.TrackListResponse{Tracks: tracks})
}

func (s *apiServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.sessions == nil {
		s.writeError(w, http.StatusNotFound, "authentication not enabled")
		return
	}
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid login payload")
		return
	}
	token, user, err := s.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.writeJSON(w, http.StatusOK, api.LoginResponse{
		Token:    token,
		Username: user.Username,
		Role:     string(user.Role),
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
