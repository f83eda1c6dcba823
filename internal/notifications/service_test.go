package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mediacat/internal/config"
	"mediacat/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCapturingService(t *testing.T, mutate func(*config.Config)) (notifications.Service, *[]captured) {
	t.Helper()
	var requests []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if mutate != nil {
		mutate(&cfg)
	}
	return notifications.NewService(&cfg), &requests
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyScanStarted(context.Background(), "/music"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyScanCompletedFormatsMessage(t *testing.T) {
	svc, requests := newCapturingService(t, nil)

	err := svc.NotifyScanCompleted(context.Background(), "/music", 3, 2, 1, 90*time.Second)
	if err != nil {
		t.Fatalf("NotifyScanCompleted failed: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	req := (*requests)[0]
	if req.title != "Mediacat - Scan Complete" {
		t.Errorf("unexpected title: %q", req.title)
	}
	if !strings.Contains(req.body, "3 added, 2 updated, 1 missing") {
		t.Errorf("unexpected body: %q", req.body)
	}
	if req.tags != "mediacat,scan,completed" {
		t.Errorf("unexpected tags: %q", req.tags)
	}
}

func TestNotifyErrorSetsHighPriority(t *testing.T) {
	svc, requests := newCapturingService(t, nil)

	err := svc.NotifyError(context.Background(), errors.New("boom"), "import")
	if err != nil {
		t.Fatalf("NotifyError failed: %v", err)
	}
	req := (*requests)[0]
	if req.priority != "high" {
		t.Errorf("unexpected priority: %q", req.priority)
	}
	if !strings.Contains(req.body, "Error with import: boom") {
		t.Errorf("unexpected body: %q", req.body)
	}
}

func TestCategoryTogglesSuppressMessages(t *testing.T) {
	svc, requests := newCapturingService(t, func(cfg *config.Config) {
		cfg.Notifications.Scan = false
		cfg.Notifications.Import = false
	})

	if err := svc.NotifyScanStarted(context.Background(), "/music"); err != nil {
		t.Fatalf("NotifyScanStarted failed: %v", err)
	}
	if err := svc.NotifyImportCompleted(context.Background(), "books.csv", 1, 0, 0, true); err != nil {
		t.Fatalf("NotifyImportCompleted failed: %v", err)
	}
	if len(*requests) != 0 {
		t.Fatalf("expected suppressed notifications, got %d requests", len(*requests))
	}

	// Errors remain enabled.
	if err := svc.NotifyError(context.Background(), errors.New("boom"), ""); err != nil {
		t.Fatalf("NotifyError failed: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected error notification to pass, got %d requests", len(*requests))
	}
}

func TestSendReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
