package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mediacat/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndUsesEnvToken(t *testing.T) {
	t.Setenv("MEDIACAT_API_TOKEN", "env-token")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLibrary := filepath.Join(tempHome, ".local", "share", "mediacat", "library")
	if cfg.Paths.LibraryDir != wantLibrary {
		t.Fatalf("unexpected library dir: got %q want %q", cfg.Paths.LibraryDir, wantLibrary)
	}
	if cfg.Paths.MusicDir != filepath.Join(tempHome, "music") {
		t.Fatalf("unexpected music dir: %q", cfg.Paths.MusicDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7861" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Fatalf("expected API token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.OpenLibrary.BaseURL != config.Default().OpenLibrary.BaseURL {
		t.Fatalf("unexpected openlibrary base url: %q", cfg.OpenLibrary.BaseURL)
	}
	if cfg.Auth.Enabled {
		t.Fatal("expected auth disabled by default")
	}
	if !cfg.Importer.CacheEnabled {
		t.Fatal("expected importer cache enabled by default")
	}
	if cfg.DatabasePath() != filepath.Join(wantLibrary, "catalog.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadParsesFileAndNormalizesScannerExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
library_dir = "` + filepath.Join(dir, "lib") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[scanner]
extensions = ["MP3", ".flac", "flac", "", ".OGG"]

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved existing path %q, got %q (exists=%v)", path, resolved, exists)
	}

	want := []string{".mp3", ".flac", ".ogg"}
	if len(cfg.Scanner.Extensions) != len(want) {
		t.Fatalf("unexpected extensions: %v", cfg.Scanner.Extensions)
	}
	for i, ext := range want {
		if cfg.Scanner.Extensions[i] != ext {
			t.Fatalf("extension %d: got %q want %q", i, cfg.Scanner.Extensions[i], ext)
		}
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadBindAddress(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIBind = "not-a-bind"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "paths.api_bind") {
		t.Fatalf("expected api_bind validation error, got %v", err)
	}
}

func TestValidateRejectsHeartbeatTimeoutBelowInterval(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.HeartbeatInterval = 60
	cfg.Workflow.HeartbeatTimeout = 30
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected heartbeat validation error")
	}
}

func TestCreateSampleWritesParseableTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.OpenLibrary.BaseURL == "" {
		t.Fatal("expected sample to carry openlibrary base url")
	}
}
