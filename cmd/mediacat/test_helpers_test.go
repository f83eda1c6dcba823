package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	musicDir   string
	libraryDir string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		musicDir:   filepath.Join(base, "music"),
		libraryDir: filepath.Join(base, "library"),
	}
	if err := os.MkdirAll(env.musicDir, 0o755); err != nil {
		t.Fatalf("mkdir music: %v", err)
	}
	writeTestConfig(t, env, "")
	return env
}

// writeTestConfig renders a minimal config file; openlibraryURL overrides the
// books API endpoint so import tests never hit the network.
func writeTestConfig(t *testing.T, env *cliTestEnv, openlibraryURL string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
library_dir = %q
music_dir = %q
log_dir = %q
import_cache_dir = %q
api_bind = "127.0.0.1:0"

[importer]
request_delay_ms = 0

[logging]
level = "error"
`,
		env.libraryDir,
		env.musicDir,
		filepath.Join(env.baseDir, "logs"),
		filepath.Join(env.baseDir, "cache"),
	)
	if openlibraryURL != "" {
		content += fmt.Sprintf("\n[openlibrary]\nbase_url = %q\n", openlibraryURL)
	}
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
