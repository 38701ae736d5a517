package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"satchel/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	base := t.TempDir()
	path := writeConfig(t, `
[paths]
data_dir = "`+filepath.Join(base, "data")+`"
log_dir = "`+filepath.Join(base, "logs")+`"

[delivery]
endpoint = "https://example.com/submit"

[logging]
format = "JSON"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected existing config at %q", resolved)
	}
	if cfg.Delivery.Endpoint != "https://example.com/submit" {
		t.Fatalf("endpoint not parsed: %q", cfg.Delivery.Endpoint)
	}
	if cfg.Delivery.MaxAttempts != 3 {
		t.Fatalf("expected default max attempts 3, got %d", cfg.Delivery.MaxAttempts)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format must be lowercased, got %q", cfg.Logging.Format)
	}
	if cfg.Connectivity.ProbeURL != cfg.Delivery.Endpoint {
		t.Fatalf("probe URL must default to the endpoint, got %q", cfg.Connectivity.ProbeURL)
	}
}

func TestLoadRequiresEndpoint(t *testing.T) {
	t.Setenv("SATCHEL_ENDPOINT", "")
	os.Unsetenv("SATCHEL_ENDPOINT")

	path := writeConfig(t, `
[paths]
data_dir = "`+filepath.Join(t.TempDir(), "data")+`"
`)

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	if !strings.Contains(err.Error(), "delivery.endpoint") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadEndpointFromEnvironment(t *testing.T) {
	t.Setenv("SATCHEL_ENDPOINT", "https://env.example.com/submit")

	path := writeConfig(t, `
[paths]
data_dir = "`+filepath.Join(t.TempDir(), "data")+`"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Delivery.Endpoint != "https://env.example.com/submit" {
		t.Fatalf("env endpoint not applied: %q", cfg.Delivery.Endpoint)
	}
}

func TestLoadRejectsBadEndpoint(t *testing.T) {
	path := writeConfig(t, `
[delivery]
endpoint = "ftp://example.com/submit"
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for non-http endpoint")
	}
}

func TestLoadRejectsBadLoggingFormat(t *testing.T) {
	path := writeConfig(t, `
[delivery]
endpoint = "https://example.com/submit"

[logging]
format = "yaml"
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown logging format")
	}
}

func TestSocketPathUnderDataDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/tmp/satchel-test"
	if got := cfg.SocketPath(); got != "/tmp/satchel-test/satcheld.sock" {
		t.Fatalf("unexpected socket path %q", got)
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when target exists")
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[delivery]") {
		t.Fatal("sample config missing delivery section")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SATCHEL_ENDPOINT", "https://env.example.com/submit")

	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, resolved, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("missing file must report exists=false")
	}
	if resolved != missing {
		t.Fatalf("expected resolved path %q, got %q", missing, resolved)
	}
	if cfg.Sync.Interval != 30 {
		t.Fatalf("expected default sync interval, got %d", cfg.Sync.Interval)
	}
}
