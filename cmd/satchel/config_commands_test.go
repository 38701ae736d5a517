package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path:")
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRequiresEndpoint(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("SATCHEL_ENDPOINT", "")

	// No config file at the default location and no endpoint in the
	// environment, so validation must fail.
	_, _, err := runCLI(t, []string{"config", "validate"}, env.socketPath, "")
	if err == nil {
		t.Fatal("expected validation failure without an endpoint")
	}
	if !strings.Contains(err.Error(), "endpoint") {
		t.Fatalf("error should mention the endpoint: %v", err)
	}
}

func TestConfigInit(t *testing.T) {
	env := setupCLITestEnv(t)

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if !strings.Contains(string(data), "[delivery]") {
		t.Fatalf("sample config missing delivery section:\n%s", data)
	}

	// A second init without --overwrite must refuse to clobber the file.
	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}

	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
}
