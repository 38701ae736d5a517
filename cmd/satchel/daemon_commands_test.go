package main

import (
	"context"
	"testing"

	"satchel/internal/testsupport"
)

func TestStatusCommandShowsQueue(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewEntry(t, env.store, map[string]string{"title": "x"})

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon")
	requireContains(t, out, "Queue Status")
	requireContains(t, out, "Pending")
}

func TestStatusCommandOfflineDetail(t *testing.T) {
	env := setupCLITestEnv(t)

	if err := env.daemon.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running")
	requireContains(t, out, "Offline (entries will queue)")
}

func TestFlushCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"flush"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	requireContains(t, out, "Delivery pass requested")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}
