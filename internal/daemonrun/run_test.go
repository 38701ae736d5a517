package daemonrun_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"satchel/internal/daemonrun"
	"satchel/internal/testsupport"
)

func TestRunFailsWhenAnotherInstanceHoldsTheLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	holder := flock.New(filepath.Join(cfg.Paths.DataDir, "satcheld.lock"))
	locked, err := holder.TryLock()
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	if !locked {
		t.Fatal("expected to acquire the daemon lock")
	}
	defer holder.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = daemonrun.Run(ctx, cfg, daemonrun.Options{})
	if err == nil {
		t.Fatal("expected Run to fail while another instance holds the lock")
	}
	if strings.Contains(err.Error(), "operation not permitted") {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	if !strings.Contains(err.Error(), "start daemon") {
		t.Fatalf("expected a start failure, got %v", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := daemonrun.Run(context.Background(), nil, daemonrun.Options{}); err == nil {
		t.Fatal("expected an error for a nil config")
	}
}
