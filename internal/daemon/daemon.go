package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"satchel/internal/config"
	"satchel/internal/connectivity"
	"satchel/internal/delivery"
	"satchel/internal/intake"
	"satchel/internal/logging"
	"satchel/internal/notifications"
	"satchel/internal/queue"
	"satchel/internal/state"
	"satchel/internal/syncer"
)

// Daemon wires the store, mirror, connectivity monitor, and sync controller
// together and enforces single-instance execution via a lock file.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	mirror     *state.Mirror
	builder    *intake.Builder
	controller *syncer.Controller
	monitor    *connectivity.Monitor
	signal     connectivity.Signal
	notifier   notifications.Service
	logPath    string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Online       bool
	PID          int
	Endpoint     string
	QueueDBPath  string
	LockFilePath string
	QueueStats   map[queue.Status]int
}

// Options overrides collaborators, primarily for tests. Zero-value fields
// fall back to the production implementations built from the configuration.
type Options struct {
	Client   delivery.Client
	Signal   connectivity.Signal
	Notifier notifications.Service
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	mirror := state.NewMirror()

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	client := opts.Client
	if client == nil {
		client = delivery.NewHTTPClient(cfg)
	}

	var monitor *connectivity.Monitor
	signal := opts.Signal
	if signal == nil {
		monitor = connectivity.NewMonitor(cfg, logger)
		signal = monitor
	}

	controller := syncer.New(cfg, store, mirror, client, signal, notifier, logger)
	builder := intake.NewBuilder(store, mirror, logger)

	lockPath := filepath.Join(cfg.Paths.DataDir, "satcheld.lock")
	return &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		mirror:     mirror,
		builder:    builder,
		controller: controller,
		monitor:    monitor,
		signal:     signal,
		notifier:   notifier,
		logPath:    filepath.Join(cfg.Paths.LogDir, "satchel.log"),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start recovers persisted state, launches the connectivity monitor and the
// sync controller, and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another satchel daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.controller.Recover(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("recover queue: %w", err)
	}
	if d.monitor != nil {
		d.monitor.Start(d.ctx)
	}
	if err := d.controller.Start(d.ctx); err != nil {
		if d.monitor != nil {
			d.monitor.Stop()
		}
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start sync controller: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("satchel daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.controller.Stop()
	if d.monitor != nil {
		d.monitor.Stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("satchel daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Online reports the last observed connectivity state.
func (d *Daemon) Online() bool {
	return d.signal.Online()
}

// Add validates and enqueues a new entry, then kicks the controller so the
// entry is delivered immediately when the endpoint is reachable.
func (d *Daemon) Add(ctx context.Context, req intake.Request) (*queue.Entry, error) {
	entry, err := d.builder.AddEntry(ctx, req)
	if err != nil {
		return nil, err
	}
	d.notifier.NotifyEntryQueued(ctx, entry.ID, len(entry.BlobRefs))
	d.controller.Kick(syncer.TriggerEnqueue)
	return entry, nil
}

// ListQueue returns entries filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Entry, error) {
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetEntry returns a single entry, or nil when the id is unknown.
func (d *Daemon) GetEntry(ctx context.Context, id string) (*queue.Entry, error) {
	return d.store.GetEntry(ctx, id)
}

// Delete removes an entry and its attachments. Unknown ids are a no-op.
func (d *Daemon) Delete(ctx context.Context, id string) error {
	return d.controller.DeleteEntry(ctx, id)
}

// Retry resets errored entries (optionally a subset) back to pending and
// kicks the controller.
func (d *Daemon) Retry(ctx context.Context, ids ...string) (int64, error) {
	return d.controller.Retry(ctx, ids...)
}

// Flush requests an immediate processing pass.
func (d *Daemon) Flush() {
	d.controller.Kick(syncer.TriggerManual)
}

// QueueStats returns per-status entry counts.
func (d *Daemon) QueueStats(ctx context.Context) (map[queue.Status]int, error) {
	return d.store.Stats(ctx)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// SweepOrphanBlobs removes blobs no entry references anymore.
func (d *Daemon) SweepOrphanBlobs(ctx context.Context) (int64, error) {
	removed, err := d.store.SweepOrphanBlobs(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		d.logger.Info("orphan blobs swept", logging.Int64("removed_count", removed))
	}
	return removed, nil
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("queue stats unavailable", logging.Error(err))
		stats = nil
	}
	return Status{
		Running:      d.running.Load(),
		Online:       d.signal.Online(),
		PID:          os.Getpid(),
		Endpoint:     d.cfg.Delivery.Endpoint,
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		QueueStats:   stats,
	}
}
