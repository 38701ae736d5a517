package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"satchel/internal/config"
	"satchel/internal/connectivity"
	"satchel/internal/delivery"
	"satchel/internal/logging"
	"satchel/internal/notifications"
	"satchel/internal/queue"
	"satchel/internal/state"
)

// Trigger names the external event that caused a processing pass.
type Trigger string

const (
	TriggerStartup      Trigger = "startup"
	TriggerConnectivity Trigger = "connectivity"
	TriggerInterval     Trigger = "interval"
	TriggerEnqueue      Trigger = "enqueue"
	TriggerManual       Trigger = "manual"
)

// Controller orchestrates delivery of pending entries and keeps the mirror
// and the persistence layer consistent through every transition.
type Controller struct {
	cfg      *config.Config
	store    *queue.Store
	mirror   *state.Mirror
	client   delivery.Client
	signal   connectivity.Signal
	notifier notifications.Service
	logger   *slog.Logger

	maxAttempts int
	interval    time.Duration

	// passMu serializes passes and the mutating queue operations so no two
	// callers ever touch the same entry concurrently. The run loop is the
	// only steady-state caller; direct calls from tests or the daemon queue
	// behind it.
	passMu sync.Mutex

	// kicks coalesces triggers: one pending trigger is enough, extra kicks
	// during a pass are deferred to the slot, never stacked.
	kicks chan Trigger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a controller. The notifier may be nil.
func New(cfg *config.Config, store *queue.Store, mirror *state.Mirror, client delivery.Client, signal connectivity.Signal, notifier notifications.Service, logger *slog.Logger) *Controller {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	interval := time.Duration(cfg.Sync.Interval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	maxAttempts := cfg.Delivery.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Controller{
		cfg:         cfg,
		store:       store,
		mirror:      mirror,
		client:      client,
		signal:      signal,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "syncer"),
		maxAttempts: maxAttempts,
		interval:    interval,
		kicks:       make(chan Trigger, 1),
	}
}

// Recover resets entries orphaned mid-flight by a crash and loads persisted
// metadata into the mirror. Called once before Start; a failure here is a
// failure to initialize the queue and must be surfaced.
func (c *Controller) Recover(ctx context.Context) error {
	reset, err := c.store.ResetStuckSending(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		c.logger.Info("reset in-flight entries from previous run",
			logging.Int64("entries", reset),
			logging.String(logging.FieldEventType, "recovery_reset"),
		)
	}

	entries, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	metas := make([]state.EntryMeta, 0, len(entries))
	for _, entry := range entries {
		metas = append(metas, state.MetaFromEntry(entry))
	}
	c.mirror.Replace(metas)
	c.logger.Info("queue loaded", logging.Int("entries", len(metas)))
	return nil
}

// Start launches the run loop and schedules the startup pass.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("sync controller already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(runCtx)

	c.Kick(TriggerStartup)
	return nil
}

// Stop halts future scheduling and waits for the current pass, if any, to
// finish. Individual delivery attempts are not cancelled mid-flight; the
// delivery client's timeout bounds how long that wait can take.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
}

// Kick requests a processing pass without blocking. If a trigger is already
// parked, the new one is dropped: the parked pass will observe the same
// queue state.
func (c *Controller) Kick(trigger Trigger) {
	select {
	case c.kicks <- trigger:
	default:
	}
}

func (c *Controller) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	events, cancelSub := c.signal.Subscribe()
	defer cancelSub()

	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-c.kicks:
			c.runPass(ctx, trigger)
		case <-ticker.C:
			c.runPass(ctx, TriggerInterval)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Online {
				c.runPass(ctx, TriggerConnectivity)
			}
		}
	}
}

func (c *Controller) runPass(ctx context.Context, trigger Trigger) {
	if err := c.ProcessPending(ctx, trigger); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("processing pass failed",
			logging.String(logging.FieldTrigger, string(trigger)),
			logging.Error(err),
		)
	}
}
