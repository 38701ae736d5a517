package connectivity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"satchel/internal/config"
	"satchel/internal/logging"
)

// Event reports an online/offline transition. Events are emitted only when
// the observed state changes, never on every probe.
type Event struct {
	Online bool
	At     time.Time
}

// Signal answers the only question the sync controller asks the network:
// is the remote endpoint reachable right now, and tell me when that changes.
type Signal interface {
	Online() bool
	Subscribe() (<-chan Event, func())
}

type prober interface {
	Probe(ctx context.Context) bool
}

// Monitor periodically probes a URL and tracks reachability.
type Monitor struct {
	logger   *slog.Logger
	prober   prober
	interval time.Duration

	mu          sync.Mutex
	online      bool
	subscribers map[int]chan Event
	nextSubID   int
	running     bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor builds a monitor probing the configured URL.
func NewMonitor(cfg *config.Config, logger *slog.Logger) *Monitor {
	interval := time.Duration(cfg.Connectivity.ProbeInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	timeout := time.Duration(cfg.Connectivity.ProbeTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		logger:   logging.NewComponentLogger(logger, "connectivity"),
		prober:   &httpProber{url: cfg.Connectivity.ProbeURL, client: &http.Client{Timeout: timeout}},
		interval: interval,
	}
}

// Start launches the probe loop. The first probe runs immediately so the
// controller has a real answer before its startup pass.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	m.setOnline(m.prober.Probe(runCtx))

	m.wg.Add(1)
	go m.run(runCtx)
}

// Stop terminates the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Online reports the last observed reachability state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers for transition events. The returned cancel func must
// be called to release the subscription. Slow consumers drop events rather
// than block the probe loop.
func (m *Monitor) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 4)
	m.mu.Lock()
	if m.subscribers == nil {
		m.subscribers = make(map[int]chan Event)
	}
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = ch
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.setOnline(m.prober.Probe(ctx))
		}
	}
}

func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	event := Event{Online: online, At: time.Now().UTC()}
	subscribers := make([]chan Event, 0, len(m.subscribers))
	for _, ch := range m.subscribers {
		subscribers = append(subscribers, ch)
	}
	m.mu.Unlock()

	if online {
		m.logger.Info("connectivity restored", logging.String(logging.FieldEventType, "online"))
	} else {
		m.logger.Warn("connectivity lost", logging.String(logging.FieldEventType, "offline"))
	}
	for _, ch := range subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

type httpProber struct {
	url    string
	client *http.Client
}

func (p *httpProber) Probe(ctx context.Context) bool {
	if p.url == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	// Any HTTP response proves the endpoint is reachable; the status code
	// is the delivery client's concern.
	return true
}
