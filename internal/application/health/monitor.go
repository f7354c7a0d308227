package health

import (
	"context"
	"sync"
	"time"

	"github.com/aescanero/layoutcounter/pkg/ports"
	"go.uber.org/zap"
)

// Status represents the health of the counter store
type Status struct {
	Healthy   bool      `json:"healthy"`
	LastError string    `json:"last_error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Listener is notified when the health state flips
type Listener func(healthy bool)

// Monitor monitors store health
type Monitor struct {
	store    ports.CounterStore
	metrics  ports.MetricsCollector
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	// notifyMu orders status commits with listener calls across concurrent checks
	notifyMu sync.Mutex

	mu        sync.RWMutex
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	status    Status
	checked   bool
	listeners []Listener
}

// NewMonitor creates a new health monitor
func NewMonitor(store ports.CounterStore, metrics ports.MetricsCollector, interval time.Duration, logger *zap.Logger) *Monitor {
	timeout := interval / 2
	if timeout <= 0 || timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &Monitor{
		store:    store,
		metrics:  metrics,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// OnChange registers a listener. It is called with the current state on the
// first check and on every transition after that. Listeners run in commit
// order and must not call Check.
func (m *Monitor) OnChange(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, l)
}

// Start runs one check immediately and then checks on every interval
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	m.Check(context.Background())
	go m.run()
}

// Stop stops the monitor and waits for the loop to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// run is the main health monitoring loop
func (m *Monitor) run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Check(context.Background())
		}
	}
}

// Check pings the store now and returns the resulting status
func (m *Monitor) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.store.Ping(ctx)
	status := Status{Healthy: err == nil, CheckedAt: time.Now().UTC()}
	if err != nil {
		status.LastError = err.Error()
	}

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	changed := !m.checked || m.status.Healthy != status.Healthy
	m.status = status
	m.checked = true
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.metrics.SetStoreUp(status.Healthy)

	if changed {
		if status.Healthy {
			m.logger.Info("counter store reachable")
		} else {
			m.logger.Warn("counter store unreachable", zap.Error(err))
		}
		for _, l := range listeners {
			l(status.Healthy)
		}
	}

	return status
}

// GetStatus returns the last recorded status
func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.status
}

// IsHealthy returns true if the last check succeeded
func (m *Monitor) IsHealthy() bool {
	return m.GetStatus().Healthy
}
