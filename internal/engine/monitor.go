package engine

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthTarget is the slice of the session the monitor drives. *Session
// satisfies it; tests substitute a fake.
type HealthTarget interface {
	Status() Status
	EnsureHealthy() (restarted bool, err error)
}

// Monitor periodically probes a running session and restarts the engine when
// it stops answering. Probes are skipped while the session is not running,
// so the monitor never starts an engine the caller has not started.
type Monitor struct {
	target        HealthTarget
	checkInterval time.Duration

	mu          sync.RWMutex
	lastCheckAt time.Time
	lastHealthy bool
	restarts    int

	stopChan chan struct{}
	wg       sync.WaitGroup
	log      *logrus.Entry
}

// MonitorStatus is a read-only snapshot of the monitor.
type MonitorStatus struct {
	LastCheckAt time.Time `json:"last_check_at"`
	LastHealthy bool      `json:"last_healthy"`
	Restarts    int       `json:"restarts"`
}

// NewMonitor creates a monitor for the given session. It does not run until
// Start.
func NewMonitor(target HealthTarget, checkInterval time.Duration) *Monitor {
	if checkInterval <= 0 {
		checkInterval = 60 * time.Second
	}
	return &Monitor{
		target:        target,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
		log:           logrus.WithField("component", "engine.monitor"),
	}
}

// Start begins the periodic health checks.
func (m *Monitor) Start() {
	m.log.WithField("interval", m.checkInterval).Info("starting session health monitor")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stopChan:
				m.log.Info("stopping session health monitor")
				return
			}
		}
	}()
}

// Stop gracefully stops the monitor.
func (m *Monitor) Stop() {
	close(m.stopChan)
	m.wg.Wait()
}

// Snapshot returns the monitor's current state.
func (m *Monitor) Snapshot() MonitorStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MonitorStatus{
		LastCheckAt: m.lastCheckAt,
		LastHealthy: m.lastHealthy,
		Restarts:    m.restarts,
	}
}

func (m *Monitor) check() {
	if !m.target.Status().Running {
		return
	}

	restarted, err := m.target.EnsureHealthy()
	healthy := err == nil

	m.mu.Lock()
	m.lastCheckAt = time.Now()
	m.lastHealthy = healthy
	if restarted {
		m.restarts++
	}
	m.mu.Unlock()

	switch {
	case err != nil:
		m.log.WithError(err).Warn("engine unresponsive and restart failed")
	case restarted:
		m.log.Info("engine was unresponsive and has been restarted")
	}
}
