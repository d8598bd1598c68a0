package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeHealthTarget struct {
	mu        sync.Mutex
	running   bool
	healthy   bool
	ensures   int
	failError error
}

func (f *fakeHealthTarget) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Status{Running: f.running}
}

func (f *fakeHealthTarget) EnsureHealthy() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensures++
	if f.failError != nil {
		return true, f.failError
	}
	if f.healthy {
		return false, nil
	}
	f.healthy = true
	return true, nil
}

func (f *fakeHealthTarget) ensureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensures
}

func TestMonitorSkipsStoppedSession(t *testing.T) {
	target := &fakeHealthTarget{running: false}
	m := NewMonitor(target, 20*time.Millisecond)
	m.Start()
	defer m.Stop()

	time.Sleep(150 * time.Millisecond)
	require.Zero(t, target.ensureCount(), "a stopped session must not be probed or started")
}

func TestMonitorRestartsUnresponsiveSession(t *testing.T) {
	target := &fakeHealthTarget{running: true, healthy: false}
	m := NewMonitor(target, 20*time.Millisecond)
	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool {
		return m.Snapshot().Restarts >= 1
	}, 2*time.Second, 10*time.Millisecond)

	snap := m.Snapshot()
	require.True(t, snap.LastHealthy)
	require.False(t, snap.LastCheckAt.IsZero())
}

func TestMonitorRecordsFailedRestart(t *testing.T) {
	target := &fakeHealthTarget{running: true, failError: errors.New("spawn failed")}
	m := NewMonitor(target, 20*time.Millisecond)
	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool {
		snap := m.Snapshot()
		return !snap.LastCheckAt.IsZero() && !snap.LastHealthy
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitorStopTerminates(t *testing.T) {
	target := &fakeHealthTarget{running: true, healthy: true}
	m := NewMonitor(target, 10*time.Millisecond)
	m.Start()

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
