package engine

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockEngineScript emulates the engine console: banner, prompt after every
// command, canned responses. Running it under a pty exercises the real spawn
// and framing paths.
const mockEngineScript = `#!/bin/sh
echo "****** Mock Vivado v2023.2 (64-bit)"
printf 'Vivado%% '
while IFS= read -r line; do
  case "$line" in
    exit) exit 0 ;;
    die) exit 1 ;;
    slow) sleep 2; echo "woke up" ;;
    fail) echo "ERROR: [Common 17-39] simulated failure" ;;
    "puts {VIVACTL_HEALTH_OK}") echo "VIVACTL_HEALTH_OK" ;;
    version) echo "mock vivado v2023.2" ;;
    *) echo "ok: $line" ;;
  esac
  printf 'Vivado%% '
done
`

// newMockSession returns an unstarted session wired to the mock engine.
func newMockSession(t *testing.T) *Session {
	t.Helper()
	script := filepath.Join(t.TempDir(), "mock-vivado.sh")
	require.NoError(t, os.WriteFile(script, []byte(mockEngineScript), 0755))

	s := NewSession(Options{
		Executable:     script,
		Args:           []string{},
		StartupTimeout: 10 * time.Second,
		CommandTimeout: 10 * time.Second,
	})
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestStartAndExecute(t *testing.T) {
	s := newMockSession(t)

	tx, err := s.Start()
	require.NoError(t, err)
	require.Equal(t, PromptMatched, tx.Completion)
	require.Equal(t, Ready, s.currentState())

	tx, err = s.Execute("version")
	require.NoError(t, err)
	require.Equal(t, PromptMatched, tx.Completion)
	require.Contains(t, tx.Output, "mock vivado v2023.2")
	require.True(t, tx.Succeeded())
}

func TestExecuteBeforeStart(t *testing.T) {
	s := newMockSession(t)

	_, err := s.Execute("version")
	require.ErrorIs(t, err, ErrNotReady)
}

func TestDoubleStart(t *testing.T) {
	s := newMockSession(t)

	_, err := s.Start()
	require.NoError(t, err)

	_, err = s.Start()
	require.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestStopIdempotent(t *testing.T) {
	s := newMockSession(t)

	require.NoError(t, s.Stop(), "stopping an unstarted session is a no-op")

	_, err := s.Start()
	require.NoError(t, err)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "second stop is a no-op")
	require.Equal(t, Uninitialized, s.currentState())
}

func TestRestartAfterStop(t *testing.T) {
	s := newMockSession(t)

	_, err := s.Start()
	require.NoError(t, err)
	require.NoError(t, s.Stop())

	_, err = s.Start()
	require.NoError(t, err, "a stopped session can be started again")

	tx, err := s.Execute("version")
	require.NoError(t, err)
	require.Equal(t, PromptMatched, tx.Completion)
}

func TestExecuteErrorCommand(t *testing.T) {
	s := newMockSession(t)

	_, err := s.Start()
	require.NoError(t, err)

	tx, err := s.Execute("fail")
	require.NoError(t, err, "a failing command is a completed transaction, not a session error")
	require.Equal(t, ErrorDetected, tx.Completion)
	require.False(t, tx.Succeeded())
	require.NotEmpty(t, tx.Errors)
	require.Contains(t, tx.Errors[0], "ERROR: [Common 17-39]")

	// The session stays usable.
	tx, err = s.Execute("version")
	require.NoError(t, err)
	require.Equal(t, PromptMatched, tx.Completion)
}

func TestExecuteTimeoutIsNotFatal(t *testing.T) {
	s := newMockSession(t)

	_, err := s.Start()
	require.NoError(t, err)

	tx, err := s.ExecuteTimeout("slow", 300*time.Millisecond)
	require.NoError(t, err, "a timeout is reported on the transaction, not as an error")
	require.Equal(t, TimedOut, tx.Completion)
	require.Equal(t, Ready, s.currentState())

	// Let the slow command finish so its late output is stale by the next
	// call, then verify the next transaction does not see it.
	time.Sleep(3 * time.Second)

	tx, err = s.Execute("version")
	require.NoError(t, err)
	require.Equal(t, PromptMatched, tx.Completion)
	require.Contains(t, tx.Output, "mock vivado v2023.2")
	require.NotContains(t, tx.Output, "woke up", "late output from the timed-out command must be discarded")
}

func TestProcessExitMidCommand(t *testing.T) {
	s := newMockSession(t)

	_, err := s.Start()
	require.NoError(t, err)

	tx, err := s.Execute("die")
	require.ErrorIs(t, err, ErrProcessExited)
	require.Equal(t, ProcessExited, tx.Completion)
	require.Equal(t, Failed, s.currentState())

	_, err = s.Execute("version")
	require.ErrorIs(t, err, ErrNotReady)

	// Stop clears the failure; a fresh start recovers.
	require.NoError(t, s.Stop())
	_, err = s.Start()
	require.NoError(t, err)
}

func TestConcurrentExecutesSerialize(t *testing.T) {
	s := newMockSession(t)

	_, err := s.Start()
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx, err := s.Execute("version")
			if err == nil && tx.Completion != PromptMatched {
				err = errors.New("unexpected completion " + string(tx.Completion))
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "call %d", i)
	}
	require.Equal(t, 4, s.Status().CommandsRun)
}

func TestStatusDoesNotBlockDuringExecute(t *testing.T) {
	s := newMockSession(t)

	_, err := s.Start()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_, _ = s.Execute("slow")
		close(done)
	}()

	require.Eventually(t, func() bool {
		return s.Status().State == "busy"
	}, 2*time.Second, 10*time.Millisecond, "status must be readable while a command is in flight")

	<-done
	require.Equal(t, "ready", s.Status().State)
}

func TestHealthProbe(t *testing.T) {
	s := newMockSession(t)

	require.False(t, s.Healthy(), "an unstarted session is not healthy")

	_, err := s.Start()
	require.NoError(t, err)
	require.True(t, s.Healthy())

	restarted, err := s.EnsureHealthy()
	require.NoError(t, err)
	require.False(t, restarted, "a healthy session is not restarted")
}

func TestStartupFailure(t *testing.T) {
	s := NewSession(Options{
		Executable:     "/bin/false",
		Args:           []string{},
		StartupTimeout: 3 * time.Second,
	})

	_, err := s.Start()
	require.Error(t, err)
	require.Equal(t, Uninitialized, s.currentState(), "a failed start leaves the session startable")
}

func TestCleanOutput(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		command string
		want    string
	}{
		{
			name:    "echo and prompt stripped",
			raw:     "version\r\nmock vivado v2023.2\r\nVivado% ",
			command: "version",
			want:    "mock vivado v2023.2",
		},
		{
			name:    "no echo falls back to whole frame",
			raw:     "mock vivado v2023.2\nVivado% ",
			command: "report_timing",
			want:    "mock vivado v2023.2",
		},
		{
			name:    "blank lines dropped",
			raw:     "puts hi\n\nhi\n\nVivado% ",
			command: "puts hi",
			want:    "hi",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, cleanOutput(tc.raw, tc.command, "Vivado%"))
		})
	}
}
