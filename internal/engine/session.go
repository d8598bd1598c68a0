// Package engine manages a persistent interactive EDA engine process and
// turns its free-form console stream into discrete command transactions.
package engine

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
)

// Sentinel errors for session lifecycle failures. Command timeouts are not
// errors: a slow command is reported through Transaction.Completion because
// the engine is usually still working on it.
var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrNotReady       = errors.New("session not ready")
	ErrStartupTimeout = errors.New("timed out waiting for engine prompt")
	ErrProcessExited  = errors.New("engine process exited")
)

// State is the session lifecycle state.
type State int

const (
	Uninitialized State = iota
	Starting
	Ready
	Busy
	Stopping
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Busy:
		return "busy"
	case Stopping:
		return "stopping"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// CompletionKind says how a transaction's response boundary was resolved.
type CompletionKind string

const (
	PromptMatched CompletionKind = "prompt-matched"
	ErrorDetected CompletionKind = "error-detected"
	TimedOut      CompletionKind = "timeout"
	ProcessExited CompletionKind = "process-exited"
)

// Transaction is one command-send/response-receive cycle.
type Transaction struct {
	Command    string         `json:"command"`
	Output     string         `json:"output"`
	Completion CompletionKind `json:"completion"`
	Elapsed    time.Duration  `json:"elapsed_ms"`
	Errors     []string       `json:"errors,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Succeeded reports whether the command ran to completion without an error
// marker. A timeout is neither success nor failure; the caller decides.
func (t *Transaction) Succeeded() bool {
	return t.Completion == PromptMatched
}

// Options configures a session. Zero values fall back to defaults.
type Options struct {
	Executable     string
	Args           []string
	Prompt         string
	StartupTimeout time.Duration
	CommandTimeout time.Duration
}

const (
	DefaultPrompt         = "Vivado%"
	DefaultStartupTimeout = 120 * time.Second
	DefaultCommandTimeout = 300 * time.Second
)

// DefaultArgs put the engine in interactive script mode without journal or
// log files, so all output arrives on the pty.
var DefaultArgs = []string{"-mode", "tcl", "-nojournal", "-nolog"}

func (o Options) withDefaults() Options {
	if o.Executable == "" {
		o.Executable = "vivado"
	}
	if o.Args == nil {
		o.Args = DefaultArgs
	}
	if o.Prompt == "" {
		o.Prompt = DefaultPrompt
	}
	if o.StartupTimeout <= 0 {
		o.StartupTimeout = DefaultStartupTimeout
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = DefaultCommandTimeout
	}
	return o
}

// Session owns a single engine process attached to a pseudo-terminal and
// provides a blocking, serialized command-execution contract. The pty is
// required: the engine switches to block buffering when its output is not a
// terminal, which would break prompt framing.
//
// Exactly one command is in flight at a time. Concurrent callers queue on an
// internal mutex, which models the engine's single line of control.
type Session struct {
	execMu sync.Mutex   // serializes Start/Execute/Stop
	mu     sync.RWMutex // guards the snapshot fields below

	opts   Options
	cmd    *exec.Cmd
	ptyf   ptyFile
	framer *Framer
	state  State

	startedAt     time.Time
	lastCommandAt time.Time
	commandsRun   int
	errorsSeen    int
	totalElapsed  time.Duration

	log *logrus.Entry
}

// ptyFile is the slice of *os.File the session uses, split out so tests can
// substitute a pipe-backed fake engine.
type ptyFile interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// NewSession creates a session in the Uninitialized state. Nothing is
// spawned until Start.
func NewSession(opts Options) *Session {
	return &Session{
		opts: opts.withDefaults(),
		log:  logrus.WithField("component", "engine.session"),
	}
}

// Start spawns the engine attached to a pty and blocks until the prompt is
// observed or the startup timeout elapses. On timeout the process is torn
// down and the session returns to Uninitialized.
func (s *Session) Start() (*Transaction, error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	if st := s.currentState(); st != Uninitialized {
		return nil, fmt.Errorf("%w (state %s)", ErrAlreadyStarted, st)
	}
	s.setState(Starting)

	start := time.Now()
	cmd := exec.Command(s.opts.Executable, s.opts.Args...)
	f, err := pty.Start(cmd)
	if err != nil {
		s.setState(Uninitialized)
		return nil, fmt.Errorf("spawning %s: %w", s.opts.Executable, err)
	}

	framer := NewFramer(s.opts.Prompt, s.log)
	framer.Attach(f)

	s.log.WithFields(logrus.Fields{
		"executable": s.opts.Executable,
		"prompt":     s.opts.Prompt,
	}).Info("waiting for engine prompt")

	res := framer.Await(s.opts.StartupTimeout)
	if res.kind != PromptMatched {
		_ = f.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		s.setState(Uninitialized)
		if res.kind == ProcessExited {
			return nil, fmt.Errorf("%w during startup: %s", ErrProcessExited, tailOf(res.text))
		}
		return nil, fmt.Errorf("%w after %s", ErrStartupTimeout, s.opts.StartupTimeout)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.ptyf = f
	s.framer = framer
	s.state = Ready
	s.startedAt = time.Now()
	s.commandsRun = 0
	s.errorsSeen = 0
	s.totalElapsed = 0
	s.mu.Unlock()

	elapsed := time.Since(start)
	s.log.WithField("elapsed", elapsed).Info("engine session started")

	return &Transaction{
		Command:    "<startup>",
		Output:     cleanOutput(res.text, "", s.opts.Prompt),
		Completion: PromptMatched,
		Elapsed:    elapsed,
		Timestamp:  time.Now(),
	}, nil
}

// Execute sends a command and blocks until its response boundary resolves,
// using the session's configured command timeout.
func (s *Session) Execute(command string) (*Transaction, error) {
	return s.ExecuteTimeout(command, 0)
}

// ExecuteTimeout is Execute with a per-call idle timeout. timeout <= 0 uses
// the configured default. A TimedOut transaction is returned with a nil
// error: the engine keeps running the command and the session stays usable,
// the caller's patience budget simply expired.
func (s *Session) ExecuteTimeout(command string, timeout time.Duration) (*Transaction, error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	if st := s.currentState(); st != Ready {
		return nil, fmt.Errorf("%w (state %s)", ErrNotReady, st)
	}
	if timeout <= 0 {
		timeout = s.opts.CommandTimeout
	}

	s.setState(Busy)

	// Late output from a previously timed-out command is unreadable noise to
	// this transaction. Discard it now rather than corrupting the framing.
	if stale := s.framer.Drain(); strings.TrimSpace(stale) != "" {
		s.log.WithField("chars", len(stale)).Debug("discarded stale engine output")
	}

	start := time.Now()
	if _, err := s.ptyf.Write([]byte(command + "\n")); err != nil {
		s.setState(Failed)
		return nil, fmt.Errorf("writing command: %w", err)
	}

	res := s.framer.Await(timeout)
	elapsed := time.Since(start)

	tx := &Transaction{
		Command:    command,
		Output:     cleanOutput(res.text, command, s.opts.Prompt),
		Completion: res.kind,
		Elapsed:    elapsed,
		Timestamp:  time.Now(),
	}

	// The framer only sees line-start markers while streaming; a full
	// classification over the cleaned output also catches TCL errors.
	if res.kind == PromptMatched || res.kind == ErrorDetected {
		if cls := Classify(tx.Output); cls.Failed() {
			tx.Completion = ErrorDetected
			tx.Errors = cls.Messages
		}
	}

	s.mu.Lock()
	s.commandsRun++
	s.totalElapsed += elapsed
	s.lastCommandAt = time.Now()
	if tx.Completion != PromptMatched {
		s.errorsSeen++
	}
	s.mu.Unlock()

	if res.kind == ProcessExited {
		s.setState(Failed)
		s.log.WithField("command", command).Error("engine process exited mid-command")
		return tx, fmt.Errorf("%w while running %q", ErrProcessExited, command)
	}

	s.setState(Ready)
	return tx, nil
}

// Interrupt writes an ETX (Ctrl-C) to the pty, asking the engine to abort
// the in-flight command. Best effort; many engine operations ignore it.
func (s *Session) Interrupt() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ptyf == nil {
		return ErrNotReady
	}
	_, err := s.ptyf.Write([]byte{0x03})
	return err
}

// Stop shuts the engine down. Idempotent: stopping an Uninitialized session
// is a no-op. A graceful exit command is tried first, then the process is
// killed. The session always ends Uninitialized.
func (s *Session) Stop() error {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	if s.currentState() == Uninitialized {
		return nil
	}
	s.setState(Stopping)

	s.mu.RLock()
	cmd, f := s.cmd, s.ptyf
	s.mu.RUnlock()

	if f != nil {
		_, _ = f.Write([]byte("exit\n"))
	}
	if cmd != nil && cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.log.Warn("engine did not exit gracefully, killing")
			_ = cmd.Process.Kill()
			<-done
		}
	}
	if f != nil {
		_ = f.Close()
	}

	s.mu.Lock()
	s.cmd = nil
	s.ptyf = nil
	s.framer = nil
	s.state = Uninitialized
	s.mu.Unlock()

	s.log.Info("engine session stopped")
	return nil
}

// Status is a read-only snapshot of the session.
type Status struct {
	State         string        `json:"state"`
	Running       bool          `json:"running"`
	Executable    string        `json:"executable"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	CommandsRun   int           `json:"commands_run"`
	ErrorsSeen    int           `json:"errors_seen"`
	TotalElapsed  time.Duration `json:"total_command_time_ms"`
	LastCommandAt *time.Time    `json:"last_command_at,omitempty"`
}

// Status never contends with Execute; it reads a snapshot under a read lock.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:        s.state.String(),
		Running:      s.state == Ready || s.state == Busy,
		Executable:   s.opts.Executable,
		CommandsRun:  s.commandsRun,
		ErrorsSeen:   s.errorsSeen,
		TotalElapsed: s.totalElapsed,
	}
	if !s.startedAt.IsZero() && st.Running {
		st.UptimeSeconds = time.Since(s.startedAt).Seconds()
	}
	if !s.lastCommandAt.IsZero() {
		t := s.lastCommandAt
		st.LastCommandAt = &t
	}
	return st
}

// healthProbe produces output that cannot appear by accident, so a matching
// response proves the engine is still evaluating commands.
const healthProbe = "puts {VIVACTL_HEALTH_OK}"

// Healthy reports whether the engine responds to a trivial command within a
// short window. A Busy session is considered healthy: an in-flight command
// means the process is alive and framing is intact.
func (s *Session) Healthy() bool {
	switch s.currentState() {
	case Busy:
		return true
	case Ready:
	default:
		return false
	}
	tx, err := s.ExecuteTimeout(healthProbe, 5*time.Second)
	return err == nil && tx.Completion == PromptMatched &&
		strings.Contains(tx.Output, "VIVACTL_HEALTH_OK")
}

// EnsureHealthy restarts the session if it is unresponsive. It reports
// whether a restart happened so dependent state (simulation) can be reset.
func (s *Session) EnsureHealthy() (restarted bool, err error) {
	if s.Healthy() {
		return false, nil
	}
	if err := s.Stop(); err != nil {
		return false, err
	}
	// A Failed session parks in Uninitialized after Stop, so Start is legal.
	if _, err := s.Start(); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Session) currentState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// cleanOutput strips the echoed command, prompt lines and carriage returns
// from a raw frame, leaving only the response body.
func cleanOutput(raw, command, prompt string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r", ""), "\n")
	cmdSeen := command == ""
	var out []string
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if !cmdSeen {
			// The pty echoes the command back; everything before the echo is
			// leftover from earlier operations.
			if strings.Contains(stripped, strings.TrimSpace(command)) {
				cmdSeen = true
			}
			continue
		}
		if stripped == "" || strings.HasPrefix(stripped, prompt) {
			continue
		}
		out = append(out, stripped)
	}
	if !cmdSeen {
		// Echo never showed up (some engines suppress it); fall back to the
		// whole frame minus prompts.
		return cleanOutput(raw, "", prompt)
	}
	return strings.Join(out, "\n")
}

func tailOf(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		text = text[len(text)-200:]
	}
	return text
}
