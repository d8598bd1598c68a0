// Package sim layers a stateful control protocol for the engine's
// event-driven simulator on top of the session's raw command channel. The
// engine exposes simulation control only as more interactive commands, so
// state the engine cannot report back (the breakpoint set as configured
// here, the launch mode) is tracked on this side.
package sim

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edaforge/vivactl/internal/engine"
)

var (
	ErrInvalidPhase = errors.New("operation not valid in current simulation phase")
	ErrInvalidScope = errors.New("no simulation object matches the given path")
)

// Executor runs one engine command. Satisfied by *engine.Session.
type Executor interface {
	Execute(command string) (*engine.Transaction, error)
	ExecuteTimeout(command string, timeout time.Duration) (*engine.Transaction, error)
}

// Phase is the controller's own lifecycle, distinct from the session state.
type Phase string

const (
	NotStarted Phase = "not_started"
	Running    Phase = "running"
	Paused     Phase = "paused"
	Closed     Phase = "closed"
)

// Breakpoint is one tracked breakpoint: a signal path plus the trigger
// condition it was registered with.
type Breakpoint struct {
	Signal    string `json:"signal"`
	Condition string `json:"condition"`
}

// launchModes maps friendly mode names to the engine's launch arguments.
var launchModes = map[string]string{
	"behavioral":        "behav",
	"post_synth_func":   "synth -type func",
	"post_synth_timing": "synth -type timing",
	"post_impl_func":    "impl -type func",
	"post_impl_timing":  "impl -type timing",
}

// breakpointConditions maps condition names to engine breakpoint flags.
var breakpointConditions = map[string]string{
	"posedge": "-posedge",
	"negedge": "-negedge",
	"change":  "",
}

// Controller drives the simulator through an Executor and owns the
// simulation-side state: phase, reported time, top module, active scope and
// the breakpoint set. The engine does not guarantee breakpoints survive a
// restart, so the controller re-applies its own set.
type Controller struct {
	mu sync.Mutex

	exec        Executor
	phase       Phase
	currentTime string
	topModule   string
	activeScope string
	mode        string
	breakpoints []Breakpoint

	log *logrus.Entry
}

// NewController creates a controller in the NotStarted phase.
func NewController(exec Executor) *Controller {
	return &Controller{
		exec:  exec,
		phase: NotStarted,
		log:   logrus.WithField("component", "sim.controller"),
	}
}

// Status is a read-only snapshot of the controller state.
type Status struct {
	Phase       Phase        `json:"phase"`
	CurrentTime string       `json:"current_time,omitempty"`
	TopModule   string       `json:"top_module,omitempty"`
	ActiveScope string       `json:"active_scope,omitempty"`
	Breakpoints []Breakpoint `json:"breakpoints"`
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	bps := make([]Breakpoint, len(c.breakpoints))
	copy(bps, c.breakpoints)
	return Status{
		Phase:       c.phase,
		CurrentTime: c.currentTime,
		TopModule:   c.topModule,
		ActiveScope: c.activeScope,
		Breakpoints: bps,
	}
}

// Reset drops all simulation state back to NotStarted. Called whenever the
// underlying session restarts, since a fresh engine has no simulator.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = NotStarted
	c.currentTime = ""
	c.topModule = ""
	c.activeScope = ""
	c.mode = ""
	c.breakpoints = nil
}

// Launch starts the simulator. Valid only from NotStarted or Closed. The
// mode is a friendly name from launchModes; unknown names fall back to
// behavioral. topModule, when non-empty, is recorded as the simulated top.
func (c *Controller) Launch(mode, topModule string) (*engine.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != NotStarted && c.phase != Closed {
		return nil, fmt.Errorf("%w: launch from %s", ErrInvalidPhase, c.phase)
	}

	engineMode, ok := launchModes[mode]
	if !ok {
		engineMode = launchModes["behavioral"]
	}

	tx, err := c.exec.Execute("launch_simulation -mode " + engineMode)
	if err != nil {
		return tx, err
	}
	if !tx.Succeeded() {
		return tx, fmt.Errorf("launch failed: %s", firstLine(tx.Output))
	}

	c.phase = Running
	c.mode = mode
	c.currentTime = "0 ns"
	if topModule != "" {
		c.topModule = topModule
	}
	c.log.WithFields(logrus.Fields{"mode": mode, "top": c.topModule}).Info("simulation launched")
	return tx, nil
}

// Run advances simulation time. duration is an engine time expression like
// "100ns", or "all"/"forever" to run until no events remain. Valid from
// Running or Paused; completion leaves the simulator Paused at the new time.
func (c *Controller) Run(duration string) (*engine.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive("run"); err != nil {
		return nil, err
	}

	cmd := "run " + duration
	switch strings.ToLower(duration) {
	case "all", "forever", "":
		cmd = "run -all"
	}

	tx, err := c.exec.Execute(cmd)
	if err != nil {
		return tx, err
	}
	if tx.Completion == engine.TimedOut {
		// The simulator is still running; time will be refreshed by the
		// next successful command.
		return tx, nil
	}

	c.phase = Paused
	c.refreshTime()
	return tx, nil
}

// Step advances the simulation by count delta cycles. Valid from Running or
// Paused.
func (c *Controller) Step(count int) (*engine.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive("step"); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 1
	}

	tx, err := c.exec.Execute(fmt.Sprintf("step %d", count))
	if err != nil {
		return tx, err
	}
	c.phase = Paused
	c.refreshTime()
	return tx, nil
}

// Restart rewinds the simulation to time zero. Valid from any phase except
// NotStarted. The top module and the tracked breakpoint set are preserved
// and breakpoints are re-applied against the fresh simulation, since the
// engine does not persist them across a restart. From Closed, the simulator
// is relaunched with the previous mode first.
func (c *Controller) Restart() (*engine.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == NotStarted {
		return nil, fmt.Errorf("%w: restart before launch", ErrInvalidPhase)
	}

	var tx *engine.Transaction
	var err error
	if c.phase == Closed {
		engineMode, ok := launchModes[c.mode]
		if !ok {
			engineMode = launchModes["behavioral"]
		}
		tx, err = c.exec.Execute("launch_simulation -mode " + engineMode)
	} else {
		tx, err = c.exec.Execute("restart")
	}
	if err != nil {
		return tx, err
	}
	if !tx.Succeeded() {
		return tx, fmt.Errorf("restart failed: %s", firstLine(tx.Output))
	}

	c.phase = Running
	c.currentTime = "0 ns"
	c.reapplyBreakpoints()
	return tx, nil
}

// Close tears the simulator down. Valid from any phase; closing a simulator
// that never launched is a state-only transition.
func (c *Controller) Close() (*engine.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == NotStarted || c.phase == Closed {
		c.phase = Closed
		return nil, nil
	}

	tx, err := c.exec.Execute("close_sim")
	c.phase = Closed
	c.currentTime = ""
	return tx, err
}

// Time returns the engine-reported current simulation time.
func (c *Controller) Time() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive("current_time"); err != nil {
		return "", err
	}
	c.refreshTime()
	return c.currentTime, nil
}

// SignalValue reads one signal's current value in the given radix. Fails
// with ErrInvalidScope when the path resolves to nothing.
func (c *Controller) SignalValue(path, radix string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive("get_value"); err != nil {
		return "", err
	}
	if radix == "" {
		radix = "hex"
	}

	tx, err := c.exec.Execute(fmt.Sprintf("get_value -radix %s {%s}", radix, path))
	if err != nil {
		return "", err
	}
	value := strings.TrimSpace(tx.Output)
	if !tx.Succeeded() || value == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidScope, path)
	}
	return value, nil
}

// maxSignalReads bounds how many per-signal value queries one pattern
// lookup may issue against the engine.
const maxSignalReads = 50

// SignalValues reads every signal matching pattern, up to maxSignalReads.
func (c *Controller) SignalValues(pattern, radix string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive("get_objects"); err != nil {
		return nil, err
	}
	if radix == "" {
		radix = "hex"
	}

	tx, err := c.exec.Execute(fmt.Sprintf(
		"get_objects -filter {TYPE == signal || TYPE == port} {%s}", pattern))
	if err != nil {
		return nil, err
	}
	signals := strings.Fields(tx.Output)
	if !tx.Succeeded() || len(signals) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScope, pattern)
	}
	if len(signals) > maxSignalReads {
		signals = signals[:maxSignalReads]
	}

	values := make(map[string]string, len(signals))
	for _, sig := range signals {
		vtx, err := c.exec.Execute(fmt.Sprintf("get_value -radix %s {%s}", radix, sig))
		if err != nil {
			return values, err
		}
		if vtx.Succeeded() {
			values[sig] = strings.TrimSpace(vtx.Output)
		}
	}
	return values, nil
}

// Objects lists simulation objects in a scope. filter is one of all,
// signals, ports, internal.
func (c *Controller) Objects(scope, filter string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive("get_objects"); err != nil {
		return nil, err
	}

	filters := map[string]string{
		"all":      "",
		"signals":  "-filter {TYPE == signal} ",
		"ports":    "-filter {TYPE == port} ",
		"internal": "-filter {TYPE == signal && IS_PORT == false} ",
	}
	tx, err := c.exec.Execute(fmt.Sprintf("get_objects %s{%s/*}", filters[filter], scope))
	if err != nil {
		return nil, err
	}
	return strings.Fields(tx.Output), nil
}

// Scopes lists child scopes under parent.
func (c *Controller) Scopes(parent string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive("get_scopes"); err != nil {
		return nil, err
	}
	tx, err := c.exec.Execute(fmt.Sprintf("get_scopes {%s/*}", parent))
	if err != nil {
		return nil, err
	}
	c.activeScope = parent
	return strings.Fields(tx.Output), nil
}

// AddWave adds signals to the waveform database so their history is kept.
func (c *Controller) AddWave(signals []string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive("add_wave"); err != nil {
		return nil, err
	}
	var added []string
	for _, sig := range signals {
		tx, err := c.exec.Execute(fmt.Sprintf("add_wave {%s}", sig))
		if err != nil {
			return added, err
		}
		if tx.Succeeded() {
			added = append(added, sig)
		}
	}
	return added, nil
}

// AddBreakpoint registers a breakpoint in the engine and tracks it so it
// can be re-applied after Restart. condition is posedge, negedge or change.
func (c *Controller) AddBreakpoint(signal, condition string) (*engine.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive("add_bp"); err != nil {
		return nil, err
	}

	flag, ok := breakpointConditions[condition]
	if !ok {
		condition = "change"
		flag = ""
	}

	tx, err := c.exec.Execute(breakpointCommand(flag, signal))
	if err != nil {
		return tx, err
	}
	if tx.Succeeded() {
		c.breakpoints = append(c.breakpoints, Breakpoint{Signal: signal, Condition: condition})
	}
	return tx, err
}

// RemoveBreakpoints clears every breakpoint, engine-side and tracked.
func (c *Controller) RemoveBreakpoints() (*engine.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive("remove_bps"); err != nil {
		return nil, err
	}
	tx, err := c.exec.Execute("remove_bps -all")
	if err != nil {
		return tx, err
	}
	c.breakpoints = nil
	return tx, nil
}

// reapplyBreakpoints mirrors the tracked set into a freshly restarted
// simulation. Failures are logged, not fatal: the set itself is preserved.
// Caller holds c.mu.
func (c *Controller) reapplyBreakpoints() {
	for _, bp := range c.breakpoints {
		flag := breakpointConditions[bp.Condition]
		tx, err := c.exec.Execute(breakpointCommand(flag, bp.Signal))
		if err != nil || !tx.Succeeded() {
			c.log.WithField("signal", bp.Signal).Warn("failed to re-apply breakpoint after restart")
		}
	}
}

// refreshTime queries the engine for the current simulation time. Caller
// holds c.mu. Best effort: on failure the previous value is kept.
func (c *Controller) refreshTime() {
	tx, err := c.exec.ExecuteTimeout("current_time", 10*time.Second)
	if err != nil || !tx.Succeeded() {
		return
	}
	if t := strings.TrimSpace(tx.Output); t != "" {
		c.currentTime = t
	}
}

// requireActive fails unless a simulation is loaded. Caller holds c.mu.
func (c *Controller) requireActive(op string) error {
	if c.phase != Running && c.phase != Paused {
		return fmt.Errorf("%w: %s from %s", ErrInvalidPhase, op, c.phase)
	}
	return nil
}

func breakpointCommand(flag, signal string) string {
	if flag == "" {
		return fmt.Sprintf("add_bp {%s}", signal)
	}
	return fmt.Sprintf("add_bp %s {%s}", flag, signal)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
