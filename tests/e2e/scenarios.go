package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Scenario is one end-to-end check: a setup plus a sequence of named steps
// against the vivactl binary.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one named check within a scenario.
type Step struct {
	Name string
	Fn   func(ctx *Context) error
}

// Context carries per-scenario state between steps.
type Context struct {
	dir    string
	values map[string]string
}

// Run executes the scenario's steps in order, stopping at the first failure.
func (s *Scenario) Run() error {
	dir, err := os.MkdirTemp("", "vivactl-e2e-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	ctx := &Context{dir: dir, values: make(map[string]string)}
	for _, step := range s.Steps {
		fmt.Printf("  - %s\n", step.Name)
		if err := step.Fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
	}
	return nil
}

func binPath() string {
	if p := os.Getenv("VIVACTL_BIN"); p != "" {
		return p
	}
	return "vivactl"
}

// mockEngineScript behaves enough like an interactive TCL console for the
// session layer: a startup banner, a prompt after every command, and a few
// canned responses.
const mockEngineScript = `#!/bin/sh
echo "****** Mock Vivado v2023.2 (64-bit)"
printf 'Vivado%% '
while IFS= read -r line; do
  case "$line" in
    exit) exit 0 ;;
    "puts {VIVACTL_HEALTH_OK}") echo "VIVACTL_HEALTH_OK" ;;
    version) echo "mock vivado v2023.2" ;;
    fail) echo "ERROR: [Common 17-39] simulated failure" ;;
    *) echo "ok: $line" ;;
  esac
  printf 'Vivado%% '
done
`

// setupMockEngine writes the mock engine and a config pointing at it.
func setupMockEngine(ctx *Context) error {
	enginePath := filepath.Join(ctx.dir, "mock-vivado.sh")
	if err := os.WriteFile(enginePath, []byte(mockEngineScript), 0755); err != nil {
		return err
	}

	configPath := filepath.Join(ctx.dir, "config.yaml")
	config := fmt.Sprintf(`engine:
  executable: %s
  args: []
  prompt: "Vivado%%"
  startup_timeout_sec: 10
  command_timeout_sec: 10
response:
  reports_dir: %s
log_level: warn
`, enginePath, filepath.Join(ctx.dir, "reports"))
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		return err
	}

	ctx.values["config"] = configPath
	return nil
}

// runBinary runs vivactl with the given arguments and optional stdin.
func runBinary(stdin string, args ...string) (stdout, stderr string, exitCode int, err error) {
	cmd := exec.Command(binPath(), args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return outBuf.String(), errBuf.String(), exitErr.ExitCode(), nil
		}
		return outBuf.String(), errBuf.String(), -1, runErr
	}
	return outBuf.String(), errBuf.String(), 0, nil
}

func expectContains(haystack, needle, what string) error {
	if !strings.Contains(haystack, needle) {
		return fmt.Errorf("%s: expected output to contain %q, got:\n%s", what, needle, haystack)
	}
	return nil
}

// ToolsListScenario checks that the tool registry is surfaced by the CLI.
func ToolsListScenario() Scenario {
	return Scenario{
		Name: "tools-list",
		Steps: []Step{
			{Name: "Run 'vivactl tools'", Fn: func(ctx *Context) error {
				stdout, stderr, exitCode, err := runBinary("", "tools")
				if err != nil {
					return err
				}
				if exitCode != 0 {
					return fmt.Errorf("vivactl tools failed: %s", stderr)
				}
				for _, name := range []string{"start_session", "run_synthesis", "get_timing_summary", "launch_simulation"} {
					if err := expectContains(stdout, name, "tool listing"); err != nil {
						return err
					}
				}
				return nil
			}},
			{Name: "Run 'vivactl tools --json'", Fn: func(ctx *Context) error {
				stdout, stderr, exitCode, err := runBinary("", "tools", "--json")
				if err != nil {
					return err
				}
				if exitCode != 0 {
					return fmt.Errorf("vivactl tools --json failed: %s", stderr)
				}
				return expectContains(stdout, `"input_schema"`, "json tool listing")
			}},
		},
	}
}

// RunCommandScenario checks the one-shot run path against the mock engine.
func RunCommandScenario() Scenario {
	return Scenario{
		Name: "run-command",
		Steps: []Step{
			{Name: "Setup mock engine", Fn: setupMockEngine},
			{Name: "Run 'vivactl run version'", Fn: func(ctx *Context) error {
				stdout, stderr, exitCode, err := runBinary("",
					"run", "version", "--config", ctx.values["config"])
				if err != nil {
					return err
				}
				if exitCode != 0 {
					return fmt.Errorf("vivactl run failed: %s", stderr)
				}
				return expectContains(stdout, "mock vivado v2023.2", "run output")
			}},
			{Name: "Run a failing command", Fn: func(ctx *Context) error {
				stdout, _, _, err := runBinary("",
					"run", "fail", "--config", ctx.values["config"])
				if err != nil {
					return err
				}
				return expectContains(stdout, "ERROR:", "failure output")
			}},
		},
	}
}

// ServeRoundTripScenario drives the JSONL serve loop through a full session
// lifecycle.
func ServeRoundTripScenario() Scenario {
	requests := strings.Join([]string{
		`{"id": 1, "tool": "session_status"}`,
		`{"id": 2, "tool": "start_session"}`,
		`{"id": 3, "tool": "run_tcl", "arguments": {"command": "version"}}`,
		`{"id": 4, "tool": "stop_session"}`,
		`{"id": 5, "tool": "no_such_tool"}`,
	}, "\n") + "\n"

	return Scenario{
		Name: "serve-round-trip",
		Steps: []Step{
			{Name: "Setup mock engine", Fn: setupMockEngine},
			{Name: "Drive the serve loop", Fn: func(ctx *Context) error {
				done := make(chan struct{})
				var stdout, stderr string
				var exitCode int
				var runErr error
				go func() {
					stdout, stderr, exitCode, runErr = runBinary(requests,
						"serve", "--config", ctx.values["config"])
					close(done)
				}()

				select {
				case <-done:
				case <-time.After(60 * time.Second):
					return fmt.Errorf("serve loop did not finish")
				}
				if runErr != nil {
					return runErr
				}
				if exitCode != 0 {
					return fmt.Errorf("serve exited %d: %s", exitCode, stderr)
				}

				checks := []struct{ needle, what string }{
					{`"uninitialized"`, "status before start"},
					{`"mock vivado v2023.2`, "run_tcl output"},
					{`unknown tool`, "unknown tool error"},
				}
				for _, c := range checks {
					if err := expectContains(stdout, c.needle, c.what); err != nil {
						return err
					}
				}
				return nil
			}},
		},
	}
}
