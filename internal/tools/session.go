package tools

import (
	"encoding/json"
	"errors"

	"github.com/edaforge/vivactl/internal/engine"
)

type checkHealthArgs struct {
	AutoRecover *bool `json:"auto_recover,omitempty" jsonschema:"description=Restart the session automatically if it is unresponsive (default true)"`
}

func registerSessionTools(r *Registry) {
	r.register("start_session", "session",
		"Start the persistent engine session. The engine stays running between commands, avoiding its long startup cost.",
		nil,
		func(rt *Runtime, _ json.RawMessage) (any, error) {
			tx, err := rt.Engine.Start()
			if errors.Is(err, engine.ErrAlreadyStarted) {
				return map[string]any{
					"success": true,
					"message": "session already running",
				}, nil
			}
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success":    true,
				"message":    "engine session started",
				"elapsed_ms": tx.Elapsed.Milliseconds(),
			}, nil
		})

	r.register("stop_session", "session",
		"Stop the engine session gracefully. Any in-flight simulation state is discarded.",
		nil,
		func(rt *Runtime, _ json.RawMessage) (any, error) {
			if err := rt.Engine.Stop(); err != nil {
				return nil, err
			}
			rt.Sim.Reset()
			rt.setProject("")
			return map[string]any{
				"success": true,
				"message": "engine session stopped",
			}, nil
		})

	r.register("session_status", "session",
		"Read-only session statistics: state, uptime, command counters. Never blocks behind a running command.",
		nil,
		func(rt *Runtime, _ json.RawMessage) (any, error) {
			return map[string]any{
				"session":         rt.Engine.Status(),
				"current_project": rt.project(),
				"simulation":      rt.Sim.Status(),
			}, nil
		})

	r.register("check_session_health", "session",
		"Probe the engine with a trivial command and optionally restart it if unresponsive.",
		&checkHealthArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a checkHealthArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			autoRecover := a.AutoRecover == nil || *a.AutoRecover

			if rt.Engine.Healthy() {
				return map[string]any{"healthy": true, "action": "none"}, nil
			}
			if !autoRecover {
				return map[string]any{
					"healthy": false,
					"action":  "none",
					"message": "session unresponsive (auto_recover=false)",
				}, nil
			}

			restarted, err := rt.Engine.EnsureHealthy()
			if restarted {
				// A fresh engine has no simulator or open project.
				rt.Sim.Reset()
				rt.setProject("")
			}
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"healthy": true,
				"action":  "restarted",
				"message": "session was unresponsive, restarted",
			}, nil
		})
}

func (rt *Runtime) project() string {
	return rt.currentProject
}

func (rt *Runtime) setProject(path string) {
	rt.currentProject = path
}
