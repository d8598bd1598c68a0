package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edaforge/vivactl/internal/report"
)

type launchSimArgs struct {
	Mode      string `json:"mode,omitempty" jsonschema:"enum=behavioral,enum=post_synth_func,enum=post_synth_timing,enum=post_impl_func,enum=post_impl_timing,description=Simulation mode (default behavioral)"`
	TopModule string `json:"top_module,omitempty" jsonschema:"description=Testbench top module to simulate"`
}

type runSimArgs struct {
	Time string `json:"time,omitempty" jsonschema:"description=Time to advance (e.g. 100ns) or 'all' to run until no events remain (default 100ns)"`
}

type stepSimArgs struct {
	Count int `json:"count,omitempty" jsonschema:"description=Delta cycles to step (default 1)"`
}

type signalValueArgs struct {
	Signal string `json:"signal" jsonschema:"required,description=Full hierarchical signal path"`
	Radix  string `json:"radix,omitempty" jsonschema:"enum=hex,enum=bin,enum=dec,enum=unsigned,description=Value radix (default hex)"`
}

type signalValuesArgs struct {
	Pattern string `json:"pattern,omitempty" jsonschema:"description=Glob pattern over signal paths (default /*)"`
	Radix   string `json:"radix,omitempty" jsonschema:"enum=hex,enum=bin,enum=dec,enum=unsigned"`
}

type addWaveArgs struct {
	Signals []string `json:"signals" jsonschema:"required,description=Signal paths to record in the waveform database"`
}

type setSimTopArgs struct {
	TopModule string `json:"top_module" jsonschema:"required,description=Module to set as simulation top"`
	Fileset   string `json:"fileset,omitempty" jsonschema:"description=Simulation fileset (default sim_1)"`
}

type simObjectsArgs struct {
	Scope  string `json:"scope,omitempty" jsonschema:"description=Scope to list (default /)"`
	Filter string `json:"filter,omitempty" jsonschema:"enum=all,enum=signals,enum=ports,enum=internal"`
}

type scopesArgs struct {
	Parent string `json:"parent,omitempty" jsonschema:"description=Parent scope (default /)"`
}

type breakpointArgs struct {
	Signal    string `json:"signal" jsonschema:"required,description=Signal path to break on"`
	Condition string `json:"condition,omitempty" jsonschema:"enum=posedge,enum=negedge,enum=change,description=Trigger condition (default change)"`
}

type simMessagesArgs struct {
	Severity string `json:"severity,omitempty" jsonschema:"description=Only count messages of this severity"`
}

func registerSimulationTools(r *Registry) {
	r.register("launch_simulation", "simulation",
		"Launch the integrated simulator. Valid before any simulation or after close_simulation.",
		&launchSimArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a launchSimArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			if a.Mode == "" {
				a.Mode = "behavioral"
			}
			tx, err := rt.Sim.Launch(a.Mode, a.TopModule)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success":    true,
				"mode":       a.Mode,
				"simulation": rt.Sim.Status(),
				"elapsed_ms": tx.Elapsed.Milliseconds(),
			}, nil
		})

	r.register("run_simulation", "simulation",
		"Advance simulation time. The simulator pauses at the new time.",
		&runSimArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a runSimArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			if a.Time == "" {
				a.Time = "100ns"
			}
			tx, err := rt.Sim.Run(a.Time)
			if err != nil {
				return nil, err
			}
			resp := transactionResult(tx)
			resp["simulation"] = rt.Sim.Status()
			return resp, nil
		})

	r.register("step_simulation", "simulation",
		"Step the simulation by delta cycles.",
		&stepSimArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a stepSimArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			tx, err := rt.Sim.Step(a.Count)
			if err != nil {
				return nil, err
			}
			resp := transactionResult(tx)
			resp["simulation"] = rt.Sim.Status()
			return resp, nil
		})

	r.register("restart_simulation", "simulation",
		"Rewind the simulation to time 0, preserving the top module and re-applying tracked breakpoints.",
		nil,
		func(rt *Runtime, _ json.RawMessage) (any, error) {
			if _, err := rt.Sim.Restart(); err != nil {
				return nil, err
			}
			return map[string]any{
				"success":    true,
				"message":    "simulation restarted",
				"simulation": rt.Sim.Status(),
			}, nil
		})

	r.register("close_simulation", "simulation",
		"Tear the simulator down.",
		nil,
		func(rt *Runtime, _ json.RawMessage) (any, error) {
			if _, err := rt.Sim.Close(); err != nil {
				return nil, err
			}
			return map[string]any{"success": true, "message": "simulation closed"}, nil
		})

	r.register("get_simulation_time", "simulation",
		"Report the current simulation time.",
		nil,
		func(rt *Runtime, _ json.RawMessage) (any, error) {
			t, err := rt.Sim.Time()
			if err != nil {
				return nil, err
			}
			return map[string]any{"success": true, "time": t}, nil
		})

	r.register("get_signal_value", "simulation",
		"Read the current value of one signal.",
		&signalValueArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a signalValueArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			value, err := rt.Sim.SignalValue(a.Signal, a.Radix)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success": true,
				"signal":  a.Signal,
				"value":   value,
				"radix":   defaultRadix(a.Radix),
			}, nil
		})

	r.register("get_signal_values", "simulation",
		"Read the current values of every signal matching a pattern.",
		&signalValuesArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a signalValuesArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			if a.Pattern == "" {
				a.Pattern = "/*"
			}
			values, err := rt.Sim.SignalValues(a.Pattern, a.Radix)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success": true,
				"values":  values,
				"count":   len(values),
				"radix":   defaultRadix(a.Radix),
			}, nil
		})

	r.register("add_signals_to_wave", "simulation",
		"Add signals to the waveform database so their history is recorded.",
		&addWaveArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a addWaveArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			added, err := rt.Sim.AddWave(a.Signals)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success": len(added) == len(a.Signals),
				"added":   added,
			}, nil
		})

	r.register("set_simulation_top", "simulation",
		"Set the top-level testbench module for the simulation fileset.",
		&setSimTopArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a setSimTopArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			if a.Fileset == "" {
				a.Fileset = "sim_1"
			}
			tx, err := rt.Engine.Execute(fmt.Sprintf(
				"set_property top %s [get_filesets %s]", a.TopModule, a.Fileset))
			if err != nil {
				return nil, err
			}
			return transactionResult(tx), nil
		})

	r.register("get_simulation_objects", "simulation",
		"List signals, ports or variables in a simulation scope.",
		&simObjectsArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a simObjectsArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			if a.Scope == "" {
				a.Scope = "/"
			}
			if a.Filter == "" {
				a.Filter = "all"
			}
			objects, err := rt.Sim.Objects(a.Scope, a.Filter)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success": true,
				"scope":   a.Scope,
				"objects": objects,
				"count":   len(objects),
			}, nil
		})

	r.register("get_scopes", "simulation",
		"List child scopes (hierarchy levels) under a parent scope.",
		&scopesArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a scopesArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			if a.Parent == "" {
				a.Parent = "/"
			}
			scopes, err := rt.Sim.Scopes(a.Parent)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success": true,
				"parent":  a.Parent,
				"scopes":  scopes,
				"count":   len(scopes),
			}, nil
		})

	r.register("add_breakpoint", "simulation",
		"Add a breakpoint on a signal edge or change. Breakpoints are tracked and re-applied after restart_simulation.",
		&breakpointArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a breakpointArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			if a.Condition == "" {
				a.Condition = "change"
			}
			tx, err := rt.Sim.AddBreakpoint(a.Signal, a.Condition)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success":   tx.Succeeded(),
				"signal":    a.Signal,
				"condition": a.Condition,
			}, nil
		})

	r.register("remove_breakpoints", "simulation",
		"Remove every breakpoint, engine-side and tracked.",
		nil,
		func(rt *Runtime, _ json.RawMessage) (any, error) {
			if _, err := rt.Sim.RemoveBreakpoints(); err != nil {
				return nil, err
			}
			return map[string]any{"success": true, "message": "all breakpoints removed"}, nil
		})

	r.register("get_simulation_messages", "simulation",
		"Collect simulator log messages classified by severity.",
		&simMessagesArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a simMessagesArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			cmd := "get_msg_config -count"
			if a.Severity != "" && a.Severity != "all" {
				cmd = fmt.Sprintf("get_msg_config -count -severity {%s}", a.Severity)
			}
			tx, err := rt.Engine.Execute(cmd)
			if err != nil {
				return nil, err
			}
			parsed := report.ParseMessages(tx.Output)
			return map[string]any{
				"success":  tx.Succeeded(),
				"messages": parsed.Messages,
				"counts":   parsed.Counts,
				"raw":      strings.TrimSpace(tx.Output),
			}, nil
		})
}

func defaultRadix(radix string) string {
	if radix == "" {
		return "hex"
	}
	return radix
}
