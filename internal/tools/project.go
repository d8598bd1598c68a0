package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type openProjectArgs struct {
	ProjectPath string `json:"project_path" jsonschema:"required,description=Absolute path to the project file (.xpr)"`
}

type flowArgs struct {
	Jobs           int `json:"jobs,omitempty" jsonschema:"description=Parallel jobs to use (default 4)"`
	TimeoutSeconds int `json:"timeout,omitempty" jsonschema:"description=Idle timeout in seconds for this run"`
}

func registerProjectTools(r *Registry) {
	r.register("open_project", "project",
		"Open a project file in the engine.",
		&openProjectArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a openProjectArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			// Braces keep paths with spaces intact in the engine's tcl.
			tx, err := rt.Engine.Execute(fmt.Sprintf("open_project {%s}", a.ProjectPath))
			if err != nil {
				return nil, err
			}
			if tx.Succeeded() {
				rt.setProject(a.ProjectPath)
			}
			return transactionResult(tx), nil
		})

	r.register("close_project", "project",
		"Close the currently open project.",
		nil,
		func(rt *Runtime, _ json.RawMessage) (any, error) {
			tx, err := rt.Engine.Execute("close_project")
			if err != nil {
				return nil, err
			}
			rt.setProject("")
			return transactionResult(tx), nil
		})

	r.register("get_project_info", "project",
		"Query name, target part, language and directory of the open project.",
		nil,
		func(rt *Runtime, _ json.RawMessage) (any, error) {
			queries := map[string]string{
				"name":      "current_project",
				"part":      "get_property PART [current_project]",
				"language":  "get_property TARGET_LANGUAGE [current_project]",
				"directory": "get_property DIRECTORY [current_project]",
			}
			info := make(map[string]string, len(queries))
			for field, cmd := range queries {
				tx, err := rt.Engine.Execute(cmd)
				if err != nil {
					return nil, err
				}
				if tx.Succeeded() {
					info[field] = strings.TrimSpace(tx.Output)
				}
			}
			return map[string]any{"success": true, "project": info}, nil
		})
}

func registerFlowTools(r *Registry) {
	r.register("run_synthesis", "flow",
		"Reset and launch the synthesis run, blocking until it completes. May take many minutes.",
		&flowArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			return runFlowStep(rt, args, "synth_1",
				"reset_run synth_1; launch_runs synth_1 -jobs %d; wait_on_run synth_1",
				30*time.Minute)
		})

	r.register("run_implementation", "flow",
		"Launch place and route, blocking until it completes. May take an hour or more.",
		&flowArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			return runFlowStep(rt, args, "impl_1",
				"launch_runs impl_1 -jobs %d; wait_on_run impl_1",
				60*time.Minute)
		})

	r.register("generate_bitstream", "flow",
		"Generate the programming file from the completed implementation run.",
		&flowArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			return runFlowStep(rt, args, "impl_1",
				"launch_runs impl_1 -to_step write_bitstream -jobs %d; wait_on_run impl_1",
				60*time.Minute)
		})
}

// runFlowStep executes one flow command and then verifies the run's actual
// status from its properties. Flow output routinely contains error-like
// strings from sub-tools, so the run properties are authoritative.
func runFlowStep(rt *Runtime, args json.RawMessage, runName, cmdFormat string, defaultTimeout time.Duration) (any, error) {
	var a flowArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Jobs <= 0 {
		a.Jobs = 4
	}
	timeout := defaultTimeout
	if a.TimeoutSeconds > 0 {
		timeout = time.Duration(a.TimeoutSeconds) * time.Second
	}

	tx, err := rt.Engine.ExecuteTimeout(fmt.Sprintf(cmdFormat, a.Jobs), timeout)
	if err != nil {
		return nil, err
	}

	status, progress := verifyRunStatus(rt, runName)
	succeeded := strings.Contains(strings.ToLower(status), "complete")

	resp := map[string]any{
		"success":      succeeded,
		"completion":   tx.Completion,
		"elapsed_ms":   tx.Elapsed.Milliseconds(),
		"run_status":   status,
		"run_progress": progress,
	}
	if !tx.Succeeded() && succeeded {
		resp["note"] = "output contained error-like strings but the run completed successfully"
	}
	if len(tx.Errors) > 0 {
		resp["errors"] = tx.Errors
	}
	return resp, nil
}

// verifyRunStatus reads the run's STATUS and PROGRESS properties directly,
// which is more reliable than parsing flow output.
func verifyRunStatus(rt *Runtime, runName string) (status, progress string) {
	status, progress = "unknown", "unknown"
	if tx, err := rt.Engine.Execute(fmt.Sprintf("get_property STATUS [get_runs %s]", runName)); err == nil && tx.Succeeded() {
		status = strings.TrimSpace(tx.Output)
	}
	if tx, err := rt.Engine.Execute(fmt.Sprintf("get_property PROGRESS [get_runs %s]", runName)); err == nil && tx.Succeeded() {
		progress = strings.TrimSpace(tx.Output)
	}
	return status, progress
}
