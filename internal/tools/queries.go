package tools

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/edaforge/vivactl/internal/report"
)

type hierarchyArgs struct {
	MaxDepth        int    `json:"max_depth,omitempty" jsonschema:"description=Deepest hierarchy level to include (default 3)"`
	InstancePattern string `json:"instance_pattern,omitempty" jsonschema:"description=Glob pattern restricting instances (default *)"`
}

type objectQueryArgs struct {
	Pattern string `json:"pattern,omitempty" jsonschema:"description=Glob pattern restricting object names (default *)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Maximum objects to return (default 100)"`
}

type runTclArgs struct {
	Command        string `json:"command" jsonschema:"required,description=Raw tcl command to run in the engine"`
	TimeoutSeconds int    `json:"timeout,omitempty" jsonschema:"description=Idle timeout in seconds for this command"`
}

func registerQueryTools(r *Registry) {
	r.register("get_design_hierarchy", "query",
		"List the instance hierarchy of the open design as a depth-filtered tree.",
		&hierarchyArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a hierarchyArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			if a.MaxDepth <= 0 {
				a.MaxDepth = 3
			}
			if a.InstancePattern == "" {
				a.InstancePattern = "*"
			}

			tx, err := rt.Engine.Execute(fmt.Sprintf("get_cells -hierarchical {%s}", a.InstancePattern))
			if err != nil {
				return nil, err
			}
			h := report.ParseHierarchy(tx.Output, a.MaxDepth)

			resp := map[string]any{
				"success":    tx.Succeeded(),
				"elapsed_ms": tx.Elapsed.Milliseconds(),
				"cell_count": len(h.Cells),
				"tree":       h.Tree,
			}
			// Bound the flat listing; the tree already gives the shape.
			const maxFlatCells = 500
			if len(h.Cells) > maxFlatCells {
				resp["cells"] = h.Cells[:maxFlatCells]
				resp["truncated"] = true
			} else {
				resp["cells"] = h.Cells
			}
			if len(tx.Errors) > 0 {
				resp["errors"] = tx.Errors
			}
			return resp, nil
		})

	r.register("get_ports", "query",
		"List the design's top-level ports with bus widths parsed from name suffixes.",
		&objectQueryArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			return objectQuery(rt, args, "get_ports", report.KindPorts)
		})

	r.register("get_nets", "query",
		"Search the design's nets by pattern.",
		&objectQueryArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			return objectQuery(rt, args, "get_nets", report.KindNets)
		})

	r.register("get_cells", "query",
		"Search the design's cells/instances by pattern.",
		&objectQueryArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			return objectQuery(rt, args, "get_cells", report.KindCells)
		})

	r.register("run_tcl", "raw",
		"Run an arbitrary tcl command in the engine. Escape hatch for operations without a dedicated tool.",
		&runTclArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a runTclArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			if a.Command == "" {
				return nil, fmt.Errorf("invalid arguments: command is required")
			}

			var timeout time.Duration
			if a.TimeoutSeconds > 0 {
				timeout = time.Duration(a.TimeoutSeconds) * time.Second
			}
			tx, err := rt.Engine.ExecuteTimeout(a.Command, timeout)
			if err != nil {
				return nil, err
			}
			return transactionResult(tx), nil
		})
}

// objectQuery runs one bounded object listing command and parses the result
// into ordered records.
func objectQuery(rt *Runtime, args json.RawMessage, tclCmd string, kind report.Kind) (any, error) {
	var a objectQueryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Pattern == "" {
		a.Pattern = "*"
	}
	if a.Limit <= 0 {
		a.Limit = 100
	}

	// lrange bounds the result inside the engine, before it crosses the pty.
	tx, err := rt.Engine.Execute(fmt.Sprintf("lrange [%s {%s}] 0 %d", tclCmd, a.Pattern, a.Limit-1))
	if err != nil {
		return nil, err
	}

	parsed := report.Parse(kind, tx.Output)
	resp := map[string]any{
		"success":    tx.Succeeded(),
		"elapsed_ms": tx.Elapsed.Milliseconds(),
		"objects":    parsed.Objects,
		"count":      len(parsed.Objects),
	}
	if len(tx.Errors) > 0 {
		resp["errors"] = tx.Errors
	}
	return resp, nil
}
