package tools

import (
	"encoding/json"
	"fmt"

	"github.com/edaforge/vivactl/internal/report"
)

type timingSummaryArgs struct {
	DetailLevel string `json:"detail_level,omitempty" jsonschema:"enum=summary,enum=standard,enum=full,description=How much raw report text to include"`
}

type timingPathsArgs struct {
	NumPaths       int     `json:"num_paths,omitempty" jsonschema:"description=Maximum number of paths to report (default 10)"`
	SlackThreshold float64 `json:"slack_threshold,omitempty" jsonschema:"description=Only report paths with slack below this value (default 0)"`
	PathType       string  `json:"path_type,omitempty" jsonschema:"enum=setup,enum=hold,description=Analyze setup (max delay) or hold (min delay) paths"`
	FromPin        string  `json:"from_pin,omitempty" jsonschema:"description=Restrict paths to those starting at this pin or cell"`
	ToPin          string  `json:"to_pin,omitempty" jsonschema:"description=Restrict paths to those ending at this pin or cell"`
	Through        string  `json:"through,omitempty" jsonschema:"description=Restrict paths to those passing through this point"`
	Clock          string  `json:"clock,omitempty" jsonschema:"description=Restrict paths to this clock domain"`
	DetailLevel    string  `json:"detail_level,omitempty" jsonschema:"enum=summary,enum=standard,enum=full"`
}

type utilizationArgs struct {
	Hierarchical bool   `json:"hierarchical,omitempty" jsonschema:"description=Break utilization down per module"`
	ModuleFilter string `json:"module_filter,omitempty" jsonschema:"description=Pattern limiting the hierarchical breakdown"`
	DetailLevel  string `json:"detail_level,omitempty" jsonschema:"enum=summary,enum=standard,enum=full"`
}

type messagesArgs struct {
	Severity string `json:"severity,omitempty" jsonschema:"enum=all,enum=error,enum=critical_warning,enum=warning,enum=info,description=Only return messages of this severity"`
}

func registerReportTools(r *Registry) {
	r.register("get_timing_summary", "report",
		"Run a timing summary report and return parsed slack metrics (WNS/TNS/WHS/THS) plus whether timing is met.",
		&timingSummaryArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a timingSummaryArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}

			tx, err := rt.Engine.Execute("report_timing_summary -no_header -return_string")
			if err != nil {
				return nil, err
			}

			parsed := report.ParseTimingSummary(tx.Output)
			raw := parsed.Raw
			parsed.Raw = ""

			resp := map[string]any{
				"success":    tx.Succeeded(),
				"elapsed_ms": tx.Elapsed.Milliseconds(),
				"timing":     parsed,
			}
			attachRaw(rt, resp, raw, a.DetailLevel)
			return resp, nil
		})

	r.register("get_timing_paths", "report",
		"Report the worst timing paths with optional endpoint and clock filters, parsed into per-path summaries.",
		&timingPathsArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a timingPathsArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			if a.NumPaths <= 0 {
				a.NumPaths = 10
			}

			delayType := "max"
			if a.PathType == "hold" {
				delayType = "min"
			}
			cmd := fmt.Sprintf("report_timing -delay_type %s -max_paths %d -slack_lesser_than %g",
				delayType, a.NumPaths, a.SlackThreshold)
			if a.FromPin != "" {
				cmd += fmt.Sprintf(" -from {%s}", a.FromPin)
			}
			if a.ToPin != "" {
				cmd += fmt.Sprintf(" -to {%s}", a.ToPin)
			}
			if a.Through != "" {
				cmd += fmt.Sprintf(" -through {%s}", a.Through)
			}
			if a.Clock != "" {
				cmd += fmt.Sprintf(" -filter {CLOCK == %s}", a.Clock)
			}
			cmd += " -return_string"

			tx, err := rt.Engine.Execute(cmd)
			if err != nil {
				return nil, err
			}

			paths := report.ParseTimingPaths(tx.Output, a.NumPaths)
			resp := map[string]any{
				"success":    tx.Succeeded(),
				"elapsed_ms": tx.Elapsed.Milliseconds(),
				"paths":      paths,
				"path_count": len(paths),
			}
			if len(tx.Errors) > 0 {
				resp["errors"] = tx.Errors
			}
			attachRaw(rt, resp, tx.Output, a.DetailLevel)
			return resp, nil
		})

	r.register("get_utilization", "report",
		"Run a utilization report and return parsed per-resource usage (LUT/FF/BRAM/DSP/IO).",
		&utilizationArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a utilizationArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}

			cmd := "report_utilization -return_string"
			if a.Hierarchical {
				cmd += " -hierarchical"
				if a.ModuleFilter != "" {
					cmd += fmt.Sprintf(" -hierarchical_pattern {%s}", a.ModuleFilter)
				}
			}

			tx, err := rt.Engine.Execute(cmd)
			if err != nil {
				return nil, err
			}

			parsed := report.ParseUtilization(tx.Output)
			raw := parsed.Raw
			parsed.Raw = ""

			resp := map[string]any{
				"success":     tx.Succeeded(),
				"elapsed_ms":  tx.Elapsed.Milliseconds(),
				"utilization": parsed,
			}
			attachRaw(rt, resp, raw, a.DetailLevel)
			return resp, nil
		})

	r.register("get_clocks", "report",
		"Report the design's clocks with period and waveform parsed per clock.",
		nil,
		func(rt *Runtime, _ json.RawMessage) (any, error) {
			tx, err := rt.Engine.Execute("report_clocks -return_string")
			if err != nil {
				return nil, err
			}
			parsed := report.ParseClocks(tx.Output)
			parsed.Raw = ""
			return map[string]any{
				"success":    tx.Succeeded(),
				"elapsed_ms": tx.Elapsed.Milliseconds(),
				"clocks":     parsed,
			}, nil
		})

	r.register("get_messages", "report",
		"Collect the engine's message log classified by severity, preserving order.",
		&messagesArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a messagesArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}

			tx, err := rt.Engine.Execute("get_msg_config -rules")
			if err != nil {
				return nil, err
			}
			parsed := report.ParseMessages(tx.Output)
			parsed.Raw = ""

			resp := map[string]any{
				"success":    tx.Succeeded(),
				"elapsed_ms": tx.Elapsed.Milliseconds(),
				"counts":     parsed.Counts,
			}
			if a.Severity == "" || a.Severity == "all" {
				resp["messages"] = parsed.Messages
			} else {
				resp["messages"] = parsed.Filter(report.Severity(a.Severity))
			}
			return resp, nil
		})
}
