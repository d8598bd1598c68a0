package tools

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/edaforge/vivactl/internal/envelope"
)

type fullReportArgs struct {
	ReportType   string `json:"report_type,omitempty" jsonschema:"enum=timing,enum=timing_summary,enum=utilization,enum=hierarchy,enum=clocks,enum=power,enum=drc,description=Which report to generate (default timing)"`
	NumPaths     int    `json:"num_paths,omitempty" jsonschema:"description=Path count for timing reports (default 100)"`
	Hierarchical bool   `json:"hierarchical,omitempty" jsonschema:"description=Hierarchical breakdown for utilization reports"`
	OutputFile   string `json:"output_file,omitempty" jsonschema:"description=Explicit destination path; default is a managed reports directory"`
}

type readSectionArgs struct {
	ReportID      string `json:"report_id,omitempty" jsonschema:"description=ID returned by generate_full_report"`
	FilePath      string `json:"file_path,omitempty" jsonschema:"description=Direct path to a report file (alternative to report_id)"`
	StartLine     int    `json:"start_line,omitempty" jsonschema:"description=First line to read, 1-indexed (default 1)"`
	NumLines      int    `json:"num_lines,omitempty" jsonschema:"description=Lines to read (default 100)"`
	SearchPattern string `json:"search_pattern,omitempty" jsonschema:"description=Case-insensitive regex; the window is centered on the first match"`
}

// fullReportCommands maps report types to the engine commands that produce
// them. The -file form writes directly to disk inside the engine, so the
// report never crosses the pty and cannot be truncated in transit.
var fullReportCommands = map[string]string{
	"timing":         "report_timing -max_paths %d",
	"timing_summary": "report_timing_summary",
	"utilization":    "report_utilization",
	"hierarchy":      "report_hierarchy",
	"clocks":         "report_clocks",
	"power":          "report_power",
	"drc":            "report_drc",
}

func registerFileTools(r *Registry) {
	r.register("generate_full_report", "files",
		"Write a complete report to a file and return only its path and size. Use read_report_section to page through it.",
		&fullReportArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a fullReportArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			if a.ReportType == "" {
				a.ReportType = "timing"
			}
			if a.NumPaths <= 0 {
				a.NumPaths = 100
			}

			base, ok := fullReportCommands[a.ReportType]
			if !ok {
				base = "report_" + a.ReportType
			}
			if a.ReportType == "timing" {
				base = fmt.Sprintf(base, a.NumPaths)
			}
			if a.ReportType == "utilization" && a.Hierarchical {
				base += " -hierarchical"
			}

			id, path, err := rt.Reports.NewPath(a.ReportType)
			if err != nil {
				return nil, err
			}
			if a.OutputFile != "" {
				path = a.OutputFile
			}

			tx, err := rt.Engine.ExecuteTimeout(fmt.Sprintf("%s -file {%s}", base, path), 10*time.Minute)
			if err != nil {
				return nil, err
			}
			if !tx.Succeeded() {
				return map[string]any{
					"success":    false,
					"completion": tx.Completion,
					"error":      tx.Output,
				}, nil
			}

			art, err := rt.Reports.Register(id, path, a.ReportType)
			if err != nil {
				return nil, fmt.Errorf("report generated but unreadable: %w", err)
			}
			return map[string]any{
				"success":    true,
				"report":     art,
				"elapsed_ms": tx.Elapsed.Milliseconds(),
				"message":    fmt.Sprintf("report written to %s; use read_report_section to read portions", path),
			}, nil
		})

	r.register("read_report_section", "files",
		"Read a bounded line range from a previously generated report file. Purely local, never touches the engine.",
		&readSectionArgs{},
		func(rt *Runtime, args json.RawMessage) (any, error) {
			var a readSectionArgs
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}

			path := a.FilePath
			if a.ReportID != "" {
				resolved, err := rt.Reports.Resolve(a.ReportID)
				if err != nil {
					return nil, err
				}
				path = resolved
			}
			if path == "" {
				return nil, fmt.Errorf("invalid arguments: report_id or file_path is required")
			}

			section, err := envelope.ReadSection(path, a.StartLine, a.NumLines, a.SearchPattern)
			if err != nil {
				return nil, err
			}
			return map[string]any{"success": true, "section": section}, nil
		})
}
