// Package report converts the engine's unstructured text reports into typed
// data. Parsers are stateless and never fail: when a recognized field pattern
// is absent the field is omitted and the parse-incomplete flag is set, so a
// malformed report degrades to raw text instead of an error.
package report

// Kind identifies a report shape.
type Kind string

const (
	KindTimingSummary Kind = "timing_summary"
	KindTimingPaths   Kind = "timing_paths"
	KindUtilization   Kind = "utilization"
	KindMessages      Kind = "messages"
	KindClocks        Kind = "clocks"
	KindHierarchy     Kind = "hierarchy"
	KindPorts         Kind = "ports"
	KindNets          Kind = "nets"
	KindCells         Kind = "cells"
)

// Report is the tagged result of parsing one report. Exactly one variant
// field is set, matching Kind.
type Report struct {
	Kind        Kind           `json:"kind"`
	Timing      *TimingSummary `json:"timing,omitempty"`
	TimingPaths []TimingPath   `json:"timing_paths,omitempty"`
	Utilization *Utilization   `json:"utilization,omitempty"`
	Messages    *MessageList   `json:"messages,omitempty"`
	Clocks      *ClockList     `json:"clocks,omitempty"`
	Hierarchy   *Hierarchy     `json:"hierarchy,omitempty"`
	Objects     []Object       `json:"objects,omitempty"`
	Incomplete  bool           `json:"parse_incomplete"`
	Raw         string         `json:"raw,omitempty"`
}

// parsers maps each report kind to its parse function. New report shapes are
// added here, not by branching in callers.
var parsers = map[Kind]func(raw string) Report{
	KindTimingSummary: func(raw string) Report {
		t := ParseTimingSummary(raw)
		return Report{Kind: KindTimingSummary, Timing: &t, Incomplete: t.Incomplete, Raw: raw}
	},
	KindTimingPaths: func(raw string) Report {
		paths := ParseTimingPaths(raw, 0)
		return Report{Kind: KindTimingPaths, TimingPaths: paths, Incomplete: len(paths) == 0, Raw: raw}
	},
	KindUtilization: func(raw string) Report {
		u := ParseUtilization(raw)
		return Report{Kind: KindUtilization, Utilization: &u, Incomplete: u.Incomplete, Raw: raw}
	},
	KindMessages: func(raw string) Report {
		m := ParseMessages(raw)
		return Report{Kind: KindMessages, Messages: &m, Raw: raw}
	},
	KindClocks: func(raw string) Report {
		c := ParseClocks(raw)
		return Report{Kind: KindClocks, Clocks: &c, Incomplete: c.Incomplete, Raw: raw}
	},
	KindHierarchy: func(raw string) Report {
		// No depth filter here; callers wanting one use ParseHierarchy.
		h := ParseHierarchy(raw, -1)
		return Report{Kind: KindHierarchy, Hierarchy: &h, Raw: raw}
	},
	KindPorts: func(raw string) Report {
		return Report{Kind: KindPorts, Objects: ParseObjectList(raw, "port"), Raw: raw}
	},
	KindNets: func(raw string) Report {
		return Report{Kind: KindNets, Objects: ParseObjectList(raw, "net"), Raw: raw}
	},
	KindCells: func(raw string) Report {
		return Report{Kind: KindCells, Objects: ParseObjectList(raw, "cell"), Raw: raw}
	},
}

// Parse dispatches raw text to the parser registered for kind. Unknown kinds
// return the raw text with the incomplete flag set.
func Parse(kind Kind, raw string) Report {
	if p, ok := parsers[kind]; ok {
		return p(raw)
	}
	return Report{Kind: kind, Incomplete: true, Raw: raw}
}
