package report

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Object is one named design object from a list-shaped query response.
type Object struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Width *int   `json:"width,omitempty"`
}

// busSuffix matches "[7:0]" and "[3]" bus suffixes on object names.
var busSuffix = regexp.MustCompile(`\[(\d+)(?::(\d+))?\]$`)

// ParseObjectList splits a whitespace-separated object listing into ordered
// records, annotating bus widths where the name carries a range suffix.
func ParseObjectList(raw, typ string) []Object {
	var objects []Object
	for _, name := range strings.Fields(raw) {
		obj := Object{Name: name, Type: typ}
		if m := busSuffix.FindStringSubmatch(name); m != nil {
			high, _ := strconv.Atoi(m[1])
			width := 1
			if m[2] != "" {
				low, _ := strconv.Atoi(m[2])
				if low > high {
					high, low = low, high
				}
				width = high - low + 1
			}
			obj.Width = &width
		}
		objects = append(objects, obj)
	}
	return objects
}

// Clock is one row of a clock report.
type Clock struct {
	Name       string    `json:"name"`
	PeriodNs   *float64  `json:"period_ns,omitempty"`
	WaveformNs []float64 `json:"waveform_ns,omitempty"`
	Sources    []string  `json:"sources,omitempty"`
}

// ClockList holds all clocks from a clock report.
type ClockList struct {
	Clocks     []Clock `json:"clocks"`
	Incomplete bool    `json:"parse_incomplete"`
	Raw        string  `json:"raw,omitempty"`
}

// clockRowRe matches a clock table row: name, period, "{rise fall}" waveform
// and an optional trailing "{sources}" group.
var clockRowRe = regexp.MustCompile(`^(\S+)\s+([\d.]+)\s+\{([^}]*)\}(?:.*\{([^}]*)\})?`)

// ParseClocks extracts rows from a clock report table. Header and border
// lines are skipped; anything else that fails the row shape marks the parse
// incomplete rather than aborting it.
func ParseClocks(raw string) ClockList {
	list := ClockList{Raw: raw}
	sawHeader := false

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "Clock") && strings.Contains(line, "Period") {
			sawHeader = true
			continue
		}
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "=") {
			continue
		}

		m := clockRowRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		clk := Clock{Name: m[1]}
		if p, err := strconv.ParseFloat(m[2], 64); err == nil {
			clk.PeriodNs = &p
		}
		for _, f := range strings.Fields(m[3]) {
			if v, err := strconv.ParseFloat(f, 64); err == nil {
				clk.WaveformNs = append(clk.WaveformNs, v)
			}
		}
		if m[4] != "" {
			clk.Sources = strings.Fields(m[4])
		}
		list.Clocks = append(list.Clocks, clk)
	}

	if !sawHeader && len(list.Clocks) == 0 && strings.TrimSpace(raw) != "" {
		list.Incomplete = true
	}
	return list
}

// HierarchyNode is one instance in the design hierarchy tree.
type HierarchyNode struct {
	Name     string           `json:"name"`
	Path     string           `json:"path"`
	Depth    int              `json:"depth"`
	Children []*HierarchyNode `json:"children,omitempty"`
}

// Hierarchy is the depth-filtered instance tree built from a hierarchical
// cell listing.
type Hierarchy struct {
	Cells []string         `json:"cells"`
	Tree  []*HierarchyNode `json:"tree,omitempty"`
}

// Depth counts hierarchy separators in a cell path: "cpu/alu/adder" is depth
// two, a top-level instance is depth zero.
func Depth(path string) int {
	return strings.Count(path, "/")
}

// ParseHierarchy builds an instance tree from whitespace-separated
// hierarchical cell paths, keeping only cells at or above maxDepth.
// maxDepth < 0 keeps everything.
func ParseHierarchy(raw string, maxDepth int) Hierarchy {
	var cells []string
	for _, cell := range strings.Fields(raw) {
		if maxDepth >= 0 && Depth(cell) > maxDepth {
			continue
		}
		cells = append(cells, cell)
	}
	sort.Strings(cells)

	h := Hierarchy{Cells: cells}
	index := make(map[string]*HierarchyNode)

	for _, cell := range cells {
		parts := strings.Split(cell, "/")
		var parent *HierarchyNode
		for i := range parts {
			path := strings.Join(parts[:i+1], "/")
			node, ok := index[path]
			if !ok {
				node = &HierarchyNode{Name: parts[i], Path: path, Depth: i}
				index[path] = node
				if parent == nil {
					h.Tree = append(h.Tree, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			}
			parent = node
		}
	}

	return h
}
