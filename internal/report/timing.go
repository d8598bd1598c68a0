package report

import (
	"regexp"
	"strconv"
	"strings"
)

// TimingSummary holds the slack metrics from a timing summary report.
// Missing metrics stay nil rather than reading as a misleading zero slack.
type TimingSummary struct {
	WNS              *float64 `json:"wns,omitempty"`
	TNS              *float64 `json:"tns,omitempty"`
	WHS              *float64 `json:"whs,omitempty"`
	THS              *float64 `json:"ths,omitempty"`
	WPWS             *float64 `json:"wpws,omitempty"`
	TPWS             *float64 `json:"tpws,omitempty"`
	FailingEndpoints *int     `json:"failing_endpoints,omitempty"`
	Met              *bool    `json:"met,omitempty"`
	Incomplete       bool     `json:"parse_incomplete"`
	Raw              string   `json:"raw,omitempty"`
}

// slackField is one metric extractor. The labeled-line regex covers
// "WNS(ns): -0.250" layouts; the columnar table layout is resolved by
// header position instead, because other column headers sit between the
// label and its value there.
type slackField struct {
	label    string
	re       *regexp.Regexp
	required bool
	assign   func(*TimingSummary, float64)
}

var timingFields = []slackField{
	{"WNS(ns)", regexp.MustCompile(`WNS\(ns\)\s*:?\s*(-?[\d.]+)`), true, func(t *TimingSummary, v float64) { t.WNS = &v }},
	{"TNS(ns)", regexp.MustCompile(`TNS\(ns\)\s*:?\s*(-?[\d.]+)`), true, func(t *TimingSummary, v float64) { t.TNS = &v }},
	{"WHS(ns)", regexp.MustCompile(`WHS\(ns\)\s*:?\s*(-?[\d.]+)`), true, func(t *TimingSummary, v float64) { t.WHS = &v }},
	{"THS(ns)", regexp.MustCompile(`THS\(ns\)\s*:?\s*(-?[\d.]+)`), true, func(t *TimingSummary, v float64) { t.THS = &v }},
	{"WPWS(ns)", regexp.MustCompile(`WPWS\(ns\)\s*:?\s*(-?[\d.]+)`), false, func(t *TimingSummary, v float64) { t.WPWS = &v }},
	{"TPWS(ns)", regexp.MustCompile(`TPWS\(ns\)\s*:?\s*(-?[\d.]+)`), false, func(t *TimingSummary, v float64) { t.TPWS = &v }},
}

var (
	failingEndpointsRe = regexp.MustCompile(`(?i)(\d+)\s+failing\s+endpoint`)
	numberTokenRe      = regexp.MustCompile(`-?[\d.]+`)
	numericRowRe       = regexp.MustCompile(`^[\s\d.\-]+$`)
)

// ParseTimingSummary extracts slack metrics from a timing summary report,
// in either the labeled-line or the columnar table layout. Met is computed
// only when both setup and hold slacks were found.
func ParseTimingSummary(raw string) TimingSummary {
	t := TimingSummary{Raw: raw}
	columns := columnarValues(raw)

	for _, f := range timingFields {
		if m := f.re.FindStringSubmatch(raw); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				f.assign(&t, v)
				continue
			}
		}
		if v, ok := columns[f.label]; ok {
			f.assign(&t, v)
			continue
		}
		if f.required {
			t.Incomplete = true
		}
	}

	if m := failingEndpointsRe.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			t.FailingEndpoints = &n
		}
	} else if v, ok := columns["TNS Failing Endpoints"]; ok {
		n := int(v)
		t.FailingEndpoints = &n
	}

	if t.WNS != nil && t.WHS != nil {
		met := *t.WNS >= 0 && *t.WHS >= 0
		t.Met = &met
	}

	return t
}

// columnarValues resolves the columnar summary layout: a header row naming
// the metrics and, a row or two below it, the numbers right-aligned under
// their headers. Each header maps to the numeric token whose end column is
// nearest its own.
func columnarValues(raw string) map[string]float64 {
	lines := strings.Split(raw, "\n")
	out := make(map[string]float64)

	for i, header := range lines {
		if !strings.Contains(header, "WNS(ns)") || !strings.Contains(header, "TNS(ns)") {
			continue
		}

		var values string
		for _, line := range lines[i+1:] {
			if numericRowRe.MatchString(line) && strings.ContainsAny(line, "0123456789") {
				values = line
				break
			}
		}
		if values == "" {
			break
		}

		tokens := numberTokenRe.FindAllStringIndex(values, -1)
		labels := []string{"WNS(ns)", "TNS(ns)", "WHS(ns)", "THS(ns)", "WPWS(ns)", "TPWS(ns)", "TNS Failing Endpoints"}
		for _, label := range labels {
			idx := strings.Index(header, label)
			if idx < 0 {
				continue
			}
			labelEnd := idx + len(label)

			best, bestDist := -1, 0
			for ti, span := range tokens {
				dist := span[1] - labelEnd
				if dist < 0 {
					dist = -dist
				}
				if best < 0 || dist < bestDist {
					best, bestDist = ti, dist
				}
			}
			if best < 0 {
				continue
			}
			if v, err := strconv.ParseFloat(values[tokens[best][0]:tokens[best][1]], 64); err == nil {
				out[label] = v
			}
		}
		break
	}

	return out
}

// TimingPath is the summary of one path block from a timing path report.
type TimingPath struct {
	Slack         *float64 `json:"slack,omitempty"`
	Source        string   `json:"source,omitempty"`
	Destination   string   `json:"destination,omitempty"`
	SourceClock   string   `json:"source_clock,omitempty"`
	DestClock     string   `json:"dest_clock,omitempty"`
	Requirement   *float64 `json:"requirement,omitempty"`
	DataPathDelay *float64 `json:"data_path_delay,omitempty"`
	LogicLevels   *int     `json:"logic_levels,omitempty"`
}

var (
	pathSplitRe    = regexp.MustCompile(`\n(?:\r)?(?:Slack\s*(?:\([A-Z]+\))?\s*:)`)
	pathSlackRe    = regexp.MustCompile(`Slack\s*(?:\([A-Z]+\))?\s*:\s*(-?[\d.]+)\s*ns`)
	pathSourceRe   = regexp.MustCompile(`Source:\s*(\S+)`)
	pathDestRe     = regexp.MustCompile(`Destination:\s*(\S+)`)
	pathSrcClkRe   = regexp.MustCompile(`Source Clock:\s*(\S+)`)
	pathDstClkRe   = regexp.MustCompile(`Destination Clock:\s*(\S+)`)
	pathReqRe      = regexp.MustCompile(`Requirement:\s*(-?[\d.]+)\s*ns`)
	pathDataRe     = regexp.MustCompile(`Data Path Delay:\s*(-?[\d.]+)\s*ns`)
	pathLevelsRe   = regexp.MustCompile(`Logic Levels:\s*(\d+)`)
	pathBlockStart = "Slack"
)

// ParseTimingPaths extracts one summary per path block. maxPaths <= 0 means
// no limit. Blocks without a parseable slack are skipped.
func ParseTimingPaths(raw string, maxPaths int) []TimingPath {
	var paths []TimingPath

	// Each path block opens with a "Slack ... :" line; re-prefix the split
	// marker so the block still contains its own slack line.
	blocks := pathSplitRe.Split(raw, -1)
	for i, block := range blocks {
		if i > 0 {
			block = "Slack:" + block
		}
		if !strings.Contains(block, pathBlockStart) {
			continue
		}

		var p TimingPath
		if m := pathSlackRe.FindStringSubmatch(block); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				p.Slack = &v
			}
		}
		if p.Slack == nil {
			continue
		}
		if m := pathSourceRe.FindStringSubmatch(block); m != nil {
			p.Source = m[1]
		}
		if m := pathDestRe.FindStringSubmatch(block); m != nil {
			p.Destination = m[1]
		}
		if m := pathSrcClkRe.FindStringSubmatch(block); m != nil {
			p.SourceClock = m[1]
		}
		if m := pathDstClkRe.FindStringSubmatch(block); m != nil {
			p.DestClock = m[1]
		}
		if m := pathReqRe.FindStringSubmatch(block); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				p.Requirement = &v
			}
		}
		if m := pathDataRe.FindStringSubmatch(block); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				p.DataPathDelay = &v
			}
		}
		if m := pathLevelsRe.FindStringSubmatch(block); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				p.LogicLevels = &n
			}
		}

		paths = append(paths, p)
		if maxPaths > 0 && len(paths) >= maxPaths {
			break
		}
	}

	return paths
}
