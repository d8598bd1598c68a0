package engine

import (
	"regexp"
	"strings"
)

// engineErrorPattern matches real engine errors, which carry a bracketed
// message code: "ERROR: [Synth 8-87] ...". Report tables that merely contain
// the word ERROR ("| Timing ERROR | 0 |") do not match.
var engineErrorPattern = regexp.MustCompile(`^ERROR:\s*\[`)

// tclErrorPatterns match TCL-level failures, which the engine prints at the
// start of the response without an ERROR: prefix.
var tclErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^invalid command name`),
	regexp.MustCompile(`(?i)^wrong # args:`),
	regexp.MustCompile(`(?i)^can't read ".*": no such variable`),
	regexp.MustCompile(`(?i)^expected .* but got`),
	regexp.MustCompile(`(?i)^couldn't open`),
	regexp.MustCompile(`(?i)^no files matched`),
}

// reportIndicators suggest the output is report or table data, where
// error-like strings are values rather than failures.
var reportIndicators = []string{
	"WNS(ns)",
	"TNS(ns)",
	"WHS(ns)",
	"+---------",
	"|------",
	"| Site Type",
	"| Resource",
	"Utilization",
	"Design Timing Summary",
	"Clock Summary",
}

// Classification describes what kind of errors, if any, a response contains.
type Classification struct {
	TCLError      bool     `json:"tcl_error"`
	EngineError   bool     `json:"engine_error"`
	ReportContent bool     `json:"report_content"`
	Messages      []string `json:"messages,omitempty"`
}

// Failed reports whether the response represents a real command failure.
func (c Classification) Failed() bool {
	return c.TCLError || c.EngineError
}

// Classify inspects cleaned response text for failure markers. TCL errors
// are only recognized in the first few lines, engine errors anywhere.
func Classify(output string) Classification {
	var c Classification
	lines := strings.Split(strings.TrimSpace(output), "\n")

	for i, line := range lines {
		if i >= 5 {
			break
		}
		stripped := strings.TrimSpace(line)
		for _, pat := range tclErrorPatterns {
			if pat.MatchString(stripped) {
				c.TCLError = true
				c.Messages = append(c.Messages, stripped)
			}
		}
	}

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if engineErrorPattern.MatchString(stripped) {
			c.EngineError = true
			c.Messages = append(c.Messages, stripped)
		}
	}

	for _, ind := range reportIndicators {
		if strings.Contains(output, ind) {
			c.ReportContent = true
			break
		}
	}

	return c
}
