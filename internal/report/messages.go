package report

import "strings"

// Severity classifies one engine message line.
type Severity string

const (
	SeverityError           Severity = "error"
	SeverityCriticalWarning Severity = "critical_warning"
	SeverityWarning         Severity = "warning"
	SeverityInfo            Severity = "info"
)

// Message is a single classified engine message.
type Message struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// MessageList holds all classified messages in their original order.
type MessageList struct {
	Messages []Message        `json:"messages"`
	Counts   map[Severity]int `json:"counts"`
	Raw      string           `json:"raw,omitempty"`
}

// severityPrefixes in match order; CRITICAL WARNING must be tried before
// WARNING.
var severityPrefixes = []struct {
	prefix   string
	severity Severity
}{
	{"ERROR:", SeverityError},
	{"CRITICAL WARNING:", SeverityCriticalWarning},
	{"WARNING:", SeverityWarning},
	{"INFO:", SeverityInfo},
}

// ParseMessages classifies each line by its severity token. Lines without a
// severity prefix are dropped; ordering of classified lines is preserved.
func ParseMessages(raw string) MessageList {
	list := MessageList{
		Counts: make(map[Severity]int),
		Raw:    raw,
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		for _, sp := range severityPrefixes {
			if strings.HasPrefix(line, sp.prefix) {
				list.Messages = append(list.Messages, Message{Severity: sp.severity, Text: line})
				list.Counts[sp.severity]++
				break
			}
		}
	}

	return list
}

// Filter returns the messages of one severity, preserving order.
func (l MessageList) Filter(sev Severity) []Message {
	var out []Message
	for _, m := range l.Messages {
		if m.Severity == sev {
			out = append(out, m)
		}
	}
	return out
}
