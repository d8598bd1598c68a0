// Package display renders terminal output for the vivactl CLI.
package display

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/edaforge/vivactl/internal/engine"
	"github.com/edaforge/vivactl/internal/tools"
)

var (
	groupStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// PrintToolsTable prints the registered tools grouped by category.
func PrintToolsTable(ts []*tools.Tool, writer io.Writer) {
	w := tabwriter.NewWriter(writer, 0, 0, 3, ' ', 0)
	currentGroup := ""
	for _, t := range ts {
		if t.Group != currentGroup {
			if currentGroup != "" {
				fmt.Fprintln(w)
			}
			currentGroup = t.Group
			fmt.Fprintf(w, "%s\n", groupStyle.Render(strings.ToUpper(t.Group)))
		}
		fmt.Fprintf(w, "  %s\t%s\n", nameStyle.Render(t.Name), firstSentence(t.Description))
	}
	w.Flush()
}

// PrintTransaction prints the outcome of a single command exchange.
func PrintTransaction(tx *engine.Transaction, prompt string, writer io.Writer) {
	fmt.Fprintf(writer, "%s %s\n", promptStyle.Render(prompt), tx.Command)
	if tx.Output != "" {
		fmt.Fprintln(writer, tx.Output)
	}
	if tx.Succeeded() {
		fmt.Fprintln(writer, mutedStyle.Render(fmt.Sprintf("ok (%.2fs)", tx.Elapsed.Seconds())))
		return
	}
	fmt.Fprintln(writer, errorStyle.Render(fmt.Sprintf("failed: %s (%.2fs)", tx.Completion, tx.Elapsed.Seconds())))
	for _, e := range tx.Errors {
		fmt.Fprintln(writer, errorStyle.Render("  "+e))
	}
}

// PrintStatus prints a session status snapshot as a key/value table.
func PrintStatus(st engine.Status, writer io.Writer) {
	w := tabwriter.NewWriter(writer, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "state\t%s\n", st.State)
	fmt.Fprintf(w, "executable\t%s\n", st.Executable)
	fmt.Fprintf(w, "commands run\t%d\n", st.CommandsRun)
	fmt.Fprintf(w, "errors seen\t%d\n", st.ErrorsSeen)
	if st.UptimeSeconds > 0 {
		fmt.Fprintf(w, "uptime\t%.0fs\n", st.UptimeSeconds)
	}
	if st.LastCommandAt != nil {
		fmt.Fprintf(w, "last command\t%s\n", st.LastCommandAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
