package tools

import (
	"github.com/edaforge/vivactl/internal/engine"
	"github.com/edaforge/vivactl/internal/envelope"
)

// Detail levels for report tools: how much raw engine output rides along
// with the parsed fields.
const (
	detailSummary  = "summary"  // parsed fields only
	detailStandard = "standard" // plus raw output bounded to half the budget
	detailFull     = "full"     // plus raw output bounded to the full budget
)

// transactionResult is the generic response for tools that pass engine
// output through unparsed.
func transactionResult(tx *engine.Transaction) map[string]any {
	resp := map[string]any{
		"success":    tx.Succeeded(),
		"completion": tx.Completion,
		"output":     tx.Output,
		"elapsed_ms": tx.Elapsed.Milliseconds(),
	}
	if len(tx.Errors) > 0 {
		resp["errors"] = tx.Errors
	}
	return resp
}

// attachRaw adds size-bounded raw output to a report response according to
// the requested detail level.
func attachRaw(rt *Runtime, resp map[string]any, raw, detail string) {
	budget := rt.MaxChars
	switch detail {
	case detailStandard:
		// Half the budget, leaving room for the parsed fields.
		budget /= 2
	case detailFull:
	default:
		return
	}

	env := envelope.Wrap(raw, budget)
	resp["raw"] = env.Content
	if env.Truncated {
		resp["raw_truncated"] = true
		resp["raw_total_chars"] = env.TotalChars
		resp["truncation_message"] = env.Message
	}
}
