package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/driftscan/internal/plan"
	"github.com/deixis/driftscan/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a drift_plan result"`
	Path  string `json:"path" jsonschema:"unit directory, relative to the run root (as printed by drift_plan) or absolute. A parent directory selects every unit below it."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if params.Path == "" {
		return errorResult("path is required")
	}

	rr, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	outcomes := report.ByPath(rr, params.Path)
	if len(outcomes) == 0 {
		return textResult(fmt.Sprintf("No outcome for %s in run %s.", params.Path, params.RunID))
	}

	return textResult(formatInspect(rr, outcomes))
}

func formatInspect(rr *report.RunResult, outcomes []plan.Outcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	for i, o := range outcomes {
		if i > 0 {
			fmt.Fprintln(&b, "---")
		}
		fmt.Fprintf(&b, "Unit: %s\n", rr.RelPath(o.Path))
		fmt.Fprintf(&b, "Status: %s\n", o.Status)
		fmt.Fprintf(&b, "Result: %s\n", describe(o))
		if o.Status == plan.Succeeded {
			fmt.Fprintf(&b, "Changes: %d\n", o.Changes)
			fmt.Fprintf(&b, "Plan file: %s\n", o.PlanFile)
		}
		if o.Truncated {
			fmt.Fprintln(&b, "Output: truncated, only the tail was kept")
		}
		if o.Error != "" {
			writeBlock(&b, "Error", o.Error)
		}
		writeBlock(&b, "Stdout", o.Stdout)
		writeBlock(&b, "Stderr", o.Stderr)
	}
	return b.String()
}

func writeBlock(b *strings.Builder, title, text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	fmt.Fprintln(b)
	fmt.Fprintf(b, "%s:\n", title)
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}
