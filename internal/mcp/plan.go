package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/deixis/driftscan/internal/plan"
	"github.com/deixis/driftscan/internal/report"
	"github.com/deixis/driftscan/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type planParams struct {
	Path           string `json:"path,omitempty" jsonschema:"root directory to scan, absolute or relative to the server root. Defaults to the server root."`
	MaxConcurrency int    `json:"max_concurrency,omitempty" jsonschema:"maximum number of plans running at once. Defaults to the configured concurrency."`
}

func (h *handler) planHandler(ctx context.Context, req *mcp.CallToolRequest, params planParams) (*mcp.CallToolResult, any, error) {
	if params.MaxConcurrency < 0 {
		return errorResult("max_concurrency must be positive")
	}

	engine := h.currentEngine()
	root := params.Path
	if root != "" && !filepath.IsAbs(root) {
		root = filepath.Join(engine.Root, root)
	}

	rr, err := engine.Plan(ctx, workflow.PlanOptions{Root: root, Concurrency: params.MaxConcurrency})
	if err != nil {
		return errorResult(fmt.Sprintf("plan failed: %v", err))
	}

	text := formatPlan(rr)
	if err := h.store.Save(rr); err != nil {
		h.logger().Printf("saving run %s: %v", rr.ID, err)
		text += fmt.Sprintf("\nWarning: run %s was not saved, drift_inspect is unavailable: %v\n", rr.ID, err)
	}
	return textResult(text)
}

func formatPlan(rr *report.RunResult) string {
	var b strings.Builder
	sum := rr.Summary()

	switch {
	case sum.Failed > 0:
		fmt.Fprintln(&b, "Status: FAIL")
	case sum.Drifted > 0:
		fmt.Fprintln(&b, "Status: DRIFT")
	default:
		fmt.Fprintln(&b, "Status: CLEAN")
	}
	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	fmt.Fprintf(&b, "Root: %s\n", rr.Root)
	fmt.Fprintf(&b, "Units: %d (%d succeeded, %d failed, %d drifted, %d changes)\n",
		sum.Total, sum.Succeeded, sum.Failed, sum.Drifted, sum.Changes)
	if rr.Skipped > 0 {
		fmt.Fprintf(&b, "Skipped entries: %d\n", rr.Skipped)
	}
	fmt.Fprintln(&b)

	if sum.Total == 0 {
		fmt.Fprintln(&b, "No terragrunt directories found.")
		return b.String()
	}

	fmt.Fprintln(&b, "Outcomes:")
	for _, o := range report.Sorted(rr.Outcomes) {
		fmt.Fprintf(&b, "  %s: %s\n", rr.RelPath(o.Path), describe(o))
	}
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Inspect with drift_inspect(run_id=%q, path=\"<unit path>\").\n", rr.ID)

	return b.String()
}

// describe renders the one-line verdict for an outcome.
func describe(o plan.Outcome) string {
	switch {
	case o.Status == plan.Failed:
		msg := firstLine(o.Error)
		if msg == "" {
			return "error"
		}
		return "error: " + msg
	case o.Changes > 0:
		return fmt.Sprintf("drift detected with %d changes", o.Changes)
	default:
		return "no drift"
	}
}

// firstLine returns the first non-empty line of s, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
