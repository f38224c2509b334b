package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/deixis/driftscan/internal/config"
	"github.com/deixis/driftscan/internal/plan"
	"github.com/deixis/driftscan/internal/report"
	"github.com/deixis/driftscan/internal/runner"
	"github.com/deixis/driftscan/internal/workflow"
	"github.com/spf13/cobra"
)

type planFlags struct {
	path             string
	maxConcurrency   int
	timeout          time.Duration
	json             bool
	verbose          bool
	quiet            bool
	detailedExitCode bool
}

func newPlanCmd() *cobra.Command {
	var f planFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan every unit under a root and report drift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.path, "path", "p", ".", "root directory to scan")
	fl.IntVarP(&f.maxConcurrency, "max-concurrency", "m", 0, "maximum plans running at once (default from .driftscan, else 4)")
	fl.DurationVar(&f.timeout, "timeout", 0, "per-unit timeout, 0 for none (overrides .driftscan)")
	fl.BoolVar(&f.json, "json", false, "output the run as JSON")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "include captured stderr for failed units")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "suppress per-unit progress logs")
	fl.BoolVar(&f.detailedExitCode, "detailed-exitcode", false, "exit 1 if any unit failed, 2 if drift was detected")
	return cmd
}

func runPlan(cmd *cobra.Command, f planFlags) error {
	if f.maxConcurrency < 0 {
		return fmt.Errorf("--max-concurrency must be positive")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(f.path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	timeout := cfg.Timeout()
	if cmd.Flags().Changed("timeout") {
		timeout = f.timeout
	}

	logger := log.Default()
	if f.quiet {
		logger = log.New(io.Discard, "", 0)
	}

	root, err := filepath.Abs(f.path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	eng := &workflow.Engine{
		Config: cfg,
		Runner: &runner.Runner{Root: root, Timeout: timeout, MaxOutput: cfg.MaxOutputBytes()},
		Root:   root,
		Logger: logger,
	}

	rr, err := eng.Plan(ctx, workflow.PlanOptions{Concurrency: f.maxConcurrency})
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	out := cmd.OutOrStdout()
	if f.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rr); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, formatReport(rr, newStyles(lipgloss.NewRenderer(out)), f.verbose))
	}

	if f.detailedExitCode {
		if code := exitCode(rr.Summary()); code != 0 {
			return exitError{code: code}
		}
	}
	return nil
}

// styles holds the terminal styles for the text report.
type styles struct {
	drift, clean, failed, dim lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		drift:  r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		clean:  r.NewStyle().Foreground(lipgloss.Color("2")),
		failed: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		dim:    r.NewStyle().Faint(true),
	}
}

func formatReport(rr *report.RunResult, st styles, verbose bool) string {
	var b strings.Builder

	for _, o := range report.Sorted(rr.Outcomes) {
		path := rr.RelPath(o.Path)
		switch {
		case o.Status == plan.Failed:
			fmt.Fprintf(&b, "%s  %s\n", st.failed.Render("error"), path)
			if msg := strings.TrimSpace(o.Error); msg != "" {
				if !verbose {
					msg, _, _ = strings.Cut(msg, "\n")
				}
				for _, line := range strings.Split(msg, "\n") {
					fmt.Fprintf(&b, "       %s\n", st.dim.Render(line))
				}
			}
		case o.Changes > 0:
			fmt.Fprintf(&b, "%s  %s: drift detected with %d changes\n", st.drift.Render("drift"), path, o.Changes)
		default:
			fmt.Fprintf(&b, "%s  %s: no drift\n", st.clean.Render("ok   "), path)
		}
	}

	sum := rr.Summary()
	if sum.Total > 0 {
		fmt.Fprintln(&b)
	}
	fmt.Fprintf(&b, "%d units: %d drifted (%d changes), %d clean, %d failed in %s\n",
		sum.Total, sum.Drifted, sum.Changes, sum.Succeeded-sum.Drifted, sum.Failed,
		rr.Duration().Round(time.Millisecond))
	return b.String()
}

// exitCode maps a summary to the detailed exit code: 1 for failures,
// 2 for drift, 0 otherwise.
func exitCode(sum report.Summary) int {
	switch {
	case sum.Failed > 0:
		return 1
	case sum.Drifted > 0:
		return 2
	default:
		return 0
	}
}
