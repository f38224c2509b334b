// Package workflow provides the batch engine behind the driftscan CLI and
// MCP server: discover units, plan them under a concurrency ceiling, and
// assemble a run report.
package workflow

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/deixis/driftscan/internal/config"
	"github.com/deixis/driftscan/internal/discovery"
	"github.com/deixis/driftscan/internal/plan"
	"github.com/deixis/driftscan/internal/report"
	"github.com/deixis/driftscan/internal/runner"
	"github.com/deixis/driftscan/internal/scheduler"
	"github.com/google/uuid"
)

// Engine holds shared dependencies for plan batches.
type Engine struct {
	Config   *config.Config
	Runner   plan.CommandRunner
	Root     string             // default scan root
	Binary   string             // plan command; plan.DefaultBinary when empty
	Logger   *log.Logger        // log.Default() when nil
	Observer scheduler.Observer // optional
}

// PlanOptions overrides engine defaults for one batch.
type PlanOptions struct {
	Root        string // Engine.Root when empty
	Concurrency int    // Config.Concurrency() when zero
}

// Plan discovers every unit under the root and runs the plan command in
// each. Per-unit failures are recorded as outcomes; an error is returned
// only when the root cannot be walked or, for an overridden root, its
// .driftscan file is invalid.
func (e *Engine) Plan(ctx context.Context, opts PlanOptions) (*report.RunResult, error) {
	cfg := e.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}

	root := opts.Root
	overridden := root != "" && filepath.Clean(root) != filepath.Clean(e.Root)
	if root == "" {
		root = e.Root
	}
	if overridden {
		loaded, err := config.Load(root)
		if err != nil {
			return nil, fmt.Errorf("loading config for %s: %w", root, err)
		}
		cfg = loaded
	}
	limit := opts.Concurrency
	if limit == 0 {
		limit = cfg.Concurrency()
	}

	started := time.Now()
	found, err := discovery.Find(root, discovery.Options{Marker: cfg.Marker(), Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("discovering units: %w", err)
	}
	units := found.Dirs
	if cfg.Dedupe {
		units = discovery.Dedupe(units)
	}

	exec := &plan.Executor{Runner: e.batchRunner(found.Root, cfg, overridden), Binary: e.Binary, Logger: logger}
	sched := &scheduler.Scheduler{Limit: limit, Observer: e.Observer}
	outcomes := sched.Run(ctx, units, exec.Execute)

	return &report.RunResult{
		ID:          uuid.New().String(),
		Root:        found.Root,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Concurrency: limit,
		Units:       len(units),
		Skipped:     found.Skipped,
		Outcomes:    outcomes,
	}, nil
}

// batchRunner returns the runner for one batch. A *runner.Runner is
// re-bounded to the scan root so units outside the engine root can run;
// when the root was overridden its limits come from that root's config.
func (e *Engine) batchRunner(root string, cfg *config.Config, overridden bool) plan.CommandRunner {
	r, ok := e.Runner.(*runner.Runner)
	if !ok {
		return e.Runner
	}
	r = r.WithRoot(root)
	if overridden {
		r.Timeout = cfg.Timeout()
		r.MaxOutput = cfg.MaxOutputBytes()
	}
	return r
}
