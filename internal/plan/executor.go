package plan

import (
	"context"
	"log"
	"path/filepath"

	"github.com/deixis/driftscan/internal/runner"
)

const (
	// DefaultBinary is the planning command.
	DefaultBinary = "terragrunt"
	// PlanFileName is the artifact written into each unit directory.
	PlanFileName = "plan.tfplan"
)

// CommandRunner executes commands. Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string) (*runner.Result, error)
}

// Executor runs the plan command for one unit at a time. It holds no
// per-unit state and is safe for concurrent use if its Runner is.
type Executor struct {
	Runner CommandRunner
	Binary string      // DefaultBinary when empty
	Logger *log.Logger // log.Default() when nil
}

// Execute runs `<binary> plan -out <dir>/plan.tfplan` in dir and returns
// its outcome. It never returns an error; failures are part of the outcome.
func (e *Executor) Execute(ctx context.Context, dir string) Outcome {
	binary := e.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}

	planFile := filepath.Join(dir, PlanFileName)
	argv := []string{binary, "plan", "-out", planFile}

	res, err := e.Runner.Run(ctx, argv, dir)
	if err != nil {
		logger.Printf("failed to execute command for %s: %v", dir, err)
		return launchFailed(dir, err)
	}

	if res.Truncated {
		logger.Printf("output truncated for %s", dir)
	}

	stdout, stderr := res.StdoutText(), res.StderrText()
	if res.ExitCode != 0 {
		logger.Printf("plan failed for %s", dir)
		out := processFailed(dir, stdout, stderr)
		out.Truncated = res.Truncated
		return out
	}

	out := succeeded(dir, planFile, stdout, stderr)
	out.Truncated = res.Truncated
	if out.Changes > 0 {
		logger.Printf("drift in %s: %d changes", dir, out.Changes)
	} else {
		logger.Printf("no drift in %s", dir)
	}
	return out
}
