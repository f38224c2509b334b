// Package plan runs terragrunt plan for a single working directory and
// classifies its result.
package plan

import "fmt"

// Status is the terminal state of one unit.
type Status string

const (
	// Succeeded means the plan command exited zero.
	Succeeded Status = "succeeded"
	// Failed means the command could not start, exited non-zero, or the
	// unit never ran.
	Failed Status = "failed"
)

// Outcome is the record of one unit's plan run.
//
// A Succeeded outcome has an empty Error and a PlanFile. A Failed outcome
// has zero Changes and an empty PlanFile.
type Outcome struct {
	Path     string `json:"path"`
	Status   Status `json:"status"`
	Changes  int    `json:"changes"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	PlanFile string `json:"plan_file,omitempty"`
	Error    string `json:"error,omitempty"`

	// Truncated is set when the output cap dropped the head of stdout or
	// stderr. Only the tail was kept and classified.
	Truncated bool `json:"truncated,omitempty"`
}

// Drifted reports whether the plan succeeded with at least one change.
func (o Outcome) Drifted() bool {
	return o.Status == Succeeded && o.Changes > 0
}

func succeeded(path, planFile, stdout, stderr string) Outcome {
	return Outcome{
		Path:     path,
		Status:   Succeeded,
		Changes:  CountChanges(stdout),
		Stdout:   stdout,
		Stderr:   stderr,
		PlanFile: planFile,
	}
}

func processFailed(path, stdout, stderr string) Outcome {
	return Outcome{
		Path:   path,
		Status: Failed,
		Stdout: stdout,
		Stderr: stderr,
		Error:  stderr,
	}
}

func launchFailed(path string, err error) Outcome {
	return Outcome{
		Path:   path,
		Status: Failed,
		Error:  fmt.Sprintf("failed to execute: %v", err),
	}
}

// Aborted builds the Failed outcome for a unit whose execution did not
// produce a result, such as a panicking task or a cancelled batch.
func Aborted(path string, reason string) Outcome {
	return Outcome{
		Path:   path,
		Status: Failed,
		Error:  reason,
	}
}
