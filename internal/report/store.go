// Package report provides structured persistence and retrieval of
// plan batch results. Results are stored as typed structs and can be
// queried by unit path or status.
package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/deixis/driftscan/internal/plan"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult holds the outcomes of one batch. Outcomes are in completion
// order; use Sorted for a stable presentation.
type RunResult struct {
	ID          string         `json:"id"`
	Root        string         `json:"root"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Concurrency int            `json:"concurrency"`
	Units       int            `json:"units"`
	Skipped     int            `json:"skipped,omitempty"` // unreadable entries during discovery
	Outcomes    []plan.Outcome `json:"outcomes"`
}

// Summary aggregates counts over a run.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Drifted   int `json:"drifted"`
	Changes   int `json:"changes"`
}

// Summary counts outcomes by status and totals detected changes.
func (r *RunResult) Summary() Summary {
	s := Summary{Total: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		switch o.Status {
		case plan.Succeeded:
			s.Succeeded++
			s.Changes += o.Changes
			if o.Drifted() {
				s.Drifted++
			}
		default:
			s.Failed++
		}
	}
	return s
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ByPath returns the outcomes for the unit at path and for every unit below
// it, sorted by path. A relative path is resolved against the run root. A
// directory with several marker files yields several outcomes.
func ByPath(result *RunResult, path string) []plan.Outcome {
	if !filepath.IsAbs(path) && result.Root != "" {
		path = filepath.Join(result.Root, path)
	}
	path = filepath.Clean(path)
	prefix := path
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	var out []plan.Outcome
	for _, o := range result.Outcomes {
		if o.Path == path || strings.HasPrefix(o.Path, prefix) {
			out = append(out, o)
		}
	}
	return Sorted(out)
}

// ByStatus returns the outcomes with the given status.
func ByStatus(result *RunResult, status plan.Status) []plan.Outcome {
	var out []plan.Outcome
	for _, o := range result.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// Drifted returns the successful outcomes that reported changes.
func Drifted(result *RunResult) []plan.Outcome {
	var out []plan.Outcome
	for _, o := range result.Outcomes {
		if o.Drifted() {
			out = append(out, o)
		}
	}
	return out
}

// Sorted returns a copy of outcomes ordered by path, then status.
func Sorted(outcomes []plan.Outcome) []plan.Outcome {
	out := append([]plan.Outcome(nil), outcomes...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Status < out[j].Status
	})
	return out
}

// SetEqual reports whether two runs hold the same outcomes, compared by
// path, status and change count and ignoring order.
func SetEqual(a, b *RunResult) bool {
	if len(a.Outcomes) != len(b.Outcomes) {
		return false
	}
	counts := make(map[string]int, len(a.Outcomes))
	for _, o := range a.Outcomes {
		counts[outcomeKey(o)]++
	}
	for _, o := range b.Outcomes {
		k := outcomeKey(o)
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}

func outcomeKey(o plan.Outcome) string {
	return fmt.Sprintf("%s\x00%s\x00%d", o.Path, o.Status, o.Changes)
}

// RelPath returns path relative to the run root for display, or path
// unchanged when it is not under the root.
func (r *RunResult) RelPath(path string) string {
	if r.Root == "" {
		return path
	}
	rel, err := filepath.Rel(r.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
