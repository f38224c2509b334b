// Package scheduler runs plan units concurrently under a fixed ceiling and
// collects every outcome.
package scheduler

import (
	"context"
	"fmt"

	"github.com/deixis/driftscan/internal/plan"
	"golang.org/x/sync/semaphore"
)

// ExecFunc runs one unit to completion. Implemented by plan.Executor.Execute.
type ExecFunc func(ctx context.Context, dir string) plan.Outcome

// Observer receives lifecycle callbacks. Callbacks are invoked from the
// unit's goroutine and must be safe for concurrent use.
type Observer interface {
	Started(dir string)
	Finished(o plan.Outcome)
}

// Scheduler admits units to execution in order, at most Limit at a time.
type Scheduler struct {
	Limit    int      // values < 1 are treated as 1
	Observer Observer // optional
}

// Run executes every unit and returns one outcome per unit, in completion
// order. It blocks until all admitted units have finished.
//
// A unit whose execution panics yields a Failed outcome. If ctx is
// cancelled, units not yet admitted yield a Failed outcome carrying the
// context error; admitted units run to completion.
func (s *Scheduler) Run(ctx context.Context, units []string, exec ExecFunc) []plan.Outcome {
	limit := s.Limit
	if limit < 1 {
		limit = 1
	}
	limit = min(limit, max(len(units), 1))

	sem := semaphore.NewWeighted(int64(limit))
	done := make(chan plan.Outcome, len(units))
	results := make([]plan.Outcome, 0, len(units))

	admitted := 0
	for i, dir := range units {
		if err := sem.Acquire(ctx, 1); err != nil {
			for _, rest := range units[i:] {
				results = append(results, plan.Aborted(rest, fmt.Sprintf("not started: %v", err)))
			}
			break
		}
		admitted++
		go func() {
			defer sem.Release(1)
			done <- s.runOne(ctx, dir, exec)
		}()
	}

	for range admitted {
		results = append(results, <-done)
	}
	return results
}

// runOne executes a single unit, converting a panic into a Failed outcome.
// A panic in Observer.Started is treated the same way.
func (s *Scheduler) runOne(ctx context.Context, dir string, exec ExecFunc) (out plan.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = plan.Aborted(dir, fmt.Sprintf("task aborted: %v", r))
		}
		if s.Observer != nil {
			s.Observer.Finished(out)
		}
	}()
	if s.Observer != nil {
		s.Observer.Started(dir)
	}
	return exec(ctx, dir)
}

// Run is a convenience wrapper around Scheduler.Run.
func Run(ctx context.Context, units []string, limit int, exec ExecFunc) []plan.Outcome {
	s := &Scheduler{Limit: limit}
	return s.Run(ctx, units, exec)
}
