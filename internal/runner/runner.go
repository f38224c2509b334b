// Package runner provides command execution bounded to a scan root,
// with optional timeouts and output size limits.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// waitDelay bounds how long Run waits for output pipes to close after the
// process has been killed or has exited.
const waitDelay = 2 * time.Second

// Runner executes commands within a root directory boundary.
type Runner struct {
	Root      string
	Timeout   time.Duration // zero means no deadline
	MaxOutput int           // bytes kept per stream; zero means unlimited
}

// WithRoot returns a copy of r bounded to root.
func (r *Runner) WithRoot(root string) *Runner {
	c := *r
	c.Root = root
	return &c
}

// Run executes a command with the given argv. The first element is the
// binary name (resolved via PATH), and the rest are arguments.
// cwd is resolved relative to the root and must remain within it.
//
// A process that starts and exits non-zero yields a Result. An error is
// returned only when the process could not be started at all. On timeout
// the whole process group is killed and the Result has ExitCode -1.
//
// When MaxOutput is set, each stream keeps its last MaxOutput bytes so the
// trailing plan summary survives truncation.
func (r *Runner) Run(ctx context.Context, argv []string, cwd string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	dir, err := r.resolveDir(cwd)
	if err != nil {
		return nil, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	runID := uuid.New().String()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	stdout := &tailWriter{limit: r.MaxOutput}
	stderr := &tailWriter{limit: r.MaxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(runErr, &exitErr):
			exitCode = exitErr.ExitCode()
		case cmd.ProcessState != nil:
			// Started and reaped, but cancelled or left pipes open.
			exitCode = cmd.ProcessState.ExitCode()
			if exitCode == 0 && ctx.Err() != nil {
				exitCode = -1
			}
		default:
			// Binary not found or other exec error.
			return nil, fmt.Errorf("executing %s: %w", argv[0], runErr)
		}
	}

	return &Result{
		RunID:     runID,
		ExitCode:  exitCode,
		Stdout:    stdout.buf.Bytes(),
		Stderr:    stderr.buf.Bytes(),
		Truncated: stdout.dropped || stderr.dropped,
	}, nil
}

// resolveDir resolves cwd relative to the root and validates it
// is within the root boundary.
func (r *Runner) resolveDir(cwd string) (string, error) {
	if cwd == "" {
		return r.Root, nil
	}

	var dir string
	if filepath.IsAbs(cwd) {
		dir = filepath.Clean(cwd)
	} else {
		dir = filepath.Clean(filepath.Join(r.Root, cwd))
	}

	if r.Root == "" {
		return dir, nil
	}

	rel, err := filepath.Rel(r.Root, dir)
	if err != nil {
		return "", fmt.Errorf("resolving cwd: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("cwd %q is outside root %q", cwd, r.Root)
	}
	return dir, nil
}

// tailWriter keeps the last limit bytes written to it. A limit of zero
// keeps everything.
type tailWriter struct {
	buf     bytes.Buffer
	limit   int
	dropped bool
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.limit > 0 && w.buf.Len() > w.limit {
		w.buf.Next(w.buf.Len() - w.limit)
		w.dropped = true
	}
	return len(p), nil
}
