package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		Root:    t.TempDir(),
		Timeout: 10 * time.Second,
	}
}

func TestRun_Success(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"echo", "hello"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(res.StdoutText(), "hello") {
		t.Errorf("Stdout = %q, want to contain 'hello'", res.Stdout)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
}

func TestRun_CapturesStderr(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"sh", "-c", "echo oops >&2; exit 3"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if got := res.StderrText(); got != "oops\n" {
		t.Errorf("Stderr = %q, want %q", got, "oops\n")
	}
	if len(res.Stdout) != 0 {
		t.Errorf("Stdout = %q, want empty", res.Stdout)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"false"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode == 0 {
		t.Error("ExitCode = 0, want non-zero")
	}
}

func TestRun_BinaryNotFound(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Run(context.Background(), []string{"nonexistent-binary-xyz-123"}, "")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "nonexistent-binary-xyz-123") {
		t.Errorf("error = %q, want to mention the binary name", err)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("errors.Is(err, exec.ErrNotFound) = false for %v", err)
	}
}

func TestRun_EmptyArgv(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Run(context.Background(), nil, "")
	if err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestRun_CWDWithinRoot(t *testing.T) {
	r := newTestRunner(t)
	sub := filepath.Join(r.Root, "subdir")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, cwd := range []string{"subdir", sub} {
		res, err := r.Run(context.Background(), []string{"pwd"}, cwd)
		if err != nil {
			t.Fatalf("Run(cwd=%q): %v", cwd, err)
		}
		if !strings.Contains(res.StdoutText(), "subdir") {
			t.Errorf("Run(cwd=%q) Stdout = %q, want to contain 'subdir'", cwd, res.Stdout)
		}
	}
}

func TestRun_CWDOutsideRoot(t *testing.T) {
	r := newTestRunner(t)
	for _, cwd := range []string{"../", "/tmp"} {
		_, err := r.Run(context.Background(), []string{"echo"}, cwd)
		if err == nil {
			t.Fatalf("Run(cwd=%q): expected error for cwd outside root", cwd)
		}
		if !strings.Contains(err.Error(), "outside root") {
			t.Errorf("error = %q, want 'outside root'", err)
		}
	}
}

func TestRun_DotPrefixedChildIsInside(t *testing.T) {
	r := newTestRunner(t)
	sub := filepath.Join(r.Root, "..hidden")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Run(context.Background(), []string{"true"}, sub); err != nil {
		t.Fatalf("Run(..hidden): %v", err)
	}
}

func TestRun_Timeout(t *testing.T) {
	r := newTestRunner(t)
	r.Timeout = 100 * time.Millisecond

	start := time.Now()
	res, err := r.Run(context.Background(), []string{"sleep", "10"}, "")
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Run took %v, timeout not applied", elapsed)
	}
	// A killed process surfaces as an ExitError (non-zero exit).
	if err == nil && res.ExitCode == 0 {
		t.Error("ExitCode = 0 after timeout, want non-zero")
	}
}

func TestRun_TimeoutKillsGrandchildren(t *testing.T) {
	r := newTestRunner(t)
	r.Timeout = 200 * time.Millisecond

	// sh forks sleep, which holds the stdout pipe open.
	start := time.Now()
	res, err := r.Run(context.Background(), []string{"sh", "-c", "sleep 3; echo done"}, "")
	if elapsed := time.Since(start); elapsed > 2500*time.Millisecond {
		t.Fatalf("Run took %v, want the timeout to end the whole process tree", elapsed)
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode == 0 {
		t.Error("ExitCode = 0 after timeout, want non-zero")
	}
	if strings.Contains(res.StdoutText(), "done") {
		t.Errorf("Stdout = %q, want the command killed before finishing", res.Stdout)
	}
}

func TestRun_NoTimeoutByDefault(t *testing.T) {
	r := newTestRunner(t)
	r.Timeout = 0
	res, err := r.Run(context.Background(), []string{"sh", "-c", "sleep 0.2; echo done"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.StdoutText(), "done") {
		t.Errorf("Stdout = %q, want 'done'", res.Stdout)
	}
}

func TestRun_OutputTruncation(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 100

	res, err := r.Run(context.Background(), []string{"sh", "-c", "dd if=/dev/zero bs=200 count=1 2>/dev/null"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(res.Stdout) > r.MaxOutput {
		t.Errorf("len(Stdout) = %d, want <= %d", len(res.Stdout), r.MaxOutput)
	}
}

func TestRun_TruncationKeepsTail(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 64

	script := `i=0; while [ $i -lt 100 ]; do echo "line $i"; i=$((i+1)); done; echo "Plan: 3 to add, 0 to change, 0 to destroy."`
	res, err := r.Run(context.Background(), []string{"sh", "-c", script}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(res.Stdout) != r.MaxOutput {
		t.Errorf("len(Stdout) = %d, want %d", len(res.Stdout), r.MaxOutput)
	}
	if !strings.HasSuffix(res.StdoutText(), "Plan: 3 to add, 0 to change, 0 to destroy.\n") {
		t.Errorf("Stdout = %q, want the last line kept", res.Stdout)
	}
	if strings.Contains(res.StdoutText(), "line 0\n") {
		t.Errorf("Stdout = %q, want the head dropped", res.Stdout)
	}
}

func TestRun_UnlimitedByDefault(t *testing.T) {
	r := newTestRunner(t)

	// 2 MiB of filler, then a summary line.
	script := `head -c 2097152 /dev/zero | tr '\0' x; echo; echo "Plan: 7 to add, 0 to change, 0 to destroy."`
	res, err := r.Run(context.Background(), []string{"sh", "-c", script}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Truncated {
		t.Error("Truncated = true, want false with no cap")
	}
	if len(res.Stdout) <= 2<<20 {
		t.Errorf("len(Stdout) = %d, want all output kept", len(res.Stdout))
	}
	if !strings.HasSuffix(res.StdoutText(), "Plan: 7 to add, 0 to change, 0 to destroy.\n") {
		t.Error("summary line missing from captured stdout")
	}
}

func TestRunner_WithRoot(t *testing.T) {
	r := &Runner{Root: "/a", Timeout: time.Second, MaxOutput: 10}
	c := r.WithRoot("/b")
	if c.Root != "/b" || c.Timeout != time.Second || c.MaxOutput != 10 {
		t.Errorf("WithRoot = %+v, want Root /b with other fields kept", c)
	}
	if r.Root != "/a" {
		t.Errorf("original Root = %q, want unchanged", r.Root)
	}
}

func TestResult_LossyDecoding(t *testing.T) {
	res := &Result{Stdout: []byte("ok \xff\xfe end"), Stderr: []byte("plain")}
	got := res.StdoutText()
	if !strings.Contains(got, "�") {
		t.Errorf("StdoutText() = %q, want replacement character", got)
	}
	if !strings.HasPrefix(got, "ok ") || !strings.HasSuffix(got, " end") {
		t.Errorf("StdoutText() = %q, want valid text preserved", got)
	}
	if res.StderrText() != "plain" {
		t.Errorf("StderrText() = %q, want %q", res.StderrText(), "plain")
	}
	if (&Result{}).StdoutText() != "" {
		t.Error("StdoutText() of empty result should be empty")
	}
}
