package runner

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Result holds the output of a command execution.
type Result struct {
	RunID     string // unique identifier for this run
	ExitCode  int    // process exit code
	Stdout    []byte // captured stdout (tail only when truncated)
	Stderr    []byte // captured stderr (tail only when truncated)
	Truncated bool   // true if either stream exceeded the size cap
}

// StdoutText returns stdout as text, replacing invalid UTF-8 sequences.
func (r *Result) StdoutText() string { return decodeLossy(r.Stdout) }

// StderrText returns stderr as text, replacing invalid UTF-8 sequences.
func (r *Result) StderrText() string { return decodeLossy(r.Stderr) }

func decodeLossy(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, _, err := transform.Bytes(runes.ReplaceIllFormed(), b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
