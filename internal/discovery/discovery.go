// Package discovery finds terragrunt working directories under a root path.
package discovery

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMarker is the file-name suffix that marks a working directory.
const DefaultMarker = ".hcl"

// Options controls a discovery walk.
type Options struct {
	Marker string      // file-name suffix; DefaultMarker when empty
	Logger *log.Logger // log.Default() when nil
}

// Result holds the directories found by a walk.
type Result struct {
	Root    string   // absolute root that was walked
	Dirs    []string // one entry per marker file, in walk order
	Skipped int      // entries that could not be read
}

// Find walks root and records the parent directory of every entry whose
// name ends with the marker suffix. A directory holding several marker
// files appears once per file.
//
// Unreadable entries are counted and skipped. Only an unusable root is
// reported as an error.
func Find(root string, opts Options) (*Result, error) {
	marker := opts.Marker
	if marker == "" {
		marker = DefaultMarker
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("reading root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", abs)
	}

	res := &Result{Root: abs}
	_ = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			res.Skipped++
			// Returning nil for a directory that failed to open skips it;
			// the walk continues with its siblings.
			return nil
		}
		if strings.HasSuffix(d.Name(), marker) {
			res.Dirs = append(res.Dirs, filepath.Dir(path))
		}
		return nil
	})

	logger.Printf("found %d terragrunt dirs", len(res.Dirs))
	if res.Skipped > 0 {
		logger.Printf("skipped %d unreadable entries", res.Skipped)
	}
	return res, nil
}

// Dedupe returns dirs with repeated entries removed, keeping first-seen order.
func Dedupe(dirs []string) []string {
	seen := make(map[string]struct{}, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
