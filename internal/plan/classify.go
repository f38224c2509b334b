package plan

import (
	"strconv"
	"strings"
)

const (
	noChangesMarker = "No changes"
	summaryMarker   = "Plan:"
)

// CountChanges extracts the number of planned changes from plan stdout.
//
// Output mentioning "No changes" anywhere counts as zero. Otherwise the
// first line containing "Plan:" is split on whitespace and every token that
// parses as a non-negative integer (a single leading '+' is allowed) is
// summed, whatever its label. Output with neither marker counts as zero.
func CountChanges(stdout string) int {
	if strings.Contains(stdout, noChangesMarker) {
		return 0
	}

	for _, line := range strings.Split(stdout, "\n") {
		if !strings.Contains(line, summaryMarker) {
			continue
		}
		sum := 0
		for _, tok := range strings.Fields(line) {
			n, err := strconv.ParseUint(strings.TrimPrefix(tok, "+"), 10, 32)
			if err != nil {
				continue
			}
			sum += int(n)
		}
		return sum
	}
	return 0
}
