package job

import (
	"strconv"
	"strings"
)

// ProgressPrefix marks a progress line on the worker's stdout.
const ProgressPrefix = "PROGRESS:"

// ParseProgress extracts the percentage from a `PROGRESS:<n>` line.
// The value is clamped to [0,100]. Any other line reports ok=false.
func ParseProgress(line string) (percent int, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(line), ProgressPrefix)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return min(max(n, 0), 100), true
}

// progressTracker coerces observed values to the running maximum.
type progressTracker struct {
	max int
}

func (p *progressTracker) observe(percent int) int {
	if percent > p.max {
		p.max = percent
	}
	return p.max
}
