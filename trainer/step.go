package trainer

import "fmt"

import "github.com/neurlang/srtrain/replica"

// Counter is a live per-process iteration counter that restarts at zero
// with every process.
type Counter interface {
	Iterations() int64
}

// GlobalStep reads every counter on every replica, reduces each by mean,
// takes the furthest advanced one and adds base, the step stored in the
// descriptor the session started from.
func GlobalStep(g replica.Group, counters []Counter, base int64) (int64, error) {
	var step int64
	for i, c := range counters {
		values, err := replica.Mirror(g, func(int) float64 {
			return float64(c.Iterations())
		})
		if err != nil {
			return 0, fmt.Errorf("read counter %d: %w", i, err)
		}
		mean, err := g.Reduce(replica.Mean, values)
		if err != nil {
			return 0, fmt.Errorf("reduce counter %d: %w", i, err)
		}
		if n := int64(mean); n > step {
			step = n
		}
	}
	return step + base, nil
}

// Fires reports whether a unit with the given cycle acts at step.
func Fires(cycle, step int64) bool {
	if cycle <= 0 {
		return false
	}
	return step%cycle == 0
}
