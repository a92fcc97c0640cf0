// Package replica abstracts a set of lock-stepped execution replicas driven
// by a single controller.
package replica

import "fmt"

import "github.com/neurlang/srtrain/datasets"

// ReduceOp selects how per-replica values are combined.
type ReduceOp int

const (
	Sum ReduceOp = iota
	Mean
)

func (op ReduceOp) String() string {
	switch op {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	}
	return fmt.Sprintf("ReduceOp(%d)", int(op))
}

// Group is a set of replicas. Dispatch is a barrier: it returns only after
// fn has returned on every replica.
type Group interface {
	Count() int
	Reduce(op ReduceOp, values []float64) (float64, error)
	Shard(ds datasets.Dataset) (*datasets.Distributed, error)
	Dispatch(fn func(replica int) error) error
	String() string
}

// RunOnAll runs fn once per replica on that replica's batch and returns one
// result per replica, in replica order. Results are never merged here.
func RunOnAll[T any](g Group, batches []datasets.Batch, fn func(replica int, batch datasets.Batch) (T, error)) ([]T, error) {
	if len(batches) != g.Count() {
		return nil, fmt.Errorf("got %d batches for %d replicas", len(batches), g.Count())
	}
	out := make([]T, g.Count())
	err := g.Dispatch(func(replica int) error {
		v, err := fn(replica, batches[replica])
		if err != nil {
			return fmt.Errorf("replica %d: %w", replica, err)
		}
		out[replica] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Mirror reads a value on every replica, for reductions over replicated
// state such as optimizer counters.
func Mirror(g Group, read func(replica int) float64) ([]float64, error) {
	out := make([]float64, g.Count())
	err := g.Dispatch(func(replica int) error {
		out[replica] = read(replica)
		return nil
	})
	return out, err
}

func reduce(count int, op ReduceOp, values []float64) (float64, error) {
	if len(values) != count {
		return 0, fmt.Errorf("reduce %s: got %d values for %d replicas", op, len(values), count)
	}
	var s float64
	for _, v := range values {
		s += v
	}
	switch op {
	case Sum:
		return s, nil
	case Mean:
		return s / float64(count), nil
	}
	return 0, fmt.Errorf("unsupported reduce op %s", op)
}
