package replica

import "github.com/neurlang/srtrain/datasets"

// Single is the pass-through group: one replica, identity reductions.
type Single struct{}

func (Single) Count() int { return 1 }

func (Single) Reduce(op ReduceOp, values []float64) (float64, error) {
	return reduce(1, op, values)
}

func (Single) Shard(ds datasets.Dataset) (*datasets.Distributed, error) {
	return datasets.Distribute(ds, 1)
}

func (Single) Dispatch(fn func(replica int) error) error {
	return fn(0)
}

func (Single) String() string { return "single" }
