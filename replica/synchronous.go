package replica

import "fmt"

import "github.com/neurlang/srtrain/datasets"
import "github.com/neurlang/srtrain/parallel"

// Synchronous runs every replica on its own goroutine and barriers until
// all of them complete.
type Synchronous struct {
	replicas int
	names    []string
}

// NewSynchronous creates a group of n replicas. names labels the compute
// units backing them and may be shorter than n.
func NewSynchronous(n int, names ...string) (*Synchronous, error) {
	if n < 1 {
		return nil, fmt.Errorf("synchronous group needs at least one replica, got %d", n)
	}
	return &Synchronous{replicas: n, names: names}, nil
}

func (s *Synchronous) Count() int { return s.replicas }

func (s *Synchronous) Reduce(op ReduceOp, values []float64) (float64, error) {
	return reduce(s.replicas, op, values)
}

func (s *Synchronous) Shard(ds datasets.Dataset) (*datasets.Distributed, error) {
	return datasets.Distribute(ds, s.replicas)
}

func (s *Synchronous) Dispatch(fn func(replica int) error) error {
	return parallel.ForEachError(s.replicas, s.replicas, fn)
}

func (s *Synchronous) String() string {
	if len(s.names) == 0 {
		return fmt.Sprintf("synchronous(%d)", s.replicas)
	}
	return fmt.Sprintf("synchronous(%d) %v", s.replicas, s.names)
}
