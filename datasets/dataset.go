// Package datasets defines the dataset provider contract consumed by the
// trainer: fixed-order tensor tuples, sharding into disjoint partitions and
// a per-replica distributed iterator.
package datasets

import "fmt"

import "github.com/neurlang/srtrain/tensor"

// Batch is one fixed-order tuple of tensors, e.g. (sd_images, hd_images).
type Batch []tensor.Tensor

// Permute reorders the tuple. Permute([]int{1, 0}) turns (sd, hd) into
// (hd, sd).
func (b Batch) Permute(indices []int) (Batch, error) {
	out := make(Batch, len(indices))
	for i, index := range indices {
		if index < 0 || index >= len(b) {
			return nil, fmt.Errorf("input index %d out of range for a %d-tuple batch", index, len(b))
		}
		out[i] = b[index]
	}
	return out, nil
}

// Config is the per-dataset section of an experiment descriptor.
type Config struct {
	Subsets    []string
	BatchSize  int
	SampleRate float64
	Augment    bool
}

// Provider builds datasets. Implementations own exhaustion and backpressure.
type Provider interface {
	Build(cfg Config) (Dataset, error)
}

// Dataset is a source of batches that can be split into disjoint,
// independently advancing shards.
type Dataset interface {
	Iterator() Iterator
	Shard(count, index int) (Dataset, error)
}

type Iterator interface {
	Next() (Batch, error)
}

// Distributed advances one shard per replica in lock-step.
type Distributed struct {
	shards []Iterator
}

// Distribute shards ds into count partitions, one per replica.
func Distribute(ds Dataset, count int) (*Distributed, error) {
	if count < 1 {
		return nil, fmt.Errorf("cannot distribute a dataset over %d replicas", count)
	}
	d := &Distributed{shards: make([]Iterator, count)}
	for i := range d.shards {
		shard, err := ds.Shard(count, i)
		if err != nil {
			return nil, fmt.Errorf("shard %d/%d: %w", i, count, err)
		}
		d.shards[i] = shard.Iterator()
	}
	return d, nil
}

// Replicas is the number of shards.
func (d *Distributed) Replicas() int {
	return len(d.shards)
}

// Next pulls exactly one batch from every shard.
func (d *Distributed) Next() ([]Batch, error) {
	out := make([]Batch, len(d.shards))
	for i, it := range d.shards {
		b, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("replica %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}
