package trainer

import "fmt"

import "github.com/neurlang/srtrain/datasets"
import srerrors "github.com/neurlang/srtrain/errors"
import "github.com/neurlang/srtrain/model"
import "github.com/neurlang/srtrain/replica"
import "github.com/neurlang/srtrain/tensor"

// Pair is one replica's model output and the reference it is scored
// against.
type Pair struct {
	Output    tensor.Tensor
	Reference tensor.Tensor
}

// ValidateStep is a compiled validation step. It never mutates parameters.
type ValidateStep struct {
	principal model.Principal
	indices   []int
	hdIndex   int
	group     replica.Group
}

func NewValidateStep(principal model.Principal, indices []int, hdIndex int, group replica.Group) *ValidateStep {
	return &ValidateStep{
		principal: principal,
		indices:   append([]int(nil), indices...),
		hdIndex:   hdIndex,
		group:     group,
	}
}

// Execute returns one pair per replica, even for a single replica. The
// reference is taken from the batch before reordering.
func (s *ValidateStep) Execute(batches []datasets.Batch) ([]Pair, error) {
	pairs, err := replica.RunOnAll(s.group, batches, func(_ int, batch datasets.Batch) (Pair, error) {
		if s.hdIndex < 0 || s.hdIndex >= len(batch) {
			return Pair{}, fmt.Errorf("hd image index %d out of range for %d-tuple", s.hdIndex, len(batch))
		}
		inputs, err := batch.Permute(s.indices)
		if err != nil {
			return Pair{}, err
		}
		out, err := s.principal.Predict(inputs)
		if err != nil {
			return Pair{}, err
		}
		return Pair{Output: out, Reference: batch[s.hdIndex]}, nil
	})
	if err != nil {
		return nil, srerrors.Wrap(err, srerrors.CategoryExecution, srerrors.CodeReplicaFailed)
	}
	return pairs, nil
}

// Gather concatenates outputs and references across replicas along the
// batch axis.
func Gather(pairs []Pair) (outputs, references tensor.Tensor, err error) {
	outs := make([]tensor.Tensor, len(pairs))
	refs := make([]tensor.Tensor, len(pairs))
	for i, p := range pairs {
		outs[i], refs[i] = p.Output, p.Reference
	}
	if outputs, err = tensor.Concat(outs...); err != nil {
		return
	}
	references, err = tensor.Concat(refs...)
	return
}
