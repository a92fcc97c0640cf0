package trainer

import "fmt"

import "github.com/neurlang/srtrain/datasets"
import srerrors "github.com/neurlang/srtrain/errors"
import "github.com/neurlang/srtrain/model"
import "github.com/neurlang/srtrain/optimizer"
import "github.com/neurlang/srtrain/replica"
import "github.com/neurlang/srtrain/tensor"

// TrainStep is a compiled training step for one optimizer. Every Execute
// performs exactly one optimizer update.
type TrainStep struct {
	extension model.Extension
	indices   []int
	optimizer optimizer.Optimizer
	group     replica.Group
}

func NewTrainStep(extension model.Extension, indices []int, opt optimizer.Optimizer, group replica.Group) *TrainStep {
	return &TrainStep{
		extension: extension,
		indices:   append([]int(nil), indices...),
		optimizer: opt,
		group:     group,
	}
}

type replicaGradient struct {
	loss  float64
	grads []tensor.Tensor
}

// Execute runs the extension on every replica's batch and applies the summed
// gradients once. Each replica's loss is pre-scaled by 1/R so the sum equals
// the gradient of the mean loss over all replicas. The returned loss is the
// mean of the scaled per-replica losses.
func (s *TrainStep) Execute(batches []datasets.Batch) (float64, error) {
	scale := 1.0 / float64(s.group.Count())

	results, err := replica.RunOnAll(s.group, batches, func(_ int, batch datasets.Batch) (replicaGradient, error) {
		inputs, err := batch.Permute(s.indices)
		if err != nil {
			return replicaGradient{}, err
		}
		loss, err := s.extension.Loss(inputs)
		if err != nil {
			return replicaGradient{}, err
		}
		grads, err := loss.Gradients(scale)
		if err != nil {
			return replicaGradient{}, err
		}
		return replicaGradient{loss: loss.Values().Scale(scale).Sum(), grads: grads}, nil
	})
	if err != nil {
		return 0, srerrors.Wrap(err, srerrors.CategoryExecution, srerrors.CodeReplicaFailed)
	}

	total, err := sumGradients(results)
	if err != nil {
		return 0, srerrors.Wrap(err, srerrors.CategoryExecution, srerrors.CodeGradientFailed)
	}
	if err := s.optimizer.Apply(s.extension.Parameters(), total); err != nil {
		return 0, srerrors.Wrap(fmt.Errorf("apply gradients: %w", err), srerrors.CategoryExecution, srerrors.CodeGradientFailed)
	}

	losses := make([]float64, len(results))
	for i, r := range results {
		losses[i] = r.loss
	}
	loss, err := s.group.Reduce(replica.Mean, losses)
	if err != nil {
		return 0, srerrors.Wrap(err, srerrors.CategoryExecution, srerrors.CodeReplicaFailed)
	}
	return loss, nil
}

func sumGradients(results []replicaGradient) ([]tensor.Tensor, error) {
	total := make([]tensor.Tensor, len(results[0].grads))
	for i, g := range results[0].grads {
		total[i] = g.Clone()
	}
	for r, res := range results[1:] {
		if len(res.grads) != len(total) {
			return nil, fmt.Errorf("replica %d produced %d gradients, want %d", r+1, len(res.grads), len(total))
		}
		for i, g := range res.grads {
			if err := total[i].AddInPlace(g); err != nil {
				return nil, fmt.Errorf("replica %d gradient %d: %w", r+1, i, err)
			}
		}
	}
	return total, nil
}
