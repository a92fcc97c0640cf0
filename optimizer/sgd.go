package optimizer

import "sync/atomic"

import "github.com/neurlang/srtrain/model"
import "github.com/neurlang/srtrain/tensor"

// SGD is stochastic gradient descent with optional (Nesterov) momentum.
type SGD struct {
	LearningRate float64
	Momentum     float64
	Nesterov     bool

	velocities []tensor.Tensor
	iterations atomic.Int64
}

func sgdFromConfig(cfg map[string]any) (*SGD, error) {
	lr, err := floatParam(cfg, "learning_rate", 0.01)
	if err != nil {
		return nil, err
	}
	momentum, err := floatParam(cfg, "momentum", 0)
	if err != nil {
		return nil, err
	}
	nesterov, err := boolParam(cfg, "nesterov")
	if err != nil {
		return nil, err
	}
	return &SGD{LearningRate: lr, Momentum: momentum, Nesterov: nesterov}, nil
}

func (s *SGD) Apply(params []*model.Parameter, grads []tensor.Tensor) error {
	if err := checkGrads(params, grads); err != nil {
		return err
	}
	if s.velocities == nil && s.Momentum != 0 {
		s.velocities = make([]tensor.Tensor, len(params))
		for i, p := range params {
			s.velocities[i] = tensor.New(p.Value.Shape...)
		}
	}
	for i, p := range params {
		g := grads[i]
		for j := range p.Value.Data {
			step := g.Data[j]
			if s.Momentum != 0 {
				v := s.velocities[i]
				v.Data[j] = s.Momentum*v.Data[j] + step
				if s.Nesterov {
					step += s.Momentum * v.Data[j]
				} else {
					step = v.Data[j]
				}
			}
			p.Value.Data[j] -= s.LearningRate * step
		}
	}
	s.iterations.Add(1)
	return nil
}

func (s *SGD) Iterations() int64 { return s.iterations.Load() }

func (s *SGD) Name() string { return "SGD" }

func (s *SGD) Config() map[string]any {
	return map[string]any{
		"name":          s.Name(),
		"learning_rate": s.LearningRate,
		"momentum":      s.Momentum,
		"nesterov":      s.Nesterov,
	}
}
