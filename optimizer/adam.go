package optimizer

import "math"
import "sync/atomic"

import "github.com/neurlang/srtrain/model"
import "github.com/neurlang/srtrain/tensor"

// Adam is adaptive moment estimation. Moment estimates live only in the
// process; the snapshot carries hyperparameters.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	AMSGrad      bool

	m, v, vMax []tensor.Tensor
	iterations atomic.Int64
}

func adamFromConfig(cfg map[string]any) (*Adam, error) {
	a := &Adam{}
	var err error
	if a.LearningRate, err = floatParam(cfg, "learning_rate", 0.001); err != nil {
		return nil, err
	}
	if a.Beta1, err = floatParam(cfg, "beta_1", 0.9); err != nil {
		return nil, err
	}
	if a.Beta2, err = floatParam(cfg, "beta_2", 0.999); err != nil {
		return nil, err
	}
	if a.Epsilon, err = floatParam(cfg, "epsilon", 1e-7); err != nil {
		return nil, err
	}
	if a.AMSGrad, err = boolParam(cfg, "amsgrad"); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Adam) init(params []*model.Parameter) {
	a.m = make([]tensor.Tensor, len(params))
	a.v = make([]tensor.Tensor, len(params))
	a.vMax = make([]tensor.Tensor, len(params))
	for i, p := range params {
		a.m[i] = tensor.New(p.Value.Shape...)
		a.v[i] = tensor.New(p.Value.Shape...)
		if a.AMSGrad {
			a.vMax[i] = tensor.New(p.Value.Shape...)
		}
	}
}

func (a *Adam) Apply(params []*model.Parameter, grads []tensor.Tensor) error {
	if err := checkGrads(params, grads); err != nil {
		return err
	}
	if a.m == nil {
		a.init(params)
	}
	t := float64(a.iterations.Load() + 1)
	bc1 := 1 - math.Pow(a.Beta1, t)
	bc2 := 1 - math.Pow(a.Beta2, t)

	for i, p := range params {
		g, m, v := grads[i], a.m[i], a.v[i]
		for j := range p.Value.Data {
			grad := g.Data[j]
			m.Data[j] = a.Beta1*m.Data[j] + (1-a.Beta1)*grad
			v.Data[j] = a.Beta2*v.Data[j] + (1-a.Beta2)*grad*grad

			mHat := m.Data[j] / bc1
			vHat := v.Data[j] / bc2
			if a.AMSGrad {
				if vHat > a.vMax[i].Data[j] {
					a.vMax[i].Data[j] = vHat
				}
				vHat = a.vMax[i].Data[j]
			}
			p.Value.Data[j] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
		}
	}
	a.iterations.Add(1)
	return nil
}

func (a *Adam) Iterations() int64 { return a.iterations.Load() }

func (a *Adam) Name() string { return "Adam" }

func (a *Adam) Config() map[string]any {
	return map[string]any{
		"name":          a.Name(),
		"learning_rate": a.LearningRate,
		"beta_1":        a.Beta1,
		"beta_2":        a.Beta2,
		"epsilon":       a.Epsilon,
		"amsgrad":       a.AMSGrad,
	}
}
