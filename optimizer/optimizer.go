// Package optimizer applies aggregated gradients to model parameters and
// keeps the per-process iteration counter the trainer derives the global
// step from.
package optimizer

import "fmt"
import "strings"

import "github.com/neurlang/srtrain/model"
import "github.com/neurlang/srtrain/tensor"

// Optimizer performs exactly one parameter update and one counter increment
// per Apply.
type Optimizer interface {
	Apply(params []*model.Parameter, grads []tensor.Tensor) error
	// Iterations counts Apply calls since this process built the optimizer.
	Iterations() int64
	// Config is the hyperparameter snapshot persisted into checkpoints.
	Config() map[string]any
	Name() string
}

// Build creates an optimizer of the given kind. A non-empty config snapshot
// wins over learningRate, so a resumed experiment gets its saved
// hyperparameters back.
func Build(kind string, learningRate *float64, config map[string]any) (Optimizer, error) {
	cfg := map[string]any{}
	if learningRate != nil {
		cfg["learning_rate"] = *learningRate
	}
	if len(config) > 0 {
		cfg = config
	}
	switch strings.ToLower(kind) {
	case "adam":
		return adamFromConfig(cfg)
	case "sgd":
		return sgdFromConfig(cfg)
	}
	return nil, fmt.Errorf("unsupported optimizer %q", kind)
}

func checkGrads(params []*model.Parameter, grads []tensor.Tensor) error {
	if len(params) != len(grads) {
		return fmt.Errorf("%d gradients for %d parameters", len(grads), len(params))
	}
	for i, p := range params {
		if !p.Value.SameShape(grads[i]) {
			return fmt.Errorf("gradient %v does not match parameter %s %v", grads[i].Shape, p.Name, p.Value.Shape)
		}
	}
	return nil
}

func floatParam(cfg map[string]any, key string, def float64) (float64, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("optimizer config %s must be a number, got %T", key, v)
}

func boolParam(cfg map[string]any, key string) (bool, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("optimizer config %s must be a boolean, got %T", key, v)
	}
	return b, nil
}
