// Package model defines what the trainer needs from a model family:
// gradient-producing extension models, checkpointed principal models, and a
// startup registry mapping family names to factories.
package model

import "github.com/neurlang/srtrain/tensor"

// Parameter is one trainable tensor. Optimizers update Value in place.
type Parameter struct {
	Name  string
	Value tensor.Tensor
}

// Loss is the result of one forward pass of an extension model.
type Loss interface {
	// Values is the per-element loss, element-wise averaged so that its
	// sum is the mean loss over the replica-local batch.
	Values() tensor.Tensor
	// Gradients returns d(scale * sum(Values()))/dθ aligned with the
	// model's Parameters(). It must not mutate shared state.
	Gradients(scale float64) ([]tensor.Tensor, error)
}

// Extension is a training-only composition, usually a principal model plus
// its loss. Loss may be called concurrently from several replicas.
type Extension interface {
	Parameters() []*Parameter
	Loss(inputs []tensor.Tensor) (Loss, error)
}

// Principal is a model whose weights are the checkpointed artifact.
type Principal interface {
	Parameters() []*Parameter
	Predict(inputs []tensor.Tensor) (tensor.Tensor, error)
	SaveWeights(path string) error
	LoadWeights(path string) error
}

// Set is what a family builds: extensions and principals by name.
type Set struct {
	Extensions map[string]Extension
	Principals map[string]Principal
}

// Family builds a Set from the descriptor's models.parameters.
type Family interface {
	Build(parameters map[string]any) (*Set, error)
}

// FamilyFunc adapts a function to Family.
type FamilyFunc func(parameters map[string]any) (*Set, error)

func (f FamilyFunc) Build(parameters map[string]any) (*Set, error) {
	return f(parameters)
}
