// Package experiment loads and resolves experiment descriptors.
//
// A descriptor is created once for a fresh experiment and re-persisted as a
// new checkpoint generation every time training state is saved. It is never
// edited in place.
package experiment

import "encoding/json"
import "fmt"

// Placeholder is replaced by the experiment name in every string value.
const Placeholder = "{experiment_name}"

type Descriptor struct {
	Name       string               `yaml:"name" json:"name"`
	GlobalStep int64                `yaml:"global_step" json:"global_step"`
	Checkpoint Checkpoint           `yaml:"checkpoint" json:"checkpoint"`
	Summary    Summary              `yaml:"summary" json:"summary"`
	Datasets   map[string]Dataset   `yaml:"datasets,omitempty" json:"datasets,omitempty"`
	Models     Models               `yaml:"models" json:"models"`
	Optimizers map[string]Optimizer `yaml:"optimizers,omitempty" json:"optimizers,omitempty"`
	Validators []Validator          `yaml:"validators,omitempty" json:"validators,omitempty"`
}

type Checkpoint struct {
	Path  string `yaml:"path" json:"path"`
	Cycle int64  `yaml:"cycle" json:"cycle"`
}

type Summary struct {
	Path string `yaml:"path" json:"path"`
}

type Dataset struct {
	Subsets    []string `yaml:"subsets,omitempty" json:"subsets,omitempty"`
	BatchSize  int      `yaml:"batch_size" json:"batch_size"`
	SampleRate float64  `yaml:"sample_rate" json:"sample_rate"`
	Augment    bool     `yaml:"augment" json:"augment"`
}

type Models struct {
	Name       string               `yaml:"name" json:"name"`
	Parameters map[string]any       `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Principals map[string]Principal `yaml:"principals" json:"principals"`
}

// Principal points at the weights a principal model starts from. An empty
// path means fresh weights.
type Principal struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

type Optimizer struct {
	Optimizer      string         `yaml:"optimizer" json:"optimizer"`
	LearningRate   *float64       `yaml:"learning_rate,omitempty" json:"learning_rate,omitempty"`
	Config         map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	ExtensionModel string         `yaml:"extension_model" json:"extension_model"`
	Dataset        Binding        `yaml:"dataset" json:"dataset"`
	Cycle          int64          `yaml:"cycle" json:"cycle"`
}

// Binding names a dataset and the order in which its batch tuple feeds a
// model.
type Binding struct {
	Name         string `yaml:"name" json:"name"`
	InputIndices []int  `yaml:"input_indices" json:"input_indices"`
}

type Validator struct {
	Name           string           `yaml:"name" json:"name"`
	PrincipalModel string           `yaml:"principal_model" json:"principal_model"`
	Dataset        ValidatorBinding `yaml:"dataset" json:"dataset"`
	Cycle          int64            `yaml:"cycle" json:"cycle"`
}

type ValidatorBinding struct {
	Name         string `yaml:"name" json:"name"`
	InputIndices []int  `yaml:"input_indices" json:"input_indices"`
	HDImageIndex int    `yaml:"hd_image_index" json:"hd_image_index"`
}

// Clone deep-copies d through its JSON form.
func (d *Descriptor) Clone() (*Descriptor, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("clone descriptor: %w", err)
	}
	var out Descriptor
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("clone descriptor: %w", err)
	}
	return &out, nil
}
