package trainer

import "fmt"
import "log/slog"
import "sort"

import "github.com/neurlang/srtrain/datasets"
import srerrors "github.com/neurlang/srtrain/errors"
import "github.com/neurlang/srtrain/experiment"
import "github.com/neurlang/srtrain/model"
import "github.com/neurlang/srtrain/optimizer"
import "github.com/neurlang/srtrain/replica"
import "github.com/neurlang/srtrain/tensor"

// Sink records metrics and artifacts.
type Sink interface {
	Scalar(tag string, value float64, step int64) error
	Image(tag string, img tensor.Tensor, step int64) error
	Checkpoint(path, digest string, step int64) error
}

// Session is the runtime context of one process. It is owned by the loop
// controller and not safe for concurrent use.
type Session struct {
	Descriptor *experiment.Descriptor
	Group      replica.Group
	Logger     *slog.Logger
	Sink       Sink

	// BaseStep is the descriptor's global step when the process started.
	BaseStep int64

	Datasets   map[string]*datasets.Distributed
	Models     *model.Set
	Optimizers map[string]optimizer.Optimizer

	trainSteps     map[string]*TrainStep
	validateSteps  []*ValidateStep
	optimizerNames []string
}

func NewSession(d *experiment.Descriptor, group replica.Group, sink Sink, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		Descriptor: d,
		Group:      group,
		Logger:     logger,
		Sink:       sink,
		BaseStep:   d.GlobalStep,
	}
}

// GlobalStep is recomputed from the live optimizer counters on every call.
func (s *Session) GlobalStep() (int64, error) {
	counters := make([]Counter, 0, len(s.optimizerNames))
	for _, name := range s.optimizerNames {
		counters = append(counters, s.Optimizers[name])
	}
	return GlobalStep(s.Group, counters, s.BaseStep)
}

// BuildDatasets builds every descriptor dataset once and shards it across
// the replica group. Batch sizes are per replica.
func (s *Session) BuildDatasets(provider datasets.Provider) error {
	built := make(map[string]*datasets.Distributed, len(s.Descriptor.Datasets))
	for _, name := range sortedKeys(s.Descriptor.Datasets) {
		cfg := s.Descriptor.Datasets[name]
		ds, err := provider.Build(datasets.Config{
			Subsets:    cfg.Subsets,
			BatchSize:  cfg.BatchSize,
			SampleRate: cfg.SampleRate,
			Augment:    cfg.Augment,
		})
		if err != nil {
			return srerrors.Wrap(fmt.Errorf("dataset %s: %w", name, err), srerrors.CategoryConfig, srerrors.CodeSchemaViolation)
		}
		dist, err := s.Group.Shard(ds)
		if err != nil {
			return fmt.Errorf("shard dataset %s: %w", name, err)
		}
		built[name] = dist
		s.Logger.Info("Dataset built", "dataset", name, "subsets", cfg.Subsets,
			"batch_size", cfg.BatchSize, "replicas", dist.Replicas())
	}
	s.Datasets = built
	return nil
}

// BuildModels builds the model family, one optimizer and training step per
// descriptor optimizer, one validation step per validator, and loads any
// stored principal weights. Datasets must be built first.
func (s *Session) BuildModels(registry *model.Registry) error {
	if s.Datasets == nil {
		return srerrors.New(srerrors.CategorySequencing, srerrors.CodeDatasetsNotBuilt,
			"build datasets before building models")
	}
	d := s.Descriptor

	set, err := registry.Build(d.Models.Name, d.Models.Parameters)
	if err != nil {
		return srerrors.Wrap(err, srerrors.CategoryConfig, srerrors.CodeUnknownComponent)
	}

	optimizers := make(map[string]optimizer.Optimizer, len(d.Optimizers))
	trainSteps := make(map[string]*TrainStep, len(d.Optimizers))
	names := sortedKeys(d.Optimizers)
	for _, name := range names {
		cfg := d.Optimizers[name]
		ext, ok := set.Extensions[cfg.ExtensionModel]
		if !ok {
			return unknown("optimizer %s: extension model %q", name, cfg.ExtensionModel)
		}
		if _, ok := s.Datasets[cfg.Dataset.Name]; !ok {
			return unknown("optimizer %s: dataset %q", name, cfg.Dataset.Name)
		}
		opt, err := optimizer.Build(cfg.Optimizer, cfg.LearningRate, cfg.Config)
		if err != nil {
			return srerrors.Wrap(fmt.Errorf("optimizer %s: %w", name, err), srerrors.CategoryConfig, srerrors.CodeUnknownComponent)
		}
		optimizers[name] = opt
		trainSteps[name] = NewTrainStep(ext, cfg.Dataset.InputIndices, opt, s.Group)
		s.Logger.Info("Optimizer built", "optimizer", name, "config", opt.Config())
	}

	validateSteps := make([]*ValidateStep, len(d.Validators))
	for i, v := range d.Validators {
		principal, ok := set.Principals[v.PrincipalModel]
		if !ok {
			return unknown("validator %s: principal model %q", v.Name, v.PrincipalModel)
		}
		if _, ok := s.Datasets[v.Dataset.Name]; !ok {
			return unknown("validator %s: dataset %q", v.Name, v.Dataset.Name)
		}
		validateSteps[i] = NewValidateStep(principal, v.Dataset.InputIndices, v.Dataset.HDImageIndex, s.Group)
	}

	if err := Resume(s.Logger, set, d.Models.Principals); err != nil {
		return err
	}

	s.Models = set
	s.Optimizers = optimizers
	s.optimizerNames = names
	s.trainSteps = trainSteps
	s.validateSteps = validateSteps
	return nil
}

func unknown(format string, args ...any) error {
	return srerrors.Wrap(fmt.Errorf(format, args...), srerrors.CategoryConfig, srerrors.CodeUnknownComponent)
}

// principals returns the live principal models the descriptor checkpoints.
func (s *Session) principals() (map[string]model.Principal, error) {
	out := make(map[string]model.Principal, len(s.Descriptor.Models.Principals))
	for name := range s.Descriptor.Models.Principals {
		p, ok := s.Models.Principals[name]
		if !ok {
			return nil, unknown("principal model %q", name)
		}
		out[name] = p
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
