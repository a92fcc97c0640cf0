package checkpoint

import "context"
import "fmt"
import "path/filepath"
import "sort"

import "github.com/neurlang/srtrain/ctxlog"
import "github.com/neurlang/srtrain/experiment"
import "github.com/neurlang/srtrain/fsx"
import "github.com/neurlang/srtrain/model"
import "github.com/neurlang/srtrain/optimizer"

// Generation describes a checkpoint that was written.
type Generation struct {
	Step       int64
	Path       string
	Digest     string
	Descriptor *experiment.Descriptor
}

// Save writes a generation for step into d.Checkpoint.Path. Every weight
// file is durable before the descriptor that references it is written. d
// itself is not modified; the updated snapshot is returned.
func Save(ctx context.Context, d *experiment.Descriptor, step int64,
	principals map[string]model.Principal, optimizers map[string]optimizer.Optimizer) (*Generation, error) {
	logger := ctxlog.FromContext(ctx)

	next, err := d.Clone()
	if err != nil {
		return nil, err
	}
	if next.Models.Principals == nil {
		next.Models.Principals = map[string]experiment.Principal{}
	}

	for _, name := range sortedKeys(principals) {
		path := filepath.Join(next.Checkpoint.Path, WeightsName(step, name))
		temp := fsx.TempPath(path)
		if err := principals[name].SaveWeights(temp); err != nil {
			return nil, fmt.Errorf("save weights %s: %w", name, err)
		}
		if err := fsx.Commit(temp, path); err != nil {
			return nil, fmt.Errorf("save weights %s: %w", name, err)
		}
		next.Models.Principals[name] = experiment.Principal{Path: path}
		logger.Debug("Weights saved", "model", name, "path", path)
	}

	for _, name := range sortedKeys(optimizers) {
		entry, ok := next.Optimizers[name]
		if !ok {
			return nil, fmt.Errorf("optimizer %s is not in the experiment", name)
		}
		entry.Config = optimizers[name].Config()
		next.Optimizers[name] = entry
	}
	next.GlobalStep = step

	raw, err := next.Marshal()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(next.Checkpoint.Path, DescriptorName(step))
	if err := fsx.WriteFileAtomic(path, raw, 0o644); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}
	digest, err := next.Digest()
	if err != nil {
		return nil, err
	}
	logger.Info("Checkpoint saved", "step", step, "path", path, "digest", digest)
	return &Generation{Step: step, Path: path, Digest: digest, Descriptor: next}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
