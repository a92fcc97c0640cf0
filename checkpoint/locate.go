// Package checkpoint discovers and writes checkpoint generations.
//
// A generation at step N is one weight file per principal model,
// NNNNNNNNNNNNNNNN_<model>.json.lzw, and one descriptor snapshot,
// NNNNNNNNNNNNNNNN_checkpoint.yaml. The descriptor is written last, so a
// generation without one is never discovered.
package checkpoint

import "fmt"
import "os"
import "path/filepath"
import "regexp"
import "sort"

import srerrors "github.com/neurlang/srtrain/errors"

const (
	DescriptorExt = "yaml"
	WeightsExt    = "json.lzw"
)

var descriptorName = regexp.MustCompile(`^\d{16}_checkpoint\.` + regexp.QuoteMeta(DescriptorExt) + `$`)

// DescriptorName is the checkpoint descriptor filename for step.
func DescriptorName(step int64) string {
	return fmt.Sprintf("%016d_checkpoint.%s", step, DescriptorExt)
}

// WeightsName is the weight filename for model at step.
func WeightsName(step int64, model string) string {
	return fmt.Sprintf("%016d_%s.%s", step, model, WeightsExt)
}

// Latest returns path unchanged unless it is a directory, in which case it
// returns the newest checkpoint descriptor inside it.
func Latest(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return path, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", srerrors.Wrap(fmt.Errorf("list checkpoints: %w", err), srerrors.CategoryPath, srerrors.CodeInvalidPath)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && descriptorName.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", srerrors.New(srerrors.CategoryPath, srerrors.CodeCheckpointNotFound,
			fmt.Sprintf("found no checkpoint within %s", path))
	}
	sort.Strings(names)
	return filepath.Join(path, names[len(names)-1]), nil
}
