package trainer

import "fmt"
import "log/slog"
import "os"

import srerrors "github.com/neurlang/srtrain/errors"
import "github.com/neurlang/srtrain/experiment"
import "github.com/neurlang/srtrain/model"

// Resume loads stored weights into every principal whose descriptor path
// names an existing file. Empty or missing paths leave fresh weights.
func Resume(logger *slog.Logger, set *model.Set, principals map[string]experiment.Principal) error {
	for _, name := range sortedKeys(principals) {
		p, ok := set.Principals[name]
		if !ok {
			return unknown("principal model %q", name)
		}
		path := principals[name].Path
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			logger.Warn("Weights not found, starting fresh", "model", name, "path", path)
			continue
		}
		if err := p.LoadWeights(path); err != nil {
			return srerrors.Wrap(fmt.Errorf("load weights %s: %w", name, err), srerrors.CategoryPath, srerrors.CodeInvalidPath)
		}
		logger.Info("Weights loaded", "model", name, "path", path)
	}
	return nil
}
