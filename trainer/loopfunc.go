package trainer

import "context"
import "fmt"

import "github.com/neurlang/srtrain/checkpoint"
import srerrors "github.com/neurlang/srtrain/errors"
import "github.com/neurlang/srtrain/metrics"

// Loop repeats train, validate and save over a built Session. Any phase
// error halts it.
type Loop struct {
	session *Session
}

func NewLoop(s *Session) *Loop {
	return &Loop{session: s}
}

// Run iterates until ctx is cancelled or a phase fails. Cancellation is
// checked between iterations and reported as ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Iterate(ctx); err != nil {
			return err
		}
	}
}

// RunIterations runs exactly n iterations unless one fails or ctx is
// cancelled first.
func (l *Loop) RunIterations(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Iterate(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) Iterate(ctx context.Context) error {
	if err := l.Train(ctx); err != nil {
		return err
	}
	if err := l.Validate(ctx); err != nil {
		return err
	}
	return l.Save(ctx)
}

// Train steps every optimizer whose cycle fires at the step read at the
// start of the phase.
func (l *Loop) Train(ctx context.Context) error {
	s := l.session
	step, err := s.GlobalStep()
	if err != nil {
		return err
	}
	for _, name := range s.optimizerNames {
		cfg := s.Descriptor.Optimizers[name]
		if !Fires(cfg.Cycle, step) {
			continue
		}
		batches, err := s.Datasets[cfg.Dataset.Name].Next()
		if err != nil {
			return srerrors.Wrap(fmt.Errorf("optimizer %s: next batch: %w", name, err), srerrors.CategoryExecution, srerrors.CodeReplicaFailed)
		}
		loss, err := s.trainSteps[name].Execute(batches)
		if err != nil {
			return fmt.Errorf("optimizer %s: %w", name, err)
		}
		tag := fmt.Sprintf("loss[%s]", name)
		if err := s.Sink.Scalar(tag, loss, step); err != nil {
			return err
		}
		s.Logger.Info(fmt.Sprintf("%s[%d]", tag, step), "optimizer", name, "step", step, "loss", loss)
	}
	return nil
}

// Validate scores every validator whose cycle fires.
func (l *Loop) Validate(ctx context.Context) error {
	s := l.session
	step, err := s.GlobalStep()
	if err != nil {
		return err
	}
	for i, v := range s.Descriptor.Validators {
		if !Fires(v.Cycle, step) {
			continue
		}
		batches, err := s.Datasets[v.Dataset.Name].Next()
		if err != nil {
			return srerrors.Wrap(fmt.Errorf("validator %s: next batch: %w", v.Name, err), srerrors.CategoryExecution, srerrors.CodeReplicaFailed)
		}
		pairs, err := s.validateSteps[i].Execute(batches)
		if err != nil {
			return fmt.Errorf("validator %s: %w", v.Name, err)
		}
		if err := l.score(v.Name, pairs, step); err != nil {
			return fmt.Errorf("validator %s: %w", v.Name, err)
		}
	}
	return nil
}

func (l *Loop) score(name string, pairs []Pair, step int64) error {
	s := l.session
	outputs, references, err := Gather(pairs)
	if err != nil {
		return srerrors.Wrap(err, srerrors.CategoryExecution, srerrors.CodeMetricFailed)
	}
	psnr, err := metrics.PSNR(outputs, references, metrics.MaxValue)
	if err != nil {
		return srerrors.Wrap(err, srerrors.CategoryExecution, srerrors.CodeMetricFailed)
	}
	ssim, err := metrics.SSIM(outputs, references, metrics.MaxValue)
	if err != nil {
		return srerrors.Wrap(err, srerrors.CategoryExecution, srerrors.CodeMetricFailed)
	}
	composite, err := metrics.Composite(references, outputs)
	if err != nil {
		return srerrors.Wrap(err, srerrors.CategoryExecution, srerrors.CodeMetricFailed)
	}

	psnrTag := fmt.Sprintf("psnr[%s]", name)
	ssimTag := fmt.Sprintf("ssim[%s]", name)
	if err := s.Sink.Scalar(psnrTag, psnr, step); err != nil {
		return err
	}
	if err := s.Sink.Scalar(ssimTag, ssim, step); err != nil {
		return err
	}
	if err := s.Sink.Image(fmt.Sprintf("hd-sr[%s]", name), composite, step); err != nil {
		return err
	}
	s.Logger.Info(fmt.Sprintf("%s[%d]", psnrTag, step), "validator", name, "step", step, "psnr", psnr)
	s.Logger.Info(fmt.Sprintf("%s[%d]", ssimTag, step), "validator", name, "step", step, "ssim", ssim)
	return nil
}

// Save writes a checkpoint generation when the checkpoint cycle fires and
// makes its snapshot the session descriptor.
func (l *Loop) Save(ctx context.Context) error {
	s := l.session
	step, err := s.GlobalStep()
	if err != nil {
		return err
	}
	if !Fires(s.Descriptor.Checkpoint.Cycle, step) {
		return nil
	}
	principals, err := s.principals()
	if err != nil {
		return err
	}
	gen, err := checkpoint.Save(ctx, s.Descriptor, step, principals, s.Optimizers)
	if err != nil {
		return err
	}
	s.Descriptor = gen.Descriptor
	return s.Sink.Checkpoint(gen.Path, gen.Digest, step)
}
