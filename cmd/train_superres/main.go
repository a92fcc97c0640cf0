package main

import "context"
import "errors"
import "fmt"
import "io"
import "log/slog"
import "os"
import "os/signal"
import "syscall"

import "github.com/google/uuid"

import "github.com/neurlang/srtrain/checkpoint"
import "github.com/neurlang/srtrain/ctxlog"
import "github.com/neurlang/srtrain/datasets"
import srerrors "github.com/neurlang/srtrain/errors"
import "github.com/neurlang/srtrain/experiment"
import "github.com/neurlang/srtrain/model"
import "github.com/neurlang/srtrain/net/upscale"
import "github.com/neurlang/srtrain/replica"
import "github.com/neurlang/srtrain/summary"
import "github.com/neurlang/srtrain/trainer"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps startup validation failures to 3 and everything else to 1.
func exitCode(err error) int {
	switch srerrors.CategoryOf(err) {
	case srerrors.CategoryConfig, srerrors.CategoryPath:
		return 3
	}
	return 1
}

// families lists every model family the binary can build.
func families() *model.Registry {
	r := model.NewRegistry()
	upscale.Register(r)
	return r
}

func run(ctx context.Context, outW, logW io.Writer, args []string) error {
	cfg, shouldExit, err := parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	runID := uuid.NewString()
	logger := ctxlog.New(cfg.LogLevel, cfg.LogFormat, logW).With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)

	if cfg.Profile != "" {
		stopProfile, err := startProfile(cfg.Profile)
		if err != nil {
			return err
		}
		defer stopProfile()
	}

	path, err := checkpoint.Latest(cfg.Path)
	if err != nil {
		return err
	}
	d, err := experiment.Load(ctx, path)
	if err != nil {
		return err
	}
	logger = logger.With("experiment", d.Name)
	ctx = ctxlog.WithLogger(ctx, logger)

	group, err := replica.Detect(ctx, cfg.Replicas)
	if err != nil {
		return err
	}
	sink, err := summary.Open(d.Summary.Path, runID)
	if err != nil {
		return err
	}
	logger.Info("Summary writer opened.", "dir", sink.Dir())
	if cfg.MetricsAddr != "" {
		if _, err := summary.Serve(ctx, cfg.MetricsAddr, sink.Registry()); err != nil {
			return err
		}
	}

	session := trainer.NewSession(d, group, sink, logger)
	if err := session.BuildDatasets(datasets.DefaultSynthetic); err != nil {
		return err
	}
	if err := session.BuildModels(families()); err != nil {
		return err
	}
	logger.Info("Training started", "global_step", session.BaseStep, "replicas", group.String())

	loop := trainer.NewLoop(session)
	if cfg.Iterations > 0 {
		err = loop.RunIterations(ctx, cfg.Iterations)
	} else {
		err = loop.Run(ctx)
	}
	if errors.Is(err, context.Canceled) {
		logger.Info("Training interrupted")
		return nil
	}
	return err
}
