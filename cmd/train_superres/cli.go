package main

import "flag"
import "fmt"
import "io"
import "strings"

// ExitError carries the process exit code for usage errors.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

type config struct {
	Path        string
	LogLevel    string
	LogFormat   string
	Replicas    int
	Iterations  int
	MetricsAddr string
	Profile     string
}

// parse returns the process configuration, or true when the program should
// exit cleanly after printing help.
func parse(args []string, output io.Writer) (*config, bool, error) {
	flagSet := flag.NewFlagSet("train_superres", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
train_superres - resumable data-parallel super-resolution training.

Usage:
  train_superres [options] EXPERIMENT

Arguments:
  EXPERIMENT
    Experiment descriptor (.yaml) or a directory of checkpoints.

Options:
`)
		flagSet.PrintDefaults()
	}

	logLevel := flagSet.String("log-level", "info", "Logging level: 'debug', 'info', 'warn' or 'error'.")
	logFormat := flagSet.String("log-format", "text", "Log output format: 'text' or 'json'.")
	replicas := flagSet.Int("replicas", 0, "Number of replicas. 0 counts CUDA devices and falls back to one replica; CPU data parallelism needs an explicit count.")
	iterations := flagSet.Int("iterations", 0, "Stop after this many train/validate/save iterations. 0 runs until interrupted.")
	metricsAddr := flagSet.String("metrics-addr", "", "Address for the Prometheus /metrics endpoint. Empty disables it.")
	pgo := flagSet.Bool("pgo", false, "Write a CPU profile to default.pgo until the process stops.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected exactly one experiment path, got %d arguments", flagSet.NArg())}
	}

	cfg := &config{
		Path:        flagSet.Arg(0),
		LogLevel:    strings.ToLower(*logLevel),
		LogFormat:   strings.ToLower(*logFormat),
		Replicas:    *replicas,
		Iterations:  *iterations,
		MetricsAddr: *metricsAddr,
	}
	if *pgo {
		cfg.Profile = "default.pgo"
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	if cfg.Replicas < 0 || cfg.Iterations < 0 {
		return nil, false, &ExitError{Code: 2, Message: "replicas and iterations must not be negative"}
	}
	return cfg, false, nil
}
