// Command csvclean runs CSV cleaning jobs described by job files.
//
// Each argument names a job file: a JSON document carrying the input path,
// output folder and cleaning parameters. Jobs run one after another in the
// order given. A job that fails has the failure recorded inside its job file
// and does not stop the remaining jobs.
//
// Exit codes:
//   - 0: every job completed.
//   - 1: at least one job failed.
//   - 2: configuration/initialization error.
//
// Configuration is read from flags first, then from CSVCLEAN_* environment
// variables (optionally loaded from a file with -env-file):
//
//	CSVCLEAN_LOG_LEVEL        debug|info|warn|error (default info)
//	CSVCLEAN_LOG_FILE         append JSON logs to this file
//	CSVCLEAN_METRICS_BACKEND  pushgateway|datadog|none (default none)
//	CSVCLEAN_METRICS_TAGS     extra tags CSV for the datadog backend
//	CSVCLEAN_PUSH_URL         Pushgateway base URL (default http://localhost:9091)
//	CSVCLEAN_PUSH_JOB         metrics job name (default csvclean)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"csvclean/internal/clean"
	"csvclean/internal/config"
	"csvclean/internal/metrics"
	"csvclean/internal/metrics/datadog"
	"csvclean/internal/metrics/prompush"
)

// deps are external seams for testability.
//
// When to use:
//   - Unit tests: capture stdout/stderr and keep log output inside the test.
//   - Alternate runtimes: swap output sinks.
type deps struct {
	Stdout io.Writer
	Stderr io.Writer

	// Logger overrides the configured logger when non-nil.
	Logger *slog.Logger
}

// runConfig holds the parsed flags and positional job file paths.
type runConfig struct {
	EnvFile        string
	LogLevel       string
	LogFile        string
	MetricsBackend string
	MetricsTags    string
	PushURL        string
	PushJob        string

	Jobs []string
}

// main is intentionally small: it wires real dependencies and exits with a code.
func main() {
	code := run(os.Args[1:], deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	os.Exit(code)
}

// run executes the cleaning command and returns an exit code.
//
// Exit codes:
//   - 0: every job completed.
//   - 1: at least one job failed.
//   - 2: configuration/initialization error.
func run(args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	if cfg.EnvFile != "" {
		if err := godotenv.Load(cfg.EnvFile); err != nil {
			fmt.Fprintf(d.Stderr, "load env file %s: %v\n", cfg.EnvFile, err)
			return 2
		}
	}

	appCfg := config.Load()
	applyFlags(&appCfg, cfg)

	logger := d.Logger
	closeLogs := func() error { return nil }
	if logger == nil {
		logger, closeLogs = config.SetupLogger(appCfg.LogFile, appCfg.LogLevel)
	}
	defer func() { _ = closeLogs() }()
	logger = logger.With("run_id", uuid.NewString())

	stopMetrics := setupMetrics(appCfg, logger)
	defer stopMetrics()

	runner := &clean.Runner{Log: logger}

	failed := 0
	for _, jobPath := range cfg.Jobs {
		rep, err := runner.Run(jobPath)
		if err != nil {
			failed++
			fmt.Fprintf(d.Stderr, "%s: %v\n", jobPath, err)
			continue
		}
		fmt.Fprintf(d.Stdout, "%s: %d rows in, %d rows out, wrote %s\n",
			jobPath, rep.RowsIn, rep.RowsOut, rep.OutputCsvPath)
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("csvclean", flag.ContinueOnError)

	// Capture help/usage text instead of writing to stdout.
	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)

	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage: %s [flags] job.json [job.json ...]\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	fs.StringVar(&cfg.EnvFile, "env-file", "", "Load environment variables from this file first")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level: debug|info|warn|error (overrides CSVCLEAN_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Also append JSON logs to this file (overrides CSVCLEAN_LOG_FILE)")
	fs.StringVar(&cfg.MetricsBackend, "metrics-backend", "", "Metrics backend: pushgateway|datadog|none (overrides CSVCLEAN_METRICS_BACKEND)")
	fs.StringVar(&cfg.MetricsTags, "metrics-tags", "", "Extra tags CSV for the datadog backend (overrides CSVCLEAN_METRICS_TAGS)")
	fs.StringVar(&cfg.PushURL, "push-url", "", "Pushgateway base URL (overrides CSVCLEAN_PUSH_URL)")
	fs.StringVar(&cfg.PushJob, "push-job", "", "Metrics job name (overrides CSVCLEAN_PUSH_JOB)")

	if err := fs.Parse(args); err != nil {
		// When -h / -help is passed, flag.Parse returns flag.ErrHelp.
		// Return the captured usage text so caller prints it.
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		// For other parse errors, return the error plus usage (nice UX).
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	cfg.Jobs = fs.Args()
	if len(cfg.Jobs) == 0 {
		fs.Usage()
		return runConfig{}, fmt.Errorf("missing job file argument\n\n%s", usageBuf.String())
	}

	return cfg, nil
}

// applyFlags overlays non-empty flag values onto the environment config.
func applyFlags(appCfg *config.Config, cfg runConfig) {
	if cfg.LogLevel != "" {
		appCfg.LogLevel = config.ParseLevel(cfg.LogLevel, appCfg.LogLevel)
	}
	if cfg.LogFile != "" {
		appCfg.LogFile = cfg.LogFile
	}
	if cfg.MetricsBackend != "" {
		appCfg.MetricsBackend = cfg.MetricsBackend
	}
	if cfg.MetricsTags != "" {
		appCfg.MetricsTags = cfg.MetricsTags
	}
	if cfg.PushURL != "" {
		appCfg.PushURL = cfg.PushURL
	}
	if cfg.PushJob != "" {
		appCfg.PushJob = cfg.PushJob
	}
}

// setupMetrics installs the configured metrics backend and returns a stop
// function that flushes and releases it. A backend that cannot be built is
// logged and skipped; metrics problems never stop a run.
func setupMetrics(appCfg config.Config, logger *slog.Logger) func() {
	name := strings.ToLower(strings.TrimSpace(appCfg.MetricsBackend))
	switch name {
	case "pushgateway":
		b, err := prompush.NewBackend(appCfg.PushJob, appCfg.PushURL)
		if err != nil {
			logger.Warn("metrics disabled", "backend", name, "error", err)
			return func() {}
		}
		metrics.SetBackend(b)
		logger.Debug("metrics enabled", "backend", name, "url", appCfg.PushURL, "job", appCfg.PushJob)
		return func() {
			if err := metrics.Flush(); err != nil {
				logger.Warn("metrics flush failed", "error", err)
			}
		}
	case "datadog":
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: appCfg.PushJob,
			Tags:    datadog.ParseTagsCSV(appCfg.MetricsTags),
		})
		if err != nil {
			logger.Warn("metrics disabled", "backend", name, "error", err)
			return func() {}
		}
		metrics.SetBackend(b)
		logger.Debug("metrics enabled", "backend", name, "job", appCfg.PushJob)
		return func() {
			if err := b.Close(); err != nil {
				logger.Warn("metrics close failed", "error", err)
			}
		}
	case "", "none":
		return func() {}
	default:
		logger.Warn("unknown metrics backend; metrics disabled", "backend", name)
		return func() {}
	}
}
