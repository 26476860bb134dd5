package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/stormbench/internal/benchmark/config"
	"github.com/wesleyorama2/stormbench/internal/benchmark/engine"
	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
	"github.com/wesleyorama2/stormbench/internal/benchmark/output"
	"github.com/wesleyorama2/stormbench/internal/benchmark/report"
	"github.com/wesleyorama2/stormbench/internal/logging"
	"github.com/wesleyorama2/stormbench/internal/sysres"
)

// errRunIncomplete marks a run that ended before every operation finished.
// Its results have already been printed.
var errRunIncomplete = errors.New("benchmark did not complete")

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a benchmark",
		Long: `Run a benchmark against an object storage service.

Settings come from the defaults, then the --config file if given, then any
flag set on the command line.

  stormbench run --host storage.example.com:443 --cred ssl \
    --bucket bench --object obj-1 --operation read \
    --threads 16 --runs 1000 --cpolicy pool --carg 4

  stormbench run --config bench.yaml --report_tag nightly --report_file results.csv`,
		Args: cobra.NoArgs,
		RunE: runBenchmark,
	}

	// The values bound here are discarded; applyChangedFlags replays the
	// flags that were set onto the loaded configuration.
	bindBenchmarkFlags(cmd.Flags(), config.Default())
	cmd.Flags().StringP("config", "c", "", "Configuration file (YAML or JSON)")
	cmd.Flags().BoolP("quiet", "q", false, "Print a one-line summary and no progress bar")
	return cmd
}

// loadRunConfig builds the run configuration from the config file and the
// flags set on cmd.
func loadRunConfig(cmd *cobra.Command) (*config.BenchmarkConfig, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyChangedFlags(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Verbose: cfg.Verbose,
		Output:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	limits, err := sysres.RaiseLimits()
	if err != nil {
		log.WithError(err).Warn("Could not raise the open file limit")
	} else if limits.Raised() {
		log.WithFields(logrus.Fields{
			"from": limits.Before,
			"to":   limits.After,
		}).Debug("Raised open file limit")
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	console := output.NewConsole(output.ConsoleConfig{
		Writer:  cmd.OutOrStdout(),
		NoColor: noColor(cmd),
		Quiet:   quiet,
	})
	console.PrintHeader(cfg)

	var progress *output.Progress
	opts := engine.Options{Log: log}
	if !quiet && output.IsTerminal(cmd.ErrOrStderr()) {
		progress = output.NewProgress(cmd.ErrOrStderr(), cfg.Runs, string(cfg.Operation))
		opts.OnOutcome = func(o metrics.Outcome) { progress.Observe(o) }
	}

	eng, err := engine.New(cfg, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(runContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := eng.Run(ctx)
	if progress != nil {
		progress.Finish()
	}
	if result == nil {
		return runErr
	}

	console.PrintSummary(result)
	if err := writeReports(cfg, result, log); err != nil {
		return err
	}

	if runErr != nil {
		log.WithError(runErr).Error("Benchmark did not complete")
		return errRunIncomplete
	}
	return nil
}

// writeReports writes every report file the configuration names.
func writeReports(cfg *config.BenchmarkConfig, result *engine.Result, log logrus.FieldLogger) error {
	if cfg.ReportFile != "" {
		if err := report.AppendSummary(cfg.ReportFile, result); err != nil {
			return err
		}
		log.WithField("file", cfg.ReportFile).Info("Summary appended")
	}
	if cfg.DataFile != "" {
		if err := report.WriteData(cfg.DataFile, result); err != nil {
			return err
		}
		log.WithField("file", cfg.DataFile).Info("Data written")
	}
	if cfg.JSONFile != "" {
		if err := report.WriteJSON(cfg.JSONFile, result); err != nil {
			return err
		}
		log.WithField("file", cfg.JSONFile).Info("Result written")
	}
	return nil
}

// runContext returns cmd's context, or Background when cobra was not given
// one.
func runContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
