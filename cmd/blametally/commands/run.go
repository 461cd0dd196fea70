// Package commands implements CLI command handlers for blametally.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/blametally/internal/config"
	"github.com/Sumatoshi-tech/blametally/internal/gitblame"
	"github.com/Sumatoshi-tech/blametally/internal/observability"
	"github.com/Sumatoshi-tech/blametally/internal/render"
	"github.com/Sumatoshi-tech/blametally/pkg/gitlib"
	"github.com/Sumatoshi-tech/blametally/pkg/ownership"
)

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	configPath    string
	workers       int
	mode          string
	format        string
	top           int
	queueSize     int
	resultQueue   int
	retryAttempts int
	retryInterval time.Duration
	noColor       bool
	metricsListen string

	verbose *bool
	quiet   *bool

	out    io.Writer
	errOut io.Writer
}

// NewRunCommand creates the run command. The verbose and quiet pointers are
// bound to the root command's persistent flags.
func NewRunCommand(verbose, quiet *bool) *cobra.Command {
	runCmd := &RunCommand{
		verbose: verbose,
		quiet:   quiet,
		out:     os.Stdout,
		errOut:  os.Stderr,
	}

	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Tally per-author line ownership at HEAD",
		Long: `Walks every tracked file of the repository's HEAD tree, blames each
one, and prints authors ranked by the number of lines they still own.
Files that cannot be blamed (binary, untracked) are skipped and counted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}

			return runCmd.execute(cmd, path)
		},
	}

	runCmd.bindFlags(cmd)

	return cmd
}

func (r *RunCommand) bindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&r.configPath, "config", "", "config file (default .blametally.yaml in CWD or $HOME)")
	flags.IntVarP(&r.workers, "workers", "w", 0, "worker count (0 = number of CPUs)")
	flags.StringVarP(&r.mode, "mode", "m", "", "execution mode: sequential or concurrent")
	flags.StringVarP(&r.format, "format", "f", "", "output format: table, csv, or chart")
	flags.IntVarP(&r.top, "top", "t", 0, "only print the top K authors (0 = all)")
	flags.IntVar(&r.queueSize, "queue-size", 0, "work queue capacity")
	flags.IntVar(&r.resultQueue, "result-queue-size", 0, "result queue capacity")
	flags.IntVar(&r.retryAttempts, "retry-attempts", 0, "delivery attempts before a result is dropped")
	flags.DurationVar(&r.retryInterval, "retry-interval", 0, "wait between delivery attempts")
	flags.BoolVar(&r.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&r.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address during the run")
}

func (r *RunCommand) execute(cmd *cobra.Command, path string) error {
	logger := r.newLogger()

	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	repo, err := gitlib.LoadRepository(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer repo.Free()

	tree, err := repo.HeadTree()
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer tree.Free()

	oracle := gitblame.NewOracle(repo.Path())
	defer oracle.Close()

	metrics := observability.NewMetrics()

	if cfg.Metrics.Listen != "" {
		stop := metrics.Serve(cfg.Metrics.Listen)
		defer func() {
			stopErr := stop()
			if stopErr != nil {
				logger.Warn("metrics listener failed", "error", stopErr)
			}
		}()
	}

	report, err := ownership.Run(cmd.Context(), gitblame.NewSource(tree), oracle, ownership.Options{
		Mode:            ownership.Mode(cfg.Pipeline.Mode),
		Workers:         cfg.Pipeline.Workers,
		QueueSize:       cfg.Pipeline.QueueSize,
		ResultQueueSize: cfg.Pipeline.ResultQueueSize,
		Retry: ownership.RetryPolicy{
			MaxAttempts: cfg.Pipeline.RetryAttempts,
			Interval:    cfg.RetryIntervalDuration(),
		},
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	renderErr := render.Ranking(r.out, report.Ranking, render.Options{
		Format:  cfg.Output.Format,
		Top:     cfg.Output.Top,
		NoColor: cfg.Output.NoColor,
	})
	if renderErr != nil {
		return renderErr
	}

	if r.quiet == nil || !*r.quiet {
		render.Summary(r.errOut, report, cfg.Output.NoColor)
	}

	return nil
}

// loadConfig loads the layered configuration, then lets explicitly set
// flags override it.
func (r *RunCommand) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(r.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("workers") {
		cfg.Pipeline.Workers = r.workers
	}

	if flags.Changed("mode") {
		cfg.Pipeline.Mode = r.mode
	}

	if flags.Changed("queue-size") {
		cfg.Pipeline.QueueSize = r.queueSize
	}

	if flags.Changed("result-queue-size") {
		cfg.Pipeline.ResultQueueSize = r.resultQueue
	}

	if flags.Changed("retry-attempts") {
		cfg.Pipeline.RetryAttempts = r.retryAttempts
	}

	if flags.Changed("retry-interval") {
		cfg.Pipeline.RetryInterval = r.retryInterval.String()
	}

	if flags.Changed("format") {
		cfg.Output.Format = r.format
	}

	if flags.Changed("top") {
		cfg.Output.Top = r.top
	}

	if flags.Changed("no-color") {
		cfg.Output.NoColor = r.noColor
	}

	if flags.Changed("metrics-listen") {
		cfg.Metrics.Listen = r.metricsListen
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return cfg, nil
}

func (r *RunCommand) newLogger() *slog.Logger {
	level := slog.LevelInfo

	if r.verbose != nil && *r.verbose {
		level = slog.LevelDebug
	}

	if r.quiet != nil && *r.quiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(r.errOut, &slog.HandlerOptions{Level: level}))
}
