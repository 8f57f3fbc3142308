package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/city-bureau/city-scrapers-go/internal/config"
	"github.com/city-bureau/city-scrapers-go/internal/exporter"
	"github.com/city-bureau/city-scrapers-go/internal/feed"
	"github.com/city-bureau/city-scrapers-go/internal/logger"
	"github.com/city-bureau/city-scrapers-go/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	format     string
	verbose    bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "city-scrapers",
		Short: "Scrape public meetings of local government agencies",
		Long: `A CLI tool to scrape public meeting calendars of local government agencies.
Each run is reconciled against the previous batch so meetings that disappeared
from the source are published as cancelled.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ./city-scrapers.yaml)")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newRunCmd(opts),
		newRunAllCmd(opts),
		newCombineCmd(opts),
		newValidateCmd(opts),
		newListCmd(opts),
	)
	return cmd
}

// setup loads and validates the configuration and configures logging.
func setup(opts *options) (*config.Config, OutputFormat, error) {
	format, err := ParseOutputFormat(opts.format)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if opts.verbose {
		level = logger.LevelDebug
	}
	if cfg.Log.Development {
		logger.SetDefault(logger.NewDevelopment(level, os.Stderr))
	} else {
		logger.SetDefault(logger.New(level, os.Stderr))
	}
	return cfg, format, nil
}

func openStore(cfg *config.Config) (storage.BlobStore, error) {
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

func newRunCmd(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run <spider>",
		Short: "Run one spider and export its batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, format, err := setup(opts)
			if err != nil {
				return err
			}
			sc, err := cfg.Spider(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}

			var exp exporter.Exporter = exporter.NewBlobExporter(store, cfg.Storage.FeedPrefix, nil)
			if dryRun {
				exp = exporter.NewDryRunExporter(cmd.ErrOrStderr())
			}

			summary, err := NewRunner(cfg, store, exp).Run(cmd.Context(), sc)
			if err != nil {
				return err
			}
			return WriteSummaries(cmd.OutOrStdout(), []*RunSummary{summary}, format, opts.verbose)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the batch instead of storing it")
	return cmd
}

// runAll runs every configured spider. A failing spider does not stop the others.
func runAll(ctx context.Context, runner *Runner) ([]*RunSummary, error) {
	var (
		summaries []*RunSummary
		failed    int
	)
	for i := range runner.Config.Spiders {
		sc := &runner.Config.Spiders[i]
		summary, err := runner.Run(ctx, sc)
		if err != nil {
			if ctx.Err() != nil {
				return summaries, ctx.Err()
			}
			failed++
			logger.Error("Spider failed", logger.Fields{"spider": sc.Name}, err)
			continue
		}
		summaries = append(summaries, summary)
	}
	if failed > 0 {
		return summaries, fmt.Errorf("%d of %d spiders failed", failed, len(runner.Config.Spiders))
	}
	return summaries, nil
}

func newRunAllCmd(opts *options) *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "runall",
		Short: "Run every configured spider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, format, err := setup(opts)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			runner := NewRunner(cfg, store, exporter.NewBlobExporter(store, cfg.Storage.FeedPrefix, nil))

			once := func(ctx context.Context) error {
				summaries, err := runAll(ctx, runner)
				if werr := WriteSummaries(cmd.OutOrStdout(), summaries, format, opts.verbose); werr != nil {
					return werr
				}
				return err
			}

			if schedule == "" {
				return once(cmd.Context())
			}
			return runScheduled(cmd.Context(), schedule, once)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression to repeat the run on (e.g. \"0 */6 * * *\")")
	return cmd
}

// runScheduled calls job on every tick of schedule until ctx is cancelled. Ticks
// that arrive while a run is still going are skipped.
func runScheduled(ctx context.Context, schedule string, job func(context.Context) error) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() {
		if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Scheduled run failed", logger.Fields{"schedule": schedule}, err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	logger.Info("Waiting for scheduled runs", logger.Fields{"schedule": schedule})
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func newCombineCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "combine",
		Short: "Combine the latest batch of every spider into aggregate feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, format, err := setup(opts)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			shape, err := feed.ParseShape(cfg.Output.Format)
			if err != nil {
				return err
			}

			combiner := &storage.Combiner{
				Store:           store,
				FeedPrefix:      cfg.Storage.FeedPrefix,
				MaxDaysPrevious: cfg.Storage.MaxDaysPrevious,
				Shape:           shape,
			}
			result, err := combiner.Combine(cmd.Context(), cfg.SpiderNames(), time.Now())
			if err != nil {
				return fmt.Errorf("combining feeds: %w", err)
			}
			return WriteCombine(cmd.OutOrStdout(), result, format)
		},
	}
}

func newValidateCmd(opts *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "validate [spider...]",
		Short: "Crawl spiders and check their meetings against the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("specify at least one spider or --all")
			}
			cfg, format, err := setup(opts)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}

			names := args
			if all {
				names = cfg.SpiderNames()
			}

			runner := NewRunner(cfg, store, nil)
			runner.EnforceValidation = true

			var (
				summaries []*RunSummary
				failed    []string
			)
			for _, name := range names {
				sc, err := cfg.Spider(name)
				if err != nil {
					return err
				}
				summary, err := runner.Run(cmd.Context(), sc)
				if summary != nil {
					summaries = append(summaries, summary)
				}
				if err != nil {
					failed = append(failed, name)
					logger.Warn("Validation failed", logger.Fields{"spider": name, "error": err.Error()})
				}
			}

			if err := WriteReports(cmd.OutOrStdout(), summaries, format); err != nil {
				return err
			}
			if len(failed) > 0 {
				sort.Strings(failed)
				return fmt.Errorf("validation failed for %v", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Validate every configured spider")
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured spiders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, format, err := setup(opts)
			if err != nil {
				return err
			}
			return WriteSpiders(cmd.OutOrStdout(), cfg.Spiders, format)
		},
	}
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(ExitError)
	}
}
