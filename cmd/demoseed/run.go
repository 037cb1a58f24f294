package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/logging"
	"github.com/nomis52/demoseed/metrics"
	"github.com/nomis52/demoseed/workflow"
	"github.com/nomis52/demoseed/workflows/seed"
)

const flushTimeout = 30 * time.Second

type runFlags struct {
	config       string
	database     string
	modules      []string
	demoPassword string
	seed         uint64
	today        string
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Seed the configured database once",
		Long: `Activates the requested modules, provisions master data and replays
demonstration documents. Re-running against a seeded database only matures
the documents already there.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(f.config, f.overrides(cmd))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runOnce(ctx, cmd.OutOrStdout(), &cfg)
		},
	}
	addConfigFlag(cmd, &f.config)
	cmd.Flags().StringVarP(&f.database, "database", "d", "", "database to seed")
	cmd.Flags().StringSliceVarP(&f.modules, "module", "m", nil, "module to activate, repeatable")
	cmd.Flags().StringVar(&f.demoPassword, "demo-password", "", "password of the demo users")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed, 0 draws one")
	cmd.Flags().StringVar(&f.today, "today", "", "reference date (YYYY-MM-DD)")
	return cmd
}

// overrides applies the flags the user set on top of the file and the
// environment.
func (f *runFlags) overrides(cmd *cobra.Command) config.Override {
	return func(c *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("database") {
			c.Target.Database = f.database
		}
		if flags.Changed("module") {
			c.Modules = f.modules
		}
		if flags.Changed("demo-password") {
			c.Demo.Password = f.demoPassword
		}
		if flags.Changed("seed") {
			c.Demo.Seed = f.seed
		}
		if flags.Changed("today") {
			c.Demo.Today = f.today
		}
	}
}

func runOnce(ctx context.Context, out io.Writer, cfg *config.Config) error {
	base, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closeLog()
	logger, runID := logging.ForRun(base)

	if cfg.Demo.Seed == 0 {
		cfg.Demo.Seed = uint64(time.Now().UnixNano())
	}
	logger.Info("demoseed started",
		"target", cfg.Target.URL,
		"database", cfg.Target.Database,
		"modules", cfg.Modules,
		"seed", cfg.Demo.Seed,
	)

	var push *metrics.PushRegistry
	var runMetrics *metrics.RunMetrics
	opts := []seed.WorkflowOption{}
	if cfg.Monitoring.VictoriaMetricsURL != "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Monitoring.VictoriaMetricsURL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: hostname,
		})
		if runMetrics, err = metrics.NewRunMetrics(push); err != nil {
			return fmt.Errorf("failed to create run metrics: %w", err)
		}
		opts = append(opts, seed.WithMetricsRegistry(push))
	}

	start := time.Now()
	statuses := activity.NewStatusHandler()
	opts = append(opts, seed.WithStatusCollection(statuses))

	var results map[workflow.ActivityID]*workflow.Result
	runErr := func() error {
		svc, err := connect(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", cfg.Target.URL, err)
		}
		wf, err := seed.NewWorkflow(cfg, svc, logger, opts...)
		if err != nil {
			return err
		}
		defer func() { results = wf.GetAllResults() }()
		return wf.Execute(ctx)
	}()
	took := time.Since(start)

	if results != nil {
		printSummary(out, statuses.Summary(seed.Order(), results))
	}
	fmt.Fprintf(out, "run %s seed %d took %s\n", runID, cfg.Demo.Seed, took.Round(time.Millisecond))
	if push != nil {
		runMetrics.Observe(results, time.Now(), took, runErr)
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := push.Flush(flushCtx); err != nil {
			logger.Error("failed to push metrics", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("seeding failed", "error", runErr, "duration", took)
		return runErr
	}
	logger.Info("seeding completed", "duration", took)
	return nil
}

// printSummary writes one line per step that did not stay disabled.
func printSummary(out io.Writer, entries []activity.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		if e.State == workflow.Disabled {
			continue
		}
		detail := e.Status
		if e.Err != nil {
			detail = e.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID.Type, e.State, detail)
	}
	if err := w.Flush(); err != nil {
		slog.Error("failed to print summary", "error", err)
	}
}
