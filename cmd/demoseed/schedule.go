package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nomis52/demoseed/buildinfo"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/logging"
	"github.com/nomis52/demoseed/server"
)

func newScheduleCmd() *cobra.Command {
	var (
		path   string
		listen string
		cron   string
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Re-seed on a cron schedule and serve the status API",
		Long: `Runs until interrupted. Each scheduled or API-triggered run reads the
configuration current at its start; POST /reload picks up edits to the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, closeLog, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer closeLog()

			props := buildinfo.Get()
			logger.Info("demoseed scheduler started",
				"version", props.Version,
				"build_time", props.BuildTime,
				"git_commit", props.GitCommit,
				"config_path", path,
			)

			opts := []server.Option{server.WithConnector(connect)}
			if cmd.Flags().Changed("listen") {
				opts = append(opts, server.WithListenAddr(listen))
			}
			if cmd.Flags().Changed("cron") {
				opts = append(opts, server.WithCron(cron))
			}
			srv, err := server.New(path, logger, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	addConfigFlag(cmd, &path)
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides schedule.listen")
	cmd.Flags().StringVar(&cron, "cron", "", `cron expressions separated by ";", "" disables the schedule`)
	return cmd
}
