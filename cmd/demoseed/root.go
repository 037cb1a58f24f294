package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/clients/trytonclient"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/server/runner"
)

// connect opens the platform a run seeds. Tests swap it for the in-memory
// platform.
var connect runner.Connector = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (bos.Service, error) {
	return trytonclient.Dial(ctx, cfg.Target, logger)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "demoseed",
		Short:         "Seed an ERP database with a demonstration dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRunCmd(),
		newScheduleCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)
	return root
}

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", "", "path to the config file")
	_ = cmd.MarkFlagRequired("config")
}
