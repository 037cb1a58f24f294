package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/schedule"
)

func newValidateCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config file and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			if _, err := schedule.Parse(cfg.Schedule.Cron); err != nil {
				return err
			}
			cmd.Printf("configuration valid: %s\n", path)
			cmd.Printf("target: %s database %s as %s\n", cfg.Target.URL, cfg.Target.Database, cfg.Target.Username)
			cmd.Printf("modules: %s\n", strings.Join(cfg.Modules, ", "))
			cmd.Printf("schedule: %s\n", cfg.Schedule.Cron)
			return nil
		},
	}
	addConfigFlag(cmd, &path)
	return cmd
}
