package main

import (
	"github.com/spf13/cobra"

	"github.com/nomis52/demoseed/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("demoseed " + buildinfo.Get().String())
		},
	}
}
