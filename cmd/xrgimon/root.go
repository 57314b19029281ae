package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "xrgimon",
		Short:         "Telemetry service for XRGI cogeneration units",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default $CONFIG_PATH or config/config.yaml)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newWindowCmd())

	return root
}
