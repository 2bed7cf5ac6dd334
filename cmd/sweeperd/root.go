package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "sweeperd",
		Short:         "Download completion post-processor",
		Long:          "sweeperd watches aria2 for completed downloads, extracts archives, sorts media into the destination tree, and triggers library scans.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), configFlag)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newConfigCommand(&configFlag))
	rootCmd.AddCommand(newHistoryCommand(&configFlag))
	rootCmd.AddCommand(newClassifyCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
