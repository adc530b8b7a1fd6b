package main

import (
	"github.com/spf13/cobra"
)

// appVersion is overridden at release build time via -ldflags.
var appVersion = "dev"

func newRootCommand() *cobra.Command {
	var configFlag string
	var installerFlag string
	var stagingFlag string
	var verboseFlag bool

	ctx := newCommandContext(&configFlag, &installerFlag, &stagingFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:   "tzbuild",
		Short: "Batch build and install Trainz assets",
		Long: "tzbuild scans a directory tree for Trainz assets (directories with a\n" +
			"config.txt declaring a kuid), then test-builds or installs each one\n" +
			"through the TrainzUtil command line installer.",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&installerFlag, "trainzutil", "", "Path to the TrainzUtil executable")
	rootCmd.PersistentFlags().StringVar(&stagingFlag, "staging-dir", "", "Base directory for staged asset copies")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Detailed output")

	rootCmd.AddCommand(newBuildCommand(ctx))
	rootCmd.AddCommand(newInstallCommand(ctx))
	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
