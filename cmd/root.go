// Package cmd implements the pulsebar command line.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pulsebar",
	Short: "Status line generator for i3bar and swaybar",
	Long: "pulsebar writes a live status line in the i3bar JSON protocol. Each configured item " +
		"runs on its own, reacts to clicks and redraws only when it changes.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBar(cmd, defaultRunOptions())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to configuration file (TOML or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
