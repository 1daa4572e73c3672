package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X gitlab.com/tinyland/lab/pulsebar/cmd.version=...".
var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// Version returns the build version.
func Version() string { return version }

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pulsebar %s (%s) built %s\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
