package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/pulsebar/pkg/config"
	"gitlab.com/tinyland/lab/pulsebar/pkg/items"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List item types and check the configured items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		reg := items.Default()
		fmt.Fprintln(out, "types:")
		for _, typ := range reg.List() {
			fmt.Fprintf(out, "  %s\n", typ)
		}

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		slots, err := reg.Build(cfg.Items)
		if err != nil {
			return err
		}
		source := cfg.Path
		if source == "" {
			source = "builtin defaults"
		}
		fmt.Fprintf(out, "configured (%s):\n", source)
		for i, sl := range slots {
			fmt.Fprintf(out, "  %d %s\n", i, sl.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(itemsCmd)
}
