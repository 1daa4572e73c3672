package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/pulsebar/pkg/bar"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/preview"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List builtin themes with a sample bar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		for _, name := range theme.Names() {
			th := theme.Get(name)
			fmt.Fprintf(out, "%-12s %s\n", name, preview.New(out, th, preview.Options{}).Render(themeSample(th)))
		}
		return nil
	},
}

var themesShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a builtin theme as TOML, as a starting point for a theme file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		th, ok := theme.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown theme %q (available: %v)", args[0], theme.Names())
		}
		data, err := theme.SaveToTOML(th)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// themeSample renders a few typical items with th.
func themeSample(th *theme.Theme) []i3.Item {
	pct, _ := th.Threshold(72)
	sample := []i3.Item{
		i3.NewItem("cpu 72%").WithColor(pct),
		i3.NewItem("mem 41%").WithColor(th.Dim),
		i3.NewItem("eth0").WithColor(th.Green),
		i3.NewItem("disk full").WithUrgent(true),
		i3.NewItem("Mon 2 Jan 15:04"),
	}
	b := bar.New(len(sample))
	for i, it := range sample {
		b.Set(i, it)
	}
	return b.Items(th)
}

func init() {
	themesCmd.AddCommand(themesShowCmd)
	rootCmd.AddCommand(themesCmd)
}
