package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/pulsebar/pkg/config"
	"gitlab.com/tinyland/lab/pulsebar/pkg/daemon"
)

var flagSocket string

var ipcCmd = &cobra.Command{
	Use:   "ipc COMMAND [ARGS...]",
	Short: "Send a command to a running bar",
	Long: `Send a command to a running bar over its control socket and print the JSON reply.

Commands:
  info                      slot states and counters
  bar                       the items currently shown
  click <instance> [button] deliver a click to a slot (button defaults to 1)
  refresh                   ask every item to redraw now
  reload                    reload configuration and theme`,
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: []string{"info", "bar", "click", "refresh", "reload"},
	RunE: func(cmd *cobra.Command, args []string) error {
		socket, err := ipcSocketPath()
		if err != nil {
			return err
		}
		resp, err := daemon.NewIPCClient(socket).SendCommand(strings.Join(args, " "))
		if err != nil {
			return err
		}

		var out bytes.Buffer
		if err := json.Indent(&out, []byte(resp), "", "  "); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), resp)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.String())
		return nil
	},
}

// ipcSocketPath resolves the socket from --socket, then the config.
func ipcSocketPath() (string, error) {
	if flagSocket != "" {
		return flagSocket, nil
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return "", err
	}
	return cfg.Socket, nil
}

func init() {
	ipcCmd.Flags().StringVarP(&flagSocket, "socket", "s", "", "control socket path (default from config)")
	rootCmd.AddCommand(ipcCmd)
}
